package api

import (
	"fmt"
	"net/http"
	"strings"

	"parkdesk/internal/models"
	"parkdesk/internal/service"
)

type createOwnerRequest struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"max=50"`
	Email    string `json:"email" validate:"omitempty,email"`
	Address  string `json:"address" validate:"max=500"`
}

type createVehicleRequest struct {
	PlateNumber string `json:"plate_number" validate:"required,max=20"`
	Category    string `json:"category" validate:"required"`
	OwnerID     int64  `json:"owner_id" validate:"required,gt=0"`
	Make        string `json:"make" validate:"max=50"`
	Model       string `json:"model" validate:"max=50"`
	Color       string `json:"color" validate:"max=30"`
}

type registerUserRequest struct {
	GroupID    int64  `json:"group_id" validate:"required,gt=0"`
	Username   string `json:"username" validate:"required,max=64"`
	FullName   string `json:"full_name" validate:"required,max=200"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"max=50"`
	TelegramID int64  `json:"telegram_id"`
	Password   string `json:"password" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *HTTPServer) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Vehicles.Categories(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": nonNil(cats)})
}

func (s *HTTPServer) handleCreateOwner(w http.ResponseWriter, r *http.Request) {
	var req createOwnerRequest
	if err := s.decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	owner, err := s.svc.Vehicles.RegisterOwner(r.Context(), &models.VehicleOwner{
		FullName: req.FullName,
		Phone:    req.Phone,
		Email:    req.Email,
		Address:  req.Address,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, owner)
}

func (s *HTTPServer) handleGetOwner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	owner, err := s.svc.Vehicles.GetOwner(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, owner)
}

func (s *HTTPServer) handleOwnerVehicles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	vehicles, err := s.svc.Vehicles.ListByOwner(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vehicles": nonNil(vehicles)})
}

func (s *HTTPServer) handleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req createVehicleRequest
	if err := s.decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.svc.Vehicles.RegisterVehicle(r.Context(), service.RegisterVehicleRequest{
		PlateNumber: req.PlateNumber,
		Category:    req.Category,
		OwnerID:     req.OwnerID,
		Make:        req.Make,
		Model:       req.Model,
		Color:       req.Color,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// handleFindVehicle looks a vehicle up by ?plate=.
func (s *HTTPServer) handleFindVehicle(w http.ResponseWriter, r *http.Request) {
	plate := strings.TrimSpace(r.URL.Query().Get("plate"))
	if plate == "" {
		s.fail(w, r, fmt.Errorf("%w: plate is required", service.ErrValidation))
		return
	}
	v, err := s.svc.Vehicles.FindByPlate(r.Context(), plate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *HTTPServer) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.svc.Vehicles.GetVehicle(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *HTTPServer) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := s.decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.svc.Users.Register(r.Context(), service.RegisterUserRequest{
		GroupID:    req.GroupID,
		Username:   req.Username,
		FullName:   req.FullName,
		Email:      req.Email,
		Phone:      req.Phone,
		TelegramID: req.TelegramID,
		Password:   req.Password,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.svc.Users.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *HTTPServer) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Users.Deactivate(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLogin checks staff credentials and returns the user with its group
// permissions.
func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.svc.Users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	perms, err := s.svc.Users.Permissions(r.Context(), u.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u, "group": perms})
}
