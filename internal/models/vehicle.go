package models

import "time"

// Vehicle category names known to the rate table.
const (
	CategoryCar        = "car"
	CategoryMotorcycle = "motorcycle"
	CategoryTruck      = "truck"
	CategoryVan        = "van"
)

type VehicleCategory struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type VehicleOwner struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

type Vehicle struct {
	ID           int64     `json:"id"`
	PlateNumber  string    `json:"plate_number"`
	CategoryID   int64     `json:"category_id"`
	OwnerID      int64     `json:"owner_id"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Color        string    `json:"color"`
	CategoryName string    `json:"category_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
