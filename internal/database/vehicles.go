package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parkdesk/internal/models"
)

// EnsureCategories inserts missing categories by name.
func (db *DB) EnsureCategories(ctx context.Context, names ...string) error {
	for _, name := range names {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO vehicle_categories (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
			name, time.Now()); err != nil {
			return fmt.Errorf("failed to ensure category %s: %w", name, err)
		}
	}
	return nil
}

func (db *DB) GetCategoryByName(ctx context.Context, name string) (*models.VehicleCategory, error) {
	var c models.VehicleCategory
	err := db.QueryRowContext(ctx, `SELECT id, name, description, created_at FROM vehicle_categories WHERE name = ?`,
		strings.ToLower(strings.TrimSpace(name))).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err, "vehicle category", name)
	}
	return &c, nil
}

func (db *DB) ListCategories(ctx context.Context) ([]*models.VehicleCategory, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, description, created_at FROM vehicle_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var out []*models.VehicleCategory
	for rows.Next() {
		var c models.VehicleCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (db *DB) CreateOwner(ctx context.Context, o *models.VehicleOwner) (int64, error) {
	o.CreatedAt = time.Now()
	res, err := db.ExecContext(ctx, `
        INSERT INTO vehicle_owners (full_name, phone, email, address, created_at) VALUES (?, ?, ?, ?, ?)`,
		o.FullName, o.Phone, o.Email, o.Address, o.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create owner: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get owner id: %w", err)
	}
	o.ID = id
	return id, nil
}

func (db *DB) GetOwner(ctx context.Context, id int64) (*models.VehicleOwner, error) {
	var o models.VehicleOwner
	err := db.QueryRowContext(ctx, `SELECT id, full_name, phone, email, address, created_at FROM vehicle_owners WHERE id = ?`, id).
		Scan(&o.ID, &o.FullName, &o.Phone, &o.Email, &o.Address, &o.CreatedAt)
	if err != nil {
		return nil, notFound(err, "owner", id)
	}
	return &o, nil
}

const vehicleSelect = `
    SELECT v.id, v.plate_number, v.category_id, v.owner_id, v.make, v.model, v.color, c.name, v.created_at
    FROM vehicles v JOIN vehicle_categories c ON c.id = v.category_id`

func scanVehicle(row rowScanner) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := row.Scan(&v.ID, &v.PlateNumber, &v.CategoryID, &v.OwnerID, &v.Make, &v.Model, &v.Color,
		&v.CategoryName, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateVehicle stores a vehicle. Plate numbers are normalized to upper case.
func (db *DB) CreateVehicle(ctx context.Context, v *models.Vehicle) (int64, error) {
	v.PlateNumber = NormalizePlate(v.PlateNumber)
	v.CreatedAt = time.Now()
	res, err := db.ExecContext(ctx, `
        INSERT INTO vehicles (plate_number, category_id, owner_id, make, model, color, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.PlateNumber, v.CategoryID, v.OwnerID, v.Make, v.Model, v.Color, v.CreatedAt)
	if err != nil {
		return 0, insertErr(err, "vehicle")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get vehicle id: %w", err)
	}
	v.ID = id
	return id, nil
}

func (db *DB) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	v, err := scanVehicle(db.QueryRowContext(ctx, vehicleSelect+` WHERE v.id = ?`, id))
	if err != nil {
		return nil, notFound(err, "vehicle", id)
	}
	return v, nil
}

func (db *DB) GetVehicleByPlate(ctx context.Context, plate string) (*models.Vehicle, error) {
	v, err := scanVehicle(db.QueryRowContext(ctx, vehicleSelect+` WHERE v.plate_number = ?`, NormalizePlate(plate)))
	if err != nil {
		return nil, notFound(err, "vehicle", plate)
	}
	return v, nil
}

func (db *DB) ListVehiclesByOwner(ctx context.Context, ownerID int64) ([]*models.Vehicle, error) {
	rows, err := db.QueryContext(ctx, vehicleSelect+` WHERE v.owner_id = ? ORDER BY v.id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	var out []*models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}

func (db *DB) ListOwners(ctx context.Context) ([]*models.VehicleOwner, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, full_name, phone, email, address, created_at FROM vehicle_owners ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	defer rows.Close()

	var out []*models.VehicleOwner
	for rows.Next() {
		var o models.VehicleOwner
		if err := rows.Scan(&o.ID, &o.FullName, &o.Phone, &o.Email, &o.Address, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (db *DB) UpdateOwner(ctx context.Context, o *models.VehicleOwner) error {
	res, err := db.ExecContext(ctx, `UPDATE vehicle_owners SET full_name = ?, phone = ?, email = ?, address = ? WHERE id = ?`,
		o.FullName, o.Phone, o.Email, o.Address, o.ID)
	if err != nil {
		return fmt.Errorf("failed to update owner: %w", err)
	}
	return expectRow(res, "owner", o.ID)
}

func (db *DB) DeleteOwner(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM vehicle_owners WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete owner: %w", err)
	}
	return expectRow(res, "owner", id)
}

func (db *DB) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	v.PlateNumber = NormalizePlate(v.PlateNumber)
	res, err := db.ExecContext(ctx, `
        UPDATE vehicles SET plate_number = ?, category_id = ?, owner_id = ?, make = ?, model = ?, color = ?
        WHERE id = ?`, v.PlateNumber, v.CategoryID, v.OwnerID, v.Make, v.Model, v.Color, v.ID)
	if err != nil {
		return fmt.Errorf("failed to update vehicle: %w", err)
	}
	return expectRow(res, "vehicle", v.ID)
}

func (db *DB) DeleteVehicle(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	return expectRow(res, "vehicle", id)
}
