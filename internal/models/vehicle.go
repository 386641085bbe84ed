package models

import "time"

type Vehicle struct {
	ID           int64     `yaml:"id" json:"id"`
	Brand        string    `yaml:"brand" json:"brand"`
	Model        string    `yaml:"model" json:"model"`
	Year         int       `yaml:"year" json:"year"`
	Type         string    `yaml:"type" json:"type"`
	PricePerDay  float64   `yaml:"price_per_day" json:"price_per_day"`
	FuelType     string    `yaml:"fuel_type" json:"fuel_type,omitempty"`
	Transmission string    `yaml:"transmission" json:"transmission,omitempty"`
	Mileage      int64     `yaml:"mileage" json:"mileage,omitempty"`
	SeatCount    int       `yaml:"seat_count" json:"seat_count,omitempty"`
	Color        string    `yaml:"color" json:"color,omitempty"`
	IsAvailable  bool      `yaml:"is_available" json:"is_available"`
	IsActive     bool      `yaml:"is_active" json:"is_active"`
	CreatedAt    time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at" json:"updated_at"`
}
