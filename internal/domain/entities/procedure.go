package entities

import (
	"strings"
	"time"
)

// Procedure represents a spa treatment offering
type Procedure struct {
	ID                  string    `json:"id" db:"id"`
	Name                string    `json:"name" db:"name"`
	Description         *string   `json:"description,omitempty" db:"description"`
	DetailedDescription *string   `json:"detailed_description,omitempty" db:"detailed_description"`
	Benefits            *string   `json:"benefits,omitempty" db:"benefits"`
	Preparation         *string   `json:"preparation,omitempty" db:"preparation"`
	DurationMinutes     int       `json:"duration_minutes" db:"duration_minutes"`
	Price               *float64  `json:"price,omitempty" db:"price"`
	ImageURL            *string   `json:"image_url,omitempty" db:"image_url"`
	VideoURL            *string   `json:"video_url,omitempty" db:"video_url"`
	IsActive            bool      `json:"is_active" db:"is_active"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}

// PriceOrZero returns the price, treating an unpriced procedure as free.
func (p *Procedure) PriceOrZero() float64 {
	if p == nil || p.Price == nil {
		return 0
	}
	return *p.Price
}

// ProcedureImage is one picture of a procedure's gallery
type ProcedureImage struct {
	ID          string    `json:"id" db:"id"`
	ProcedureID string    `json:"procedure_id" db:"procedure_id"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	Position    int       `json:"position" db:"position"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ProcedureWithImages is the detail view of a procedure
type ProcedureWithImages struct {
	*Procedure
	Images []*ProcedureImage `json:"images"`
}

// IsAbsoluteURL reports whether an image reference is already a full URL
// rather than a bucket path.
func IsAbsoluteURL(path string) bool {
	return strings.HasPrefix(path, "http")
}
