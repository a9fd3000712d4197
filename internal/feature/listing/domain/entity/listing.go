// Package entity defines the domain models for the listing feature.
package entity

import (
	"fmt"
	"time"
)

// Category classifies the donated food.
type Category string

const (
	CategoryPerishable     Category = "perishable"
	CategoryNonPerishable  Category = "non-perishable"
	CategoryPreparedFood   Category = "prepared-food"
	CategoryRawIngredients Category = "raw-ingredients"
)

// Categories lists every accepted category.
var Categories = []Category{CategoryPerishable, CategoryNonPerishable, CategoryPreparedFood, CategoryRawIngredients}

func (c Category) Valid() bool {
	switch c {
	case CategoryPerishable, CategoryNonPerishable, CategoryPreparedFood, CategoryRawIngredients:
		return true
	}
	return false
}

// Unit is the measure of Quantity.
type Unit string

const (
	UnitKg       Unit = "kg"
	UnitLiters   Unit = "liters"
	UnitPortions Unit = "portions"
	UnitUnits    Unit = "units"
)

func (u Unit) Valid() bool {
	switch u {
	case UnitKg, UnitLiters, UnitPortions, UnitUnits:
		return true
	}
	return false
}

// MaxDescriptionLength is measured in characters, not bytes.
const MaxDescriptionLength = 500

// Coordinates is a WGS84 point. Stored and transmitted as [longitude, latitude].
type Coordinates struct {
	Lng float64
	Lat float64
}

// Valid reports whether both components are in range.
func (c Coordinates) Valid() bool {
	return c.Lng >= -180 && c.Lng <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// Pair returns the [longitude, latitude] form.
func (c Coordinates) Pair() []float64 {
	return []float64{c.Lng, c.Lat}
}

// CoordinatesFromPair parses a [longitude, latitude] pair.
func CoordinatesFromPair(p []float64) (*Coordinates, error) {
	if len(p) != 2 {
		return nil, fmt.Errorf("coordinates must be [longitude, latitude], got %d values", len(p))
	}
	c := &Coordinates{Lng: p[0], Lat: p[1]}
	if !c.Valid() {
		return nil, fmt.Errorf("coordinates out of range")
	}
	return c, nil
}

// Listing is a surplus-food donation offered by its owner.
type Listing struct {
	ID          string
	OwnerID     string // set once at creation
	Category    Category
	Quantity    float64
	Unit        Unit
	Description string
	Address     string
	Coordinates *Coordinates // nil when not geolocated
	Status      Status
	ClaimedBy   string // user id of the claimant, empty until claimed
	Images      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnerSummary is the public view of a listing's owner.
type OwnerSummary struct {
	ID    string
	Name  string
	Email string
	Phone string
}
