package entity

import "time"

// DefaultRadiusMeters is the proximity radius used by list queries.
const DefaultRadiusMeters = 10000.0

// Filter selects listings. Zero-valued fields impose no constraint.
type Filter struct {
	Category Category
	Status   Status
	// Near restricts results to RadiusMeters around the point.
	Near         *Coordinates
	RadiusMeters float64
}

// Matches applies the filter to a single listing in memory.
func (f Filter) Matches(l *Listing) bool {
	if f.Category != "" && l.Category != f.Category {
		return false
	}
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.Near != nil {
		if l.Coordinates == nil {
			return false
		}
		if DistanceMeters(*f.Near, *l.Coordinates) > f.Radius() {
			return false
		}
	}
	return true
}

// Radius returns RadiusMeters or the default.
func (f Filter) Radius() float64 {
	if f.RadiusMeters > 0 {
		return f.RadiusMeters
	}
	return DefaultRadiusMeters
}

// Patch carries the mutable fields of an update. Nil fields are left untouched.
// Owner and creation time are intentionally absent.
type Patch struct {
	Category    *Category
	Quantity    *float64
	Unit        *Unit
	Description *string
	Address     *string
	Coordinates *Coordinates
	Status      *Status
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Category == nil && p.Quantity == nil && p.Unit == nil && p.Description == nil &&
		p.Address == nil && p.Coordinates == nil && p.Status == nil
}

// Apply copies the set fields onto l.
func (p Patch) Apply(l *Listing, now time.Time) {
	if p.Category != nil {
		l.Category = *p.Category
	}
	if p.Quantity != nil {
		l.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		l.Unit = *p.Unit
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Address != nil {
		l.Address = *p.Address
	}
	if p.Coordinates != nil {
		c := *p.Coordinates
		l.Coordinates = &c
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	l.UpdatedAt = now
}
