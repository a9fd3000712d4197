// Package dto defines the request and response bodies of the listing endpoints.
package dto

import (
	"time"

	"foodshare_backend/internal/feature/listing/domain/entity"
	"foodshare_backend/internal/feature/listing/usecase"
)

// LocationReq is the nested location form. Flat address/coordinates take precedence.
type LocationReq struct {
	Address     *string   `json:"address"`
	Coordinates []float64 `json:"coordinates"`
}

// CreateListingReq is the body of POST /api/food-waste.
// Owner, status and timestamps are not accepted from clients.
type CreateListingReq struct {
	Category    string       `json:"category"`
	Type        string       `json:"type"`
	Quantity    *float64     `json:"quantity"`
	Unit        string       `json:"unit"`
	Description string       `json:"description"`
	Address     string       `json:"address"`
	Coordinates []float64    `json:"coordinates"`
	Location    *LocationReq `json:"location"`
}

// ToInput resolves the type alias and the nested location.
func (r CreateListingReq) ToInput() usecase.CreateInput {
	in := usecase.CreateInput{
		Category:    r.Category,
		Quantity:    r.Quantity,
		Unit:        r.Unit,
		Description: r.Description,
		Address:     r.Address,
		Coordinates: r.Coordinates,
	}
	if in.Category == "" {
		in.Category = r.Type
	}
	if r.Location != nil {
		if in.Address == "" && r.Location.Address != nil {
			in.Address = *r.Location.Address
		}
		if in.Coordinates == nil {
			in.Coordinates = r.Location.Coordinates
		}
	}
	return in
}

// UpdateListingReq is the body of PUT /api/food-waste/:id. Absent fields are left unchanged.
type UpdateListingReq struct {
	Category    *string      `json:"category"`
	Type        *string      `json:"type"`
	Quantity    *float64     `json:"quantity"`
	Unit        *string      `json:"unit"`
	Description *string      `json:"description"`
	Address     *string      `json:"address"`
	Coordinates []float64    `json:"coordinates"`
	Location    *LocationReq `json:"location"`
	Status      *string      `json:"status"`
}

// ToInput resolves the type alias and the nested location.
func (r UpdateListingReq) ToInput() usecase.UpdateInput {
	in := usecase.UpdateInput{
		Category:    r.Category,
		Quantity:    r.Quantity,
		Unit:        r.Unit,
		Description: r.Description,
		Address:     r.Address,
		Coordinates: r.Coordinates,
		Status:      r.Status,
	}
	if in.Category == nil {
		in.Category = r.Type
	}
	if r.Location != nil {
		if in.Address == nil {
			in.Address = r.Location.Address
		}
		if in.Coordinates == nil {
			in.Coordinates = r.Location.Coordinates
		}
	}
	return in
}

// OwnerRes is the expanded owner.
type OwnerRes struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// ListingRes is the public form of a listing.
type ListingRes struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit"`
	Description string    `json:"description,omitempty"`
	Address     string    `json:"address"`
	Coordinates []float64 `json:"coordinates,omitempty"`
	Status      string    `json:"status"`
	OwnerID     string    `json:"ownerId"`
	ClaimedBy   string    `json:"claimedBy,omitempty"`
	Images      []string  `json:"images"`
	Owner       *OwnerRes `json:"owner,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewListingRes converts a listing and its optional owner.
func NewListingRes(l *entity.Listing, owner *entity.OwnerSummary) ListingRes {
	res := ListingRes{
		ID:          l.ID,
		Category:    string(l.Category),
		Quantity:    l.Quantity,
		Unit:        string(l.Unit),
		Description: l.Description,
		Address:     l.Address,
		Status:      string(l.Status),
		OwnerID:     l.OwnerID,
		ClaimedBy:   l.ClaimedBy,
		Images:      l.Images,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if res.Images == nil {
		res.Images = []string{}
	}
	if l.Coordinates != nil {
		res.Coordinates = l.Coordinates.Pair()
	}
	if owner != nil {
		res.Owner = &OwnerRes{ID: owner.ID, Name: owner.Name, Email: owner.Email, Phone: owner.Phone}
	}
	return res
}

// ImageRes is the body returned after an image upload.
type ImageRes struct {
	Success bool       `json:"success"`
	Data    ListingRes `json:"data"`
	Key     string     `json:"key"`
	Labels  []string   `json:"labels,omitempty"`
}
