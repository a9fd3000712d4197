// Package adapters provides the persistence and third-party implementations for the listing feature.
package adapters

import (
	"time"

	"gorm.io/gorm"

	"foodshare_backend/internal/feature/listing/domain/entity"
)

type ListingModel struct {
	ID          string  `gorm:"primaryKey;size:36"`
	OwnerID     string  `gorm:"size:64;not null;index"`
	Category    string  `gorm:"size:32;not null;index:idx_listings_category_status,priority:1"`
	Quantity    float64 `gorm:"not null"`
	Unit        string  `gorm:"size:16;not null"`
	Description string  `gorm:"size:2000"`
	Address     string  `gorm:"size:255"`
	// Lng and Lat are both set or both nil.
	Lng       *float64
	Lat       *float64 `gorm:"index"`
	Status    string   `gorm:"size:16;not null;index:idx_listings_category_status,priority:2"`
	ClaimedBy string   `gorm:"size:64"`
	Images    []ListingImageModel `gorm:"foreignKey:ListingID"`
	CreatedAt time.Time           `gorm:"not null;index"`
	UpdatedAt time.Time
}

func (ListingModel) TableName() string {
	return "listings"
}

// ListingImageModel keeps image keys in their own table so appends are single inserts.
type ListingImageModel struct {
	ID        uint   `gorm:"primaryKey"`
	ListingID string `gorm:"size:36;not null;index"`
	ObjectKey string `gorm:"size:512;not null"`
	CreatedAt time.Time
}

func (ListingImageModel) TableName() string {
	return "listing_images"
}

// AutoMigrate creates or updates the listing tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ListingModel{}, &ListingImageModel{})
}

func toModel(l *entity.Listing) ListingModel {
	m := ListingModel{
		ID:          l.ID,
		OwnerID:     l.OwnerID,
		Category:    string(l.Category),
		Quantity:    l.Quantity,
		Unit:        string(l.Unit),
		Description: l.Description,
		Address:     l.Address,
		Status:      string(l.Status),
		ClaimedBy:   l.ClaimedBy,
		CreatedAt:   l.CreatedAt.UTC(),
		UpdatedAt:   l.UpdatedAt.UTC(),
	}
	if l.Coordinates != nil {
		lng, lat := l.Coordinates.Lng, l.Coordinates.Lat
		m.Lng, m.Lat = &lng, &lat
	}
	for _, key := range l.Images {
		m.Images = append(m.Images, ListingImageModel{ListingID: l.ID, ObjectKey: key})
	}
	return m
}

func (m *ListingModel) toEntity() *entity.Listing {
	l := &entity.Listing{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Category:    entity.Category(m.Category),
		Quantity:    m.Quantity,
		Unit:        entity.Unit(m.Unit),
		Description: m.Description,
		Address:     m.Address,
		Status:      entity.Status(m.Status),
		ClaimedBy:   m.ClaimedBy,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Lng != nil && m.Lat != nil {
		l.Coordinates = &entity.Coordinates{Lng: *m.Lng, Lat: *m.Lat}
	}
	if len(m.Images) > 0 {
		l.Images = make([]string, 0, len(m.Images))
		for _, img := range m.Images {
			l.Images = append(l.Images, img.ObjectKey)
		}
	}
	return l
}
