package adapters

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"foodshare_backend/internal/feature/listing/domain/entity"
	"foodshare_backend/internal/feature/listing/usecase"
)

// listPageSize bounds how many rows a List page loads at once.
const listPageSize = 100

type listingGorm struct {
	db  *gorm.DB
	now func() time.Time
}

var _ usecase.ListingRepository = (*listingGorm)(nil)

func NewListingGorm(db *gorm.DB) *listingGorm {
	return &listingGorm{db: db, now: time.Now}
}

func orderedImages(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

func (r *listingGorm) Create(ctx context.Context, l *entity.Listing) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	m := toModel(l)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *listingGorm) FindByID(ctx context.Context, id string) (*entity.Listing, error) {
	var m ListingModel
	err := r.db.WithContext(ctx).
		Preload("Images", orderedImages).
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrListingNotFound
		}
		return nil, err
	}
	return m.toEntity(), nil
}

// List pages through matches by (created_at, id) keyset so no cursor stays open
// while the caller consumes results. Proximity is prefiltered with a bounding box
// in SQL and refined by great-circle distance here.
func (r *listingGorm) List(ctx context.Context, f entity.Filter) iter.Seq2[*entity.Listing, error] {
	return func(yield func(*entity.Listing, error) bool) {
		var last *ListingModel
		for {
			q := applyFilter(r.db.WithContext(ctx).Model(&ListingModel{}).Preload("Images", orderedImages), f)
			if last != nil {
				q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", last.CreatedAt, last.CreatedAt, last.ID)
			}

			var rows []ListingModel
			if err := q.Order("created_at DESC").Order("id DESC").Limit(listPageSize).Find(&rows).Error; err != nil {
				yield(nil, err)
				return
			}

			for i := range rows {
				l := rows[i].toEntity()
				if f.Near != nil && !f.Matches(l) {
					continue
				}
				if !yield(l, nil) {
					return
				}
			}
			if len(rows) < listPageSize {
				return
			}
			last = &rows[len(rows)-1]
		}
	}
}

func applyFilter(q *gorm.DB, f entity.Filter) *gorm.DB {
	if f.Category != "" {
		q = q.Where("category = ?", string(f.Category))
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.Near != nil {
		box := entity.BoundsAround(*f.Near, f.Radius())
		q = q.Where("lat IS NOT NULL AND lng IS NOT NULL").
			Where("lat BETWEEN ? AND ?", box.MinLat, box.MaxLat)
		if !box.WrapsLng {
			q = q.Where("lng BETWEEN ? AND ?", box.MinLng, box.MaxLng)
		}
	}
	return q
}

func (r *listingGorm) Update(ctx context.Context, id string, expected entity.Status, p entity.Patch) (*entity.Listing, error) {
	updates := map[string]any{"updated_at": r.now().UTC()}
	if p.Category != nil {
		updates["category"] = string(*p.Category)
	}
	if p.Quantity != nil {
		updates["quantity"] = *p.Quantity
	}
	if p.Unit != nil {
		updates["unit"] = string(*p.Unit)
	}
	if p.Description != nil {
		updates["description"] = *p.Description
	}
	if p.Address != nil {
		updates["address"] = *p.Address
	}
	if p.Coordinates != nil {
		updates["lng"] = p.Coordinates.Lng
		updates["lat"] = p.Coordinates.Lat
	}
	if p.Status != nil {
		updates["status"] = string(*p.Status)
	}

	return r.conditionalUpdate(ctx, id, expected, updates)
}

func (r *listingGorm) Transition(ctx context.Context, id string, from, to entity.Status, claimant string) (*entity.Listing, error) {
	updates := map[string]any{
		"status":     string(to),
		"updated_at": r.now().UTC(),
	}
	if claimant != "" {
		updates["claimed_by"] = claimant
	}
	return r.conditionalUpdate(ctx, id, from, updates)
}

// conditionalUpdate writes only while the row is still in status expected.
func (r *listingGorm) conditionalUpdate(ctx context.Context, id string, expected entity.Status, updates map[string]any) (*entity.Listing, error) {
	res := r.db.WithContext(ctx).
		Model(&ListingModel{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, usecase.ErrStatusConflict
	}
	return r.FindByID(ctx, id)
}

func (r *listingGorm) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&ListingModel{}).
		Where("status = ? AND created_at < ?", string(entity.StatusAvailable), cutoff.UTC()).
		Updates(map[string]any{
			"status":     string(entity.StatusExpired),
			"updated_at": r.now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *listingGorm) AddImage(ctx context.Context, id, key string) (*entity.Listing, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&ListingModel{}).Where("id = ?", id).Update("updated_at", r.now().UTC())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return usecase.ErrListingNotFound
		}
		return tx.Create(&ListingImageModel{ListingID: id, ObjectKey: key}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *listingGorm) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", id).Delete(&ListingImageModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&ListingModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return usecase.ErrListingNotFound
		}
		return nil
	})
}
