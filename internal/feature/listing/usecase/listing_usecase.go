package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"foodshare_backend/internal/feature/listing/domain/entity"
	"foodshare_backend/internal/shared/apperr"
	"foodshare_backend/internal/shared/principal"
)

// CreateInput holds the caller-supplied fields of a new listing.
type CreateInput struct {
	Category    string
	Quantity    *float64
	Unit        string
	Description string
	Address     string
	Coordinates []float64
}

// UpdateInput holds the fields of an update. Nil fields are left untouched.
type UpdateInput struct {
	Category    *string
	Quantity    *float64
	Unit        *string
	Description *string
	Address     *string
	Coordinates []float64
	Status      *string
}

// ListQuery holds list filters as received from the caller.
// Proximity applies only when both Lat and Lng are set.
type ListQuery struct {
	Category    string
	Status      string
	Lat         *float64
	Lng         *float64
	ExpandOwner bool
}

// ListingView is a listing with its optional owner summary.
type ListingView struct {
	*entity.Listing
	Owner *entity.OwnerSummary
}

// Option configures a ListingUsecase.
type Option func(*ListingUsecase)

// WithOwnerDirectory enables owner expansion.
func WithOwnerDirectory(d OwnerDirectory) Option {
	return func(u *ListingUsecase) { u.owners = d }
}

// WithImageStore enables image uploads.
func WithImageStore(s ImageStore) Option {
	return func(u *ListingUsecase) { u.images = s }
}

// WithImageLabeler enables label detection on uploaded images.
func WithImageLabeler(l ImageLabeler) Option {
	return func(u *ListingUsecase) { u.labeler = l }
}

// WithEventPublisher enables lifecycle events.
func WithEventPublisher(p EventPublisher) Option {
	return func(u *ListingUsecase) { u.events = p }
}

// WithAllowSelfClaim lets owners claim their own listings.
func WithAllowSelfClaim(allow bool) Option {
	return func(u *ListingUsecase) { u.allowSelfClaim = allow }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(u *ListingUsecase) { u.now = now }
}

// ListingUsecase manages listing ownership and status transitions.
type ListingUsecase struct {
	repo           ListingRepository
	owners         OwnerDirectory
	images         ImageStore
	labeler        ImageLabeler
	events         EventPublisher
	allowSelfClaim bool
	now            func() time.Time
}

// NewListingUsecase creates a ListingUsecase backed by repo.
func NewListingUsecase(repo ListingRepository, opts ...Option) *ListingUsecase {
	u := &ListingUsecase{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Create stores a new available listing owned by the caller.
func (u *ListingUsecase) Create(ctx context.Context, caller principal.Principal, in CreateInput) (*entity.Listing, error) {
	if caller.UserID == "" {
		return nil, apperr.Unauthorized("not authorized")
	}

	fields := map[string]string{}
	l := &entity.Listing{
		OwnerID:     caller.UserID,
		Status:      entity.StatusAvailable,
		Description: in.Description,
		Address:     strings.TrimSpace(in.Address),
	}

	if in.Category == "" {
		fields["category"] = "is required"
	} else if c := entity.Category(in.Category); !c.Valid() {
		fields["category"] = "must be one of: " + joinCategories()
	} else {
		l.Category = c
	}
	if in.Quantity == nil {
		fields["quantity"] = "is required"
	} else if *in.Quantity <= 0 {
		fields["quantity"] = "must be greater than 0"
	} else {
		l.Quantity = *in.Quantity
	}
	if in.Unit == "" {
		fields["unit"] = "is required"
	} else if un := entity.Unit(in.Unit); !un.Valid() {
		fields["unit"] = "must be one of: kg liters portions units"
	} else {
		l.Unit = un
	}
	if utf8.RuneCountInString(in.Description) > entity.MaxDescriptionLength {
		fields["description"] = fmt.Sprintf("must be at most %d characters", entity.MaxDescriptionLength)
	}
	if in.Coordinates != nil {
		c, err := entity.CoordinatesFromPair(in.Coordinates)
		if err != nil {
			fields["coordinates"] = err.Error()
		} else {
			l.Coordinates = c
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid listing", fields)
	}

	now := u.now()
	l.CreatedAt, l.UpdatedAt = now, now
	if err := u.repo.Create(ctx, l); err != nil {
		return nil, apperr.Store(err)
	}

	u.publish(ctx, entity.Event{Type: entity.EventCreated, ListingID: l.ID, OwnerID: l.OwnerID, ActorID: caller.UserID, Status: l.Status})
	return l, nil
}

// Update applies the supplied fields. Owner and creation time cannot be changed.
// A status change must follow the lifecycle graph and is written only if no other
// transition happened since the listing was read.
func (u *ListingUsecase) Update(ctx context.Context, caller principal.Principal, id string, in UpdateInput) (*entity.Listing, error) {
	current, err := u.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanManage(current.OwnerID) {
		return nil, apperr.Forbidden("not authorized to update this listing")
	}

	patch, err := toPatch(in)
	if err != nil {
		return nil, err
	}
	if patch.Status != nil && !current.Status.CanTransitionTo(*patch.Status) {
		return nil, apperr.Conflict(fmt.Sprintf("cannot change status from %s to %s", current.Status, *patch.Status))
	}

	updated, err := u.repo.Update(ctx, id, current.Status, patch)
	if err != nil {
		return nil, u.mapStoreErr(err)
	}

	u.publish(ctx, entity.Event{Type: entity.EventUpdated, ListingID: id, OwnerID: updated.OwnerID, ActorID: caller.UserID, Status: updated.Status})
	return updated, nil
}

// Claim moves an available listing to claimed and records the caller as claimant.
// Only one of several concurrent claims can succeed; the rest get a conflict.
func (u *ListingUsecase) Claim(ctx context.Context, caller principal.Principal, id string) (*entity.Listing, error) {
	if caller.UserID == "" {
		return nil, apperr.Unauthorized("not authorized")
	}
	current, err := u.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.OwnerID == caller.UserID && !u.allowSelfClaim {
		return nil, apperr.Forbidden("cannot claim your own listing")
	}
	if current.Status != entity.StatusAvailable {
		return nil, apperr.Conflict("listing is not available to claim")
	}

	claimed, err := u.repo.Transition(ctx, id, entity.StatusAvailable, entity.StatusClaimed, caller.UserID)
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, apperr.Conflict("listing is not available to claim")
		}
		return nil, u.mapStoreErr(err)
	}

	u.publish(ctx, entity.Event{Type: entity.EventClaimed, ListingID: id, OwnerID: claimed.OwnerID, ActorID: caller.UserID, Status: claimed.Status})
	return claimed, nil
}

// MarkDistributed records that a claimed listing has been handed over.
func (u *ListingUsecase) MarkDistributed(ctx context.Context, caller principal.Principal, id string) (*entity.Listing, error) {
	current, err := u.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanManage(current.OwnerID) {
		return nil, apperr.Forbidden("not authorized to update this listing")
	}
	if current.Status != entity.StatusClaimed {
		return nil, apperr.Conflict("listing is not claimed")
	}

	done, err := u.repo.Transition(ctx, id, entity.StatusClaimed, entity.StatusDistributed, "")
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, apperr.Conflict("listing is not claimed")
		}
		return nil, u.mapStoreErr(err)
	}

	u.publish(ctx, entity.Event{Type: entity.EventDistributed, ListingID: id, OwnerID: done.OwnerID, ActorID: caller.UserID, Status: done.Status})
	return done, nil
}

// ExpireStale expires every available listing created more than olderThan ago.
func (u *ListingUsecase) ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, apperr.Validation("invalid expiry age", map[string]string{"older_than": "must be greater than 0"})
	}
	cutoff := u.now().Add(-olderThan)

	n, err := u.repo.ExpireBefore(ctx, cutoff)
	if err != nil {
		return 0, apperr.Store(err)
	}
	if n > 0 {
		slog.Info("listings expired", "count", n, "cutoff", cutoff)
		u.publish(ctx, entity.Event{Type: entity.EventExpired, Status: entity.StatusExpired, Count: n})
	}
	return n, nil
}

// Delete removes the listing and, best effort, its stored images.
func (u *ListingUsecase) Delete(ctx context.Context, caller principal.Principal, id string) error {
	current, err := u.find(ctx, id)
	if err != nil {
		return err
	}
	if !caller.CanManage(current.OwnerID) {
		return apperr.Forbidden("not authorized to delete this listing")
	}

	if err := u.repo.Delete(ctx, id); err != nil {
		return u.mapStoreErr(err)
	}

	if u.images != nil {
		for _, key := range current.Images {
			if err := u.images.Remove(ctx, key); err != nil {
				slog.Warn("failed to remove listing image", "listing_id", id, "key", key, "error", err)
			}
		}
	}

	u.publish(ctx, entity.Event{Type: entity.EventDeleted, ListingID: id, OwnerID: current.OwnerID, ActorID: caller.UserID})
	return nil
}

// Get returns one listing, optionally with its owner summary.
func (u *ListingUsecase) Get(ctx context.Context, id string, expandOwner bool) (ListingView, error) {
	l, err := u.find(ctx, id)
	if err != nil {
		return ListingView{}, err
	}
	view := ListingView{Listing: l}
	if expandOwner && u.owners != nil {
		owner, err := u.owners.OwnerSummary(ctx, l.OwnerID)
		if err != nil {
			return ListingView{}, apperr.Store(err)
		}
		view.Owner = owner
	}
	return view, nil
}

// List validates q and returns a lazy sequence of matching listings, newest first.
// Each range over the result runs the query again.
func (u *ListingUsecase) List(ctx context.Context, q ListQuery) (iter.Seq2[ListingView, error], error) {
	f, err := toFilter(q)
	if err != nil {
		return nil, err
	}
	expand := q.ExpandOwner && u.owners != nil

	return func(yield func(ListingView, error) bool) {
		owners := map[string]*entity.OwnerSummary{}
		for l, err := range u.repo.List(ctx, f) {
			if err != nil {
				yield(ListingView{}, apperr.Store(err))
				return
			}
			view := ListingView{Listing: l}
			if expand {
				owner, seen := owners[l.OwnerID]
				if !seen {
					owner, err = u.owners.OwnerSummary(ctx, l.OwnerID)
					if err != nil {
						yield(ListingView{}, apperr.Store(err))
						return
					}
					owners[l.OwnerID] = owner
				}
				view.Owner = owner
			}
			if !yield(view, nil) {
				return
			}
		}
	}, nil
}

func (u *ListingUsecase) find(ctx context.Context, id string) (*entity.Listing, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.NotFound("listing not found")
	}
	l, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, u.mapStoreErr(err)
	}
	return l, nil
}

func (u *ListingUsecase) mapStoreErr(err error) error {
	switch {
	case errors.Is(err, ErrListingNotFound):
		return apperr.NotFound("listing not found")
	case errors.Is(err, ErrStatusConflict):
		return apperr.Conflict("listing was modified concurrently")
	default:
		return apperr.Store(err)
	}
}

// publish never fails the operation; the change is already committed.
func (u *ListingUsecase) publish(ctx context.Context, ev entity.Event) {
	if u.events == nil {
		return
	}
	ev.OccurredAt = u.now()
	if err := u.events.Publish(ctx, ev); err != nil {
		slog.Warn("failed to publish listing event", "type", ev.Type, "listing_id", ev.ListingID, "error", err)
	}
}

func toPatch(in UpdateInput) (entity.Patch, error) {
	var p entity.Patch
	fields := map[string]string{}

	if in.Category != nil {
		c := entity.Category(*in.Category)
		if !c.Valid() {
			fields["category"] = "must be one of: " + joinCategories()
		}
		p.Category = &c
	}
	if in.Quantity != nil {
		if *in.Quantity <= 0 {
			fields["quantity"] = "must be greater than 0"
		}
		p.Quantity = in.Quantity
	}
	if in.Unit != nil {
		un := entity.Unit(*in.Unit)
		if !un.Valid() {
			fields["unit"] = "must be one of: kg liters portions units"
		}
		p.Unit = &un
	}
	if in.Description != nil {
		if utf8.RuneCountInString(*in.Description) > entity.MaxDescriptionLength {
			fields["description"] = fmt.Sprintf("must be at most %d characters", entity.MaxDescriptionLength)
		}
		p.Description = in.Description
	}
	if in.Address != nil {
		a := strings.TrimSpace(*in.Address)
		p.Address = &a
	}
	if in.Coordinates != nil {
		c, err := entity.CoordinatesFromPair(in.Coordinates)
		if err != nil {
			fields["coordinates"] = err.Error()
		}
		p.Coordinates = c
	}
	if in.Status != nil {
		s := entity.Status(*in.Status)
		if !s.Valid() {
			fields["status"] = "must be one of: available claimed distributed expired"
		}
		p.Status = &s
	}

	if len(fields) > 0 {
		return entity.Patch{}, apperr.Validation("invalid listing", fields)
	}
	return p, nil
}

func toFilter(q ListQuery) (entity.Filter, error) {
	var f entity.Filter
	fields := map[string]string{}

	if q.Category != "" {
		f.Category = entity.Category(q.Category)
		if !f.Category.Valid() {
			fields["category"] = "must be one of: " + joinCategories()
		}
	}
	if q.Status != "" {
		f.Status = entity.Status(q.Status)
		if !f.Status.Valid() {
			fields["status"] = "must be one of: available claimed distributed expired"
		}
	}
	if q.Lat != nil && q.Lng != nil {
		c := entity.Coordinates{Lng: *q.Lng, Lat: *q.Lat}
		if !c.Valid() {
			fields["coordinates"] = "coordinates out of range"
		}
		f.Near = &c
		f.RadiusMeters = entity.DefaultRadiusMeters
	}

	if len(fields) > 0 {
		return entity.Filter{}, apperr.Validation("invalid filter", fields)
	}
	return f, nil
}

func joinCategories() string {
	names := make([]string, len(entity.Categories))
	for i, c := range entity.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, " ")
}
