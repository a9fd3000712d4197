package di

import (
	"context"

	authentity "foodshare_backend/internal/feature/auth/domain/entity"
	listingentity "foodshare_backend/internal/feature/listing/domain/entity"
	listingusecase "foodshare_backend/internal/feature/listing/usecase"
)

// activeUserFinder is satisfied by the auth usecase.
type activeUserFinder interface {
	ActiveUser(ctx context.Context, userID string) (*authentity.User, error)
}

// ownerDirectory exposes auth users to the listing feature as owner summaries.
type ownerDirectory struct {
	users activeUserFinder
}

var _ listingusecase.OwnerDirectory = (*ownerDirectory)(nil)

func (d *ownerDirectory) OwnerSummary(ctx context.Context, userID string) (*listingentity.OwnerSummary, error) {
	u, err := d.users.ActiveUser(ctx, userID)
	if err != nil || u == nil {
		return nil, err
	}
	return &listingentity.OwnerSummary{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}, nil
}
