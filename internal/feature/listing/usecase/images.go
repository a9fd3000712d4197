package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"foodshare_backend/internal/feature/listing/domain/entity"
	"foodshare_backend/internal/shared/apperr"
	"foodshare_backend/internal/shared/principal"
)

// MaxImageBytes is the upload limit for a single listing image.
const MaxImageBytes = 5 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ImageResult is the outcome of AttachImage.
type ImageResult struct {
	Listing *entity.Listing
	Key     string
	// Labels is empty when label detection is disabled or failed.
	Labels []string
}

// AttachImage stores an image for the listing and appends its key.
// The content type is sniffed from the data, not taken from the client.
func (u *ListingUsecase) AttachImage(ctx context.Context, caller principal.Principal, id string, data []byte) (*ImageResult, error) {
	if u.images == nil {
		return nil, apperr.Upstream("image storage is not configured", nil)
	}

	current, err := u.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanManage(current.OwnerID) {
		return nil, apperr.Forbidden("not authorized to update this listing")
	}

	if len(data) == 0 {
		return nil, apperr.Validation("invalid image", map[string]string{"image": "is required"})
	}
	if len(data) > MaxImageBytes {
		return nil, apperr.Validation("invalid image", map[string]string{"image": fmt.Sprintf("must be at most %d bytes", MaxImageBytes)})
	}
	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, apperr.Validation("invalid image", map[string]string{"image": "must be a jpeg, png or webp image"})
	}

	key := fmt.Sprintf("listings/%s/%s%s", id, uuid.NewString(), ext)
	if err := u.images.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, apperr.Upstream("failed to store image", err)
	}

	updated, err := u.repo.AddImage(ctx, id, key)
	if err != nil {
		if rmErr := u.images.Remove(ctx, key); rmErr != nil {
			slog.Warn("failed to remove orphaned image", "key", key, "error", rmErr)
		}
		return nil, u.mapStoreErr(err)
	}

	res := &ImageResult{Listing: updated, Key: key}
	if u.labeler != nil {
		labels, err := u.labeler.Labels(ctx, data)
		if err != nil {
			slog.Warn("image label detection failed", "listing_id", id, "error", err)
		} else {
			res.Labels = labels
		}
	}

	u.publish(ctx, entity.Event{Type: entity.EventUpdated, ListingID: id, OwnerID: updated.OwnerID, ActorID: caller.UserID, Status: updated.Status})
	return res, nil
}
