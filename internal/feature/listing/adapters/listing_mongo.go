package adapters

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"foodshare_backend/internal/feature/listing/domain/entity"
	"foodshare_backend/internal/feature/listing/usecase"
)

// earthRadiusMeters converts a radius to the radians $centerSphere expects.
const earthRadiusMeters = 6378100.0

type listingDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Type        string             `bson:"type"`
	Quantity    float64            `bson:"quantity"`
	Unit        string             `bson:"unit"`
	Donor       string             `bson:"donor"`
	Location    locationDoc        `bson:"location"`
	Status      string             `bson:"status"`
	Description string             `bson:"description,omitempty"`
	Images      []string           `bson:"images"`
	ClaimedBy   string             `bson:"claimedBy,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type locationDoc struct {
	Address string `bson:"address"`
	// Coordinates is [longitude, latitude].
	Coordinates []float64 `bson:"coordinates,omitempty"`
}

// ListingMongo stores listings in the "foodwastes" collection.
type ListingMongo struct {
	col *mongo.Collection
	now func() time.Time
}

var _ usecase.ListingRepository = (*ListingMongo)(nil)

func NewListingMongo(db *mongo.Database) *ListingMongo {
	return &ListingMongo{col: db.Collection("foodwastes"), now: time.Now}
}

// EnsureIndexes creates the query and geospatial indexes.
func (s *ListingMongo) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "location.coordinates", Value: "2dsphere"}}},
	})
	if err != nil {
		return fmt.Errorf("mongo listing indexes: %w", err)
	}
	return nil
}

func toDoc(l *entity.Listing) listingDoc {
	d := listingDoc{
		Type:        string(l.Category),
		Quantity:    l.Quantity,
		Unit:        string(l.Unit),
		Donor:       l.OwnerID,
		Location:    locationDoc{Address: l.Address},
		Status:      string(l.Status),
		Description: l.Description,
		Images:      l.Images,
		ClaimedBy:   l.ClaimedBy,
		CreatedAt:   l.CreatedAt.UTC(),
		UpdatedAt:   l.UpdatedAt.UTC(),
	}
	if d.Images == nil {
		d.Images = []string{}
	}
	if l.Coordinates != nil {
		d.Location.Coordinates = l.Coordinates.Pair()
	}
	return d
}

func (d *listingDoc) toEntity() *entity.Listing {
	l := &entity.Listing{
		ID:          d.ID.Hex(),
		OwnerID:     d.Donor,
		Category:    entity.Category(d.Type),
		Quantity:    d.Quantity,
		Unit:        entity.Unit(d.Unit),
		Description: d.Description,
		Address:     d.Location.Address,
		Status:      entity.Status(d.Status),
		ClaimedBy:   d.ClaimedBy,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if len(d.Images) > 0 {
		l.Images = d.Images
	}
	if len(d.Location.Coordinates) == 2 {
		l.Coordinates = &entity.Coordinates{Lng: d.Location.Coordinates[0], Lat: d.Location.Coordinates[1]}
	}
	return l
}

// listingFilter translates a Filter into a query document.
func listingFilter(f entity.Filter) bson.M {
	q := bson.M{}
	if f.Category != "" {
		q["type"] = string(f.Category)
	}
	if f.Status != "" {
		q["status"] = string(f.Status)
	}
	if f.Near != nil {
		q["location.coordinates"] = bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{
					bson.A{f.Near.Lng, f.Near.Lat},
					f.Radius() / earthRadiusMeters,
				},
			},
		}
	}
	return q
}

func (s *ListingMongo) Create(ctx context.Context, l *entity.Listing) error {
	res, err := s.col.InsertOne(ctx, toDoc(l))
	if err != nil {
		return fmt.Errorf("mongo insert: %w", err)
	}
	oid := res.InsertedID.(primitive.ObjectID)
	l.ID = oid.Hex()
	return nil
}

func (s *ListingMongo) FindByID(ctx context.Context, id string) (*entity.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, usecase.ErrListingNotFound
	}
	var d listingDoc
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, usecase.ErrListingNotFound
		}
		return nil, err
	}
	return d.toEntity(), nil
}

func (s *ListingMongo) List(ctx context.Context, f entity.Filter) iter.Seq2[*entity.Listing, error] {
	return func(yield func(*entity.Listing, error) bool) {
		opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
		cur, err := s.col.Find(ctx, listingFilter(f), opts)
		if err != nil {
			yield(nil, err)
			return
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var d listingDoc
			if err := cur.Decode(&d); err != nil {
				yield(nil, err)
				return
			}
			if !yield(d.toEntity(), nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(nil, err)
		}
	}
}

func patchSet(p entity.Patch) bson.M {
	set := bson.M{}
	if p.Category != nil {
		set["type"] = string(*p.Category)
	}
	if p.Quantity != nil {
		set["quantity"] = *p.Quantity
	}
	if p.Unit != nil {
		set["unit"] = string(*p.Unit)
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Address != nil {
		set["location.address"] = *p.Address
	}
	if p.Coordinates != nil {
		set["location.coordinates"] = p.Coordinates.Pair()
	}
	if p.Status != nil {
		set["status"] = string(*p.Status)
	}
	return set
}

func (s *ListingMongo) Update(ctx context.Context, id string, expected entity.Status, p entity.Patch) (*entity.Listing, error) {
	return s.conditionalUpdate(ctx, id, expected, patchSet(p))
}

func (s *ListingMongo) Transition(ctx context.Context, id string, from, to entity.Status, claimant string) (*entity.Listing, error) {
	set := bson.M{"status": string(to)}
	if claimant != "" {
		set["claimedBy"] = claimant
	}
	return s.conditionalUpdate(ctx, id, from, set)
}

// conditionalUpdate applies set only while the document is still in status expected.
func (s *ListingMongo) conditionalUpdate(ctx context.Context, id string, expected entity.Status, set bson.M) (*entity.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, usecase.ErrListingNotFound
	}
	set["updatedAt"] = s.now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d listingDoc
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "status": string(expected)},
		bson.M{"$set": set},
		opts,
	).Decode(&d)
	if err == nil {
		return d.toEntity(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	n, err := s.col.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, usecase.ErrListingNotFound
	}
	return nil, usecase.ErrStatusConflict
}

func (s *ListingMongo) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.col.UpdateMany(ctx,
		bson.M{"status": string(entity.StatusAvailable), "createdAt": bson.M{"$lt": cutoff.UTC()}},
		bson.M{"$set": bson.M{"status": string(entity.StatusExpired), "updatedAt": s.now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *ListingMongo) AddImage(ctx context.Context, id, key string) (*entity.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, usecase.ErrListingNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d listingDoc
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"images": key}, "$set": bson.M{"updatedAt": s.now().UTC()}},
		opts,
	).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, usecase.ErrListingNotFound
		}
		return nil, err
	}
	return d.toEntity(), nil
}

func (s *ListingMongo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return usecase.ErrListingNotFound
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return usecase.ErrListingNotFound
	}
	return nil
}
