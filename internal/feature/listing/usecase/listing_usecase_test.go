package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodshare_backend/internal/feature/listing/domain/entity"
	"foodshare_backend/internal/shared/apperr"
	"foodshare_backend/internal/shared/principal"
)

// stepClock は呼び出しごとに1秒進む時計です。
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func user(id string) principal.Principal  { return principal.Principal{UserID: id, Role: principal.RoleUser} }
func admin(id string) principal.Principal { return principal.Principal{UserID: id, Role: principal.RoleAdmin} }
func ptr[T any](v T) *T                   { return &v }

func newTestUsecase(t *testing.T, opts ...Option) (*ListingUsecase, *memoryRepo) {
	t.Helper()
	clock := newStepClock()
	repo := newMemoryRepo(clock.Now)
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewListingUsecase(repo, opts...), repo
}

func mustCreate(t *testing.T, uc *ListingUsecase, owner string, category entity.Category) *entity.Listing {
	t.Helper()
	l, err := uc.Create(context.Background(), user(owner), CreateInput{
		Category: string(category),
		Quantity: ptr(2.0),
		Unit:     "kg",
		Address:  "12 Market Road",
	})
	require.NoError(t, err)
	return l
}

func assertKind(t *testing.T, err error, k apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, k, apperr.KindOf(err), "unexpected error: %v", err)
}

// TestListingLifecycle_Scenario は作成・取得・二重取得・削除の一連の流れを検証します。
func TestListingLifecycle_Scenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uc, _ := newTestUsecase(t)

	l, err := uc.Create(ctx, user("u1"), CreateInput{Category: "prepared-food", Quantity: ptr(5.0), Unit: "portions"})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAvailable, l.Status)
	assert.Equal(t, "u1", l.OwnerID)

	claimed, err := uc.Claim(ctx, user("u2"), l.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusClaimed, claimed.Status)
	assert.Equal(t, "u2", claimed.ClaimedBy)

	_, err = uc.Claim(ctx, user("u3"), l.ID)
	assertKind(t, err, apperr.KindConflict)

	view, err := uc.Get(ctx, l.ID, false)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusClaimed, view.Status)
	assert.Equal(t, "u2", view.ClaimedBy)

	err = uc.Delete(ctx, user("u2"), l.ID)
	assertKind(t, err, apperr.KindForbidden)

	require.NoError(t, uc.Delete(ctx, user("u1"), l.ID))

	_, err = uc.Get(ctx, l.ID, false)
	assertKind(t, err, apperr.KindNotFound)
}

// TestCreate_Validation は不正な入力でValidationErrorとなり、何も保存されないことを検証します。
func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	valid := func() CreateInput {
		return CreateInput{Category: "perishable", Quantity: ptr(1.0), Unit: "kg"}
	}

	tests := []struct {
		name  string
		mod   func(*CreateInput)
		field string
	}{
		{"zero quantity", func(in *CreateInput) { in.Quantity = ptr(0.0) }, "quantity"},
		{"negative quantity", func(in *CreateInput) { in.Quantity = ptr(-3.0) }, "quantity"},
		{"missing quantity", func(in *CreateInput) { in.Quantity = nil }, "quantity"},
		{"missing category", func(in *CreateInput) { in.Category = "" }, "category"},
		{"unknown category", func(in *CreateInput) { in.Category = "frozen" }, "category"},
		{"missing unit", func(in *CreateInput) { in.Unit = "" }, "unit"},
		{"unknown unit", func(in *CreateInput) { in.Unit = "tons" }, "unit"},
		{"long description", func(in *CreateInput) { in.Description = strings.Repeat("é", 501) }, "description"},
		{"latitude out of range", func(in *CreateInput) { in.Coordinates = []float64{10, 95} }, "coordinates"},
		{"single coordinate", func(in *CreateInput) { in.Coordinates = []float64{10} }, "coordinates"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			uc, repo := newTestUsecase(t)

			in := valid()
			tt.mod(&in)
			_, err := uc.Create(context.Background(), user("u1"), in)

			assertKind(t, err, apperr.KindValidation)
			var ae *apperr.Error
			require.True(t, errors.As(err, &ae))
			assert.Contains(t, ae.Fields, tt.field)
			assert.Empty(t, repo.rows)
		})
	}
}

func TestCreate_DescriptionAtLimit(t *testing.T) {
	t.Parallel()
	uc, _ := newTestUsecase(t)

	l, err := uc.Create(context.Background(), user("u1"), CreateInput{
		Category:    "raw-ingredients",
		Quantity:    ptr(0.5),
		Unit:        "liters",
		Description: strings.Repeat("é", 500),
		Coordinates: []float64{77.2, 28.6},
	})
	require.NoError(t, err)
	require.NotNil(t, l.Coordinates)
	assert.Equal(t, 28.6, l.Coordinates.Lat)
}

func TestCreate_StoreFailure(t *testing.T) {
	t.Parallel()
	uc, repo := newTestUsecase(t)
	repo.failOn = "create"

	_, err := uc.Create(context.Background(), user("u1"), CreateInput{Category: "perishable", Quantity: ptr(1.0), Unit: "kg"})
	assertKind(t, err, apperr.KindStore)
}

// TestUpdate_OwnerImmutable は更新後も所有者と作成日時が変わらないことを検証します。
func TestUpdate_OwnerImmutable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uc, repo := newTestUsecase(t)
	l := mustCreate(t, uc, "u1", entity.CategoryPerishable)

	for _, caller := range []principal.Principal{user("u1"), admin("root")} {
		updated, err := uc.Update(ctx, caller, l.ID, UpdateInput{
			Quantity:    ptr(9.0),
			Description: ptr("fresh bread"),
			Category:    ptr("prepared-food"),
		})
		require.NoError(t, err)
		assert.Equal(t, "u1", updated.OwnerID)
		assert.Equal(t, l.CreatedAt, updated.CreatedAt)
		assert.Equal(t, 9.0, updated.Quantity)
		assert.Equal(t, entity.CategoryPreparedFood, updated.Category)
	}
	assert.Equal(t, "u1", repo.get(l.ID).OwnerID)
}

// TestUpdateAndDelete_Forbidden は所有者でも管理者でもない呼び出し元が拒否され、レコードが変更されないことを検証します。
func TestUpdateAndDelete_Forbidden(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uc, repo := newTestUsecase(t)
	l := mustCreate(t, uc, "u1", entity.CategoryPerishable)
	before := repo.get(l.ID)

	_, err := uc.Update(ctx, user("u2"), l.ID, UpdateInput{Quantity: ptr(100.0)})
	assertKind(t, err, apperr.KindForbidden)

	donor := principal.Principal{UserID: "u3", Role: principal.RoleDonor}
	err = uc.Delete(ctx, donor, l.ID)
	assertKind(t, err, apperr.KindForbidden)

	assert.Equal(t, before, repo.get(l.ID))
}

func TestUpdate_NotFound(t *testing.T) {
	t.Parallel()
	uc, _ := newTestUsecase(t)

	_, err := uc.Update(context.Background(), user("u1"), "missing", UpdateInput{Quantity: ptr(1.0)})
	assertKind(t, err, apperr.KindNotFound)

	err = uc.Delete(context.Background(), user("u1"), "")
	assertKind(t, err, apperr.KindNotFound)
}

// TestUpdate_StatusTransitions はステータス更新が遷移グラフに従って検証されることを検証します。
func TestUpdate_StatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		prepare  func(uc *ListingUsecase, id string)
		to       string
		wantKind apperr.Kind
		want     entity.Status
	}{
		{"available to distributed is rejected", nil, "distributed", apperr.KindConflict, entity.StatusAvailable},
		{"available to expired", nil, "expired", apperr.KindUnknown, entity.StatusExpired},
		{"available restated", nil, "available", apperr.KindUnknown, entity.StatusAvailable},
		{"unknown status", nil, "gone", apperr.KindValidation, entity.StatusAvailable},
		{
			name: "claimed back to available is rejected",
			prepare: func(uc *ListingUsecase, id string) {
				_, _ = uc.Claim(context.Background(), user("u2"), id)
			},
			to:       "available",
			wantKind: apperr.KindConflict,
			want:     entity.StatusClaimed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			uc, repo := newTestUsecase(t)
			l := mustCreate(t, uc, "u1", entity.CategoryPerishable)
			if tt.prepare != nil {
				tt.prepare(uc, l.ID)
			}

			_, err := uc.Update(context.Background(), user("u1"), l.ID, UpdateInput{Status: ptr(tt.to)})
			if tt.wantKind == apperr.KindUnknown {
				require.NoError(t, err)
			} else {
				assertKind(t, err, tt.wantKind)
			}
			assert.Equal(t, tt.want, repo.get(l.ID).Status)
		})
	}
}

// racingRepo は読み取り直後に別の取得操作が割り込む状況を再現します。
type racingRepo struct {
	*memoryRepo
	once sync.Once
}

func (r *racingRepo) FindByID(ctx context.Context, id string) (*entity.Listing, error) {
	l, err := r.memoryRepo.FindByID(ctx, id)
	r.once.Do(func() {
		_, _ = r.memoryRepo.Transition(ctx, id, entity.StatusAvailable, entity.StatusClaimed, "sneaky")
	})
	return l, err
}

func TestUpdate_ConcurrentTransitionIsConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newStepClock()
	mem := newMemoryRepo(clock.Now)
	seed := NewListingUsecase(mem, WithClock(clock.Now))
	l := mustCreate(t, seed, "u1", entity.CategoryPerishable)

	uc := NewListingUsecase(&racingRepo{memoryRepo: mem}, WithClock(clock.Now))
	_, err := uc.Update(ctx, user("u1"), l.ID, UpdateInput{Quantity: ptr(3.0)})

	assertKind(t, err, apperr.KindConflict)
	got := mem.get(l.ID)
	assert.Equal(t, 2.0, got.Quantity)
	assert.Equal(t, "sneaky", got.ClaimedBy)
}

// TestClaim_SelfClaimPolicy は所有者による自己取得がポリシーに従うことを検証します。
func TestClaim_SelfClaimPolicy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	strict, repo := newTestUsecase(t)
	l := mustCreate(t, strict, "u1", entity.CategoryPerishable)
	_, err := strict.Claim(ctx, user("u1"), l.ID)
	assertKind(t, err, apperr.KindForbidden)
	assert.Equal(t, entity.StatusAvailable, repo.get(l.ID).Status)

	permissive, _ := newTestUsecase(t, WithAllowSelfClaim(true))
	l2 := mustCreate(t, permissive, "u1", entity.CategoryPerishable)
	claimed, err := permissive.Claim(ctx, user("u1"), l2.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusClaimed, claimed.Status)
}

func TestClaim_NotFoundAndUnauthenticated(t *testing.T) {
	t.Parallel()
	uc, _ := newTestUsecase(t)

	_, err := uc.Claim(context.Background(), user("u2"), "nope")
	assertKind(t, err, apperr.KindNotFound)

	_, err = uc.Claim(context.Background(), principal.Principal{}, "nope")
	assertKind(t, err, apperr.KindUnauthorized)
}

// TestClaim_Concurrent は同時取得で成功が1件のみであることを検証します。
func TestClaim_Concurrent(t *testing.T) {
	t.Parallel()
	uc, repo := newTestUsecase(t)
	l := mustCreate(t, uc, "owner", entity.CategoryPreparedFood)

	const n = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := uc.Claim(context.Background(), user("claimer-"+string(rune('a'+i))), l.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case apperr.IsKind(err, apperr.KindConflict):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, entity.StatusClaimed, repo.get(l.ID).Status)
}

// TestMarkDistributed は受け渡し完了の遷移規則を検証します。
func TestMarkDistributed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uc, repo := newTestUsecase(t)
	l := mustCreate(t, uc, "u1", entity.CategoryPerishable)

	_, err := uc.MarkDistributed(ctx, user("u1"), l.ID)
	assertKind(t, err, apperr.KindConflict)

	_, err = uc.Claim(ctx, user("u2"), l.ID)
	require.NoError(t, err)

	_, err = uc.MarkDistributed(ctx, user("u2"), l.ID)
	assertKind(t, err, apperr.KindForbidden)

	done, err := uc.MarkDistributed(ctx, user("u1"), l.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDistributed, done.Status)
	assert.Equal(t, "u2", done.ClaimedBy)

	_, err = uc.MarkDistributed(ctx, admin("root"), l.ID)
	assertKind(t, err, apperr.KindConflict)
	assert.Equal(t, entity.StatusDistributed, repo.get(l.ID).Status)
}

// TestExpireStale は期限切れ対象が古いavailableのみであることを検証します。
func TestExpireStale(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uc, repo := newTestUsecase(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seed := func(id string, status entity.Status, age time.Duration) {
		repo.rows[id] = &entity.Listing{ID: id, OwnerID: "u1", Status: status, CreatedAt: base.Add(-age)}
	}
	seed("old-available", entity.StatusAvailable, 100*time.Hour)
	seed("old-claimed", entity.StatusClaimed, 100*time.Hour)
	seed("fresh-available", entity.StatusAvailable, time.Hour)

	uc.now = func() time.Time { return base }
	n, err := uc.ExpireStale(ctx, 72*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, int64(1), n)
	assert.Equal(t, entity.StatusExpired, repo.get("old-available").Status)
	assert.Equal(t, entity.StatusClaimed, repo.get("old-claimed").Status)
	assert.Equal(t, entity.StatusAvailable, repo.get("fresh-available").Status)

	_, err = uc.ExpireStale(ctx, 0)
	assertKind(t, err, apperr.KindValidation)
}

func collect(t *testing.T, uc *ListingUsecase, q ListQuery) []ListingView {
	t.Helper()
	seq, err := uc.List(context.Background(), q)
	require.NoError(t, err)
	var out []ListingView
	for v, err := range seq {
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

// TestList_FiltersNewestFirst はカテゴリ・ステータス・近接フィルタと新しい順の並びを検証します。
func TestList_FiltersNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uc, _ := newTestUsecase(t)

	first := mustCreate(t, uc, "u1", entity.CategoryPerishable)
	mustCreate(t, uc, "u1", entity.CategoryPreparedFood)
	third := mustCreate(t, uc, "u2", entity.CategoryPerishable)
	_, err := uc.Claim(ctx, user("u3"), first.ID)
	require.NoError(t, err)

	got := collect(t, uc, ListQuery{Category: "perishable"})
	require.Len(t, got, 2)
	assert.Equal(t, third.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
	for _, v := range got {
		assert.Equal(t, entity.CategoryPerishable, v.Category)
	}

	got = collect(t, uc, ListQuery{Category: "perishable", Status: "available"})
	require.Len(t, got, 1)
	assert.Equal(t, third.ID, got[0].ID)

	assert.Len(t, collect(t, uc, ListQuery{}), 3)
}

func TestList_Proximity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uc, _ := newTestUsecase(t)

	mk := func(lng, lat float64) *entity.Listing {
		l, err := uc.Create(ctx, user("u1"), CreateInput{Category: "perishable", Quantity: ptr(1.0), Unit: "kg", Coordinates: []float64{lng, lat}})
		require.NoError(t, err)
		return l
	}
	near := mk(77.2650, 28.6139)
	mk(78.0081, 27.1767)
	mustCreate(t, uc, "u1", entity.CategoryPerishable)

	got := collect(t, uc, ListQuery{Lat: ptr(28.6139), Lng: ptr(77.2090)})
	require.Len(t, got, 1)
	assert.Equal(t, near.ID, got[0].ID)

	// one coordinate alone imposes no constraint
	assert.Len(t, collect(t, uc, ListQuery{Lat: ptr(28.6139)}), 3)
}

func TestList_InvalidFilter(t *testing.T) {
	t.Parallel()
	uc, _ := newTestUsecase(t)

	tests := []ListQuery{
		{Category: "frozen"},
		{Status: "gone"},
		{Lat: ptr(91.0), Lng: ptr(0.0)},
	}
	for _, q := range tests {
		_, err := uc.List(context.Background(), q)
		assertKind(t, err, apperr.KindValidation)
	}
}

// TestList_OwnerExpansion は所有者情報の展開が所有者ごとに1回だけ解決されることを検証します。
func TestList_OwnerExpansion(t *testing.T) {
	t.Parallel()
	dir := &mockOwnerDirectory{OwnerSummaryFunc: func(_ context.Context, id string) (*entity.OwnerSummary, error) {
		if id == "ghost" {
			return nil, nil
		}
		return &entity.OwnerSummary{ID: id, Name: "Name " + id}, nil
	}}
	uc, _ := newTestUsecase(t, WithOwnerDirectory(dir))

	mustCreate(t, uc, "u1", entity.CategoryPerishable)
	mustCreate(t, uc, "u1", entity.CategoryPerishable)
	mustCreate(t, uc, "ghost", entity.CategoryPerishable)

	got := collect(t, uc, ListQuery{ExpandOwner: true})
	require.Len(t, got, 3)
	assert.Nil(t, got[0].Owner)
	require.NotNil(t, got[1].Owner)
	assert.Equal(t, "Name u1", got[1].Owner.Name)
	assert.Equal(t, 2, dir.calls)

	plain := collect(t, uc, ListQuery{})
	assert.Nil(t, plain[1].Owner)
	assert.Equal(t, 2, dir.calls)

	view, err := uc.Get(context.Background(), got[1].ID, true)
	require.NoError(t, err)
	assert.Equal(t, "u1", view.Owner.ID)
}

func TestList_RestartableAndStopsEarly(t *testing.T) {
	t.Parallel()
	uc, _ := newTestUsecase(t)
	for range 4 {
		mustCreate(t, uc, "u1", entity.CategoryPerishable)
	}

	seq, err := uc.List(context.Background(), ListQuery{})
	require.NoError(t, err)

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	assert.Equal(t, 4, count())
	assert.Equal(t, 4, count())

	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestList_StoreError(t *testing.T) {
	t.Parallel()
	uc, repo := newTestUsecase(t)
	repo.failOn = "list"

	seq, err := uc.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	for _, err := range seq {
		assertKind(t, err, apperr.KindStore)
	}
}

// TestDelete_RemovesImagesAndPublishes は削除時に画像が削除され、イベントが発行されることを検証します。
func TestDelete_RemovesImagesAndPublishes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &mockImageStore{}
	pub := &recordingPublisher{}
	uc, repo := newTestUsecase(t, WithImageStore(store), WithEventPublisher(pub))

	l := mustCreate(t, uc, "u1", entity.CategoryPerishable)
	repo.rows[l.ID].Images = []string{"listings/a.png", "listings/b.png"}

	require.NoError(t, uc.Delete(ctx, admin("root"), l.ID))

	assert.Nil(t, repo.get(l.ID))
	assert.ElementsMatch(t, []string{"listings/a.png", "listings/b.png"}, store.removed)
	assert.Equal(t, []entity.EventType{entity.EventCreated, entity.EventDeleted}, pub.types())
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{err: errors.New("nats down")}
	uc, _ := newTestUsecase(t, WithEventPublisher(pub))

	l := mustCreate(t, uc, "u1", entity.CategoryPerishable)
	_, err := uc.Claim(context.Background(), user("u2"), l.ID)
	require.NoError(t, err)
	assert.Equal(t, []entity.EventType{entity.EventCreated, entity.EventClaimed}, pub.types())
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

// TestAttachImage は画像添付の検証・保存・ラベル付けを検証します。
func TestAttachImage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores png and returns labels", func(t *testing.T) {
		t.Parallel()
		store := &mockImageStore{}
		labeler := &mockLabeler{LabelsFunc: func(context.Context, []byte) ([]string, error) {
			return []string{"Bread", "Baked goods"}, nil
		}}
		uc, repo := newTestUsecase(t, WithImageStore(store), WithImageLabeler(labeler))
		l := mustCreate(t, uc, "u1", entity.CategoryPreparedFood)

		res, err := uc.AttachImage(ctx, user("u1"), l.ID, pngHeader)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(res.Key, "listings/"+l.ID+"/"))
		assert.True(t, strings.HasSuffix(res.Key, ".png"))
		assert.Equal(t, []string{"Bread", "Baked goods"}, res.Labels)
		assert.Equal(t, []string{res.Key}, repo.get(l.ID).Images)
	})

	t.Run("labeler failure is ignored", func(t *testing.T) {
		t.Parallel()
		labeler := &mockLabeler{LabelsFunc: func(context.Context, []byte) ([]string, error) {
			return nil, errors.New("quota")
		}}
		uc, _ := newTestUsecase(t, WithImageStore(&mockImageStore{}), WithImageLabeler(labeler))
		l := mustCreate(t, uc, "u1", entity.CategoryPreparedFood)

		res, err := uc.AttachImage(ctx, user("u1"), l.ID, pngHeader)
		require.NoError(t, err)
		assert.Empty(t, res.Labels)
	})

	t.Run("rejects non images and oversize", func(t *testing.T) {
		t.Parallel()
		uc, _ := newTestUsecase(t, WithImageStore(&mockImageStore{}))
		l := mustCreate(t, uc, "u1", entity.CategoryPreparedFood)

		_, err := uc.AttachImage(ctx, user("u1"), l.ID, []byte("hello, plain text"))
		assertKind(t, err, apperr.KindValidation)

		big := append(append([]byte{}, pngHeader...), make([]byte, MaxImageBytes)...)
		_, err = uc.AttachImage(ctx, user("u1"), l.ID, big)
		assertKind(t, err, apperr.KindValidation)

		_, err = uc.AttachImage(ctx, user("u1"), l.ID, nil)
		assertKind(t, err, apperr.KindValidation)
	})

	t.Run("forbidden for strangers", func(t *testing.T) {
		t.Parallel()
		store := &mockImageStore{}
		uc, _ := newTestUsecase(t, WithImageStore(store))
		l := mustCreate(t, uc, "u1", entity.CategoryPreparedFood)

		_, err := uc.AttachImage(ctx, user("u2"), l.ID, pngHeader)
		assertKind(t, err, apperr.KindForbidden)
		assert.Empty(t, store.puts)
	})

	t.Run("storage disabled", func(t *testing.T) {
		t.Parallel()
		uc, _ := newTestUsecase(t)
		l := mustCreate(t, uc, "u1", entity.CategoryPreparedFood)

		_, err := uc.AttachImage(ctx, user("u1"), l.ID, pngHeader)
		assertKind(t, err, apperr.KindUpstream)
	})

	t.Run("store write failure removes uploaded object", func(t *testing.T) {
		t.Parallel()
		store := &mockImageStore{}
		uc, repo := newTestUsecase(t, WithImageStore(store))
		l := mustCreate(t, uc, "u1", entity.CategoryPreparedFood)
		repo.failOn = "add_image"

		_, err := uc.AttachImage(ctx, user("u1"), l.ID, pngHeader)
		assertKind(t, err, apperr.KindStore)
		require.Len(t, store.puts, 1)
		assert.Equal(t, store.puts, store.removed)
	})
}
