package usecase

import (
	"context"
	"fmt"
	"io"
	"iter"
	"slices"
	"sync"
	"time"

	"foodshare_backend/internal/feature/listing/domain/entity"
)

// memoryRepo はテスト用の条件付き書き込みを再現するインメモリ実装です。
type memoryRepo struct {
	mu     sync.Mutex
	seq    int
	rows   map[string]*entity.Listing
	now    func() time.Time
	failOn string
}

func newMemoryRepo(now func() time.Time) *memoryRepo {
	return &memoryRepo{rows: map[string]*entity.Listing{}, now: now}
}

func clone(l *entity.Listing) *entity.Listing {
	c := *l
	c.Images = slices.Clone(l.Images)
	if l.Coordinates != nil {
		co := *l.Coordinates
		c.Coordinates = &co
	}
	return &c
}

func (r *memoryRepo) fail(op string) error {
	if r.failOn == op {
		return fmt.Errorf("%s: connection reset", op)
	}
	return nil
}

func (r *memoryRepo) Create(_ context.Context, l *entity.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("create"); err != nil {
		return err
	}
	r.seq++
	l.ID = fmt.Sprintf("l%d", r.seq)
	r.rows[l.ID] = clone(l)
	return nil
}

func (r *memoryRepo) FindByID(_ context.Context, id string) (*entity.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("find"); err != nil {
		return nil, err
	}
	l, ok := r.rows[id]
	if !ok {
		return nil, ErrListingNotFound
	}
	return clone(l), nil
}

func (r *memoryRepo) List(_ context.Context, f entity.Filter) iter.Seq2[*entity.Listing, error] {
	return func(yield func(*entity.Listing, error) bool) {
		r.mu.Lock()
		if err := r.fail("list"); err != nil {
			r.mu.Unlock()
			yield(nil, err)
			return
		}
		var out []*entity.Listing
		for _, l := range r.rows {
			if f.Matches(l) {
				out = append(out, clone(l))
			}
		}
		r.mu.Unlock()
		slices.SortFunc(out, func(a, b *entity.Listing) int { return b.CreatedAt.Compare(a.CreatedAt) })
		for _, l := range out {
			if !yield(l, nil) {
				return
			}
		}
	}
}

func (r *memoryRepo) Update(_ context.Context, id string, expected entity.Status, p entity.Patch) (*entity.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.rows[id]
	if !ok {
		return nil, ErrListingNotFound
	}
	if l.Status != expected {
		return nil, ErrStatusConflict
	}
	p.Apply(l, r.now())
	return clone(l), nil
}

func (r *memoryRepo) Transition(_ context.Context, id string, from, to entity.Status, claimant string) (*entity.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.rows[id]
	if !ok {
		return nil, ErrListingNotFound
	}
	if l.Status != from {
		return nil, ErrStatusConflict
	}
	l.Status = to
	if claimant != "" {
		l.ClaimedBy = claimant
	}
	l.UpdatedAt = r.now()
	return clone(l), nil
}

func (r *memoryRepo) ExpireBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.rows {
		if l.Status == entity.StatusAvailable && l.CreatedAt.Before(cutoff) {
			l.Status = entity.StatusExpired
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) AddImage(_ context.Context, id, key string) (*entity.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("add_image"); err != nil {
		return nil, err
	}
	l, ok := r.rows[id]
	if !ok {
		return nil, ErrListingNotFound
	}
	l.Images = append(l.Images, key)
	return clone(l), nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrListingNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memoryRepo) get(id string) *entity.Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.rows[id]; ok {
		return clone(l)
	}
	return nil
}

type mockOwnerDirectory struct {
	OwnerSummaryFunc func(ctx context.Context, userID string) (*entity.OwnerSummary, error)
	calls            int
}

func (m *mockOwnerDirectory) OwnerSummary(ctx context.Context, userID string) (*entity.OwnerSummary, error) {
	m.calls++
	return m.OwnerSummaryFunc(ctx, userID)
}

type mockImageStore struct {
	mu      sync.Mutex
	PutFunc func(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	removed []string
	puts    []string
}

func (m *mockImageStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	m.mu.Lock()
	m.puts = append(m.puts, key)
	m.mu.Unlock()
	if m.PutFunc != nil {
		return m.PutFunc(ctx, key, r, size, contentType)
	}
	return nil
}

func (m *mockImageStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, key)
	return nil
}

type mockLabeler struct {
	LabelsFunc func(ctx context.Context, image []byte) ([]string, error)
}

func (m *mockLabeler) Labels(ctx context.Context, image []byte) ([]string, error) {
	return m.LabelsFunc(ctx, image)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev entity.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []entity.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]entity.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}
