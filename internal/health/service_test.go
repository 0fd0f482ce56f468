package health

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/linkmark/linkmark/internal/domain"
	"github.com/linkmark/linkmark/internal/pool"
	"github.com/linkmark/linkmark/internal/probe"
	"github.com/linkmark/linkmark/internal/repo"
	"github.com/linkmark/linkmark/internal/repo/memory"
)

// --- fakes ---

// scriptedChecker returns a canned outcome per URL; URLs in panics blow up.
type scriptedChecker struct {
	out    map[string]probe.Outcome
	panics map[string]bool
}

func (c *scriptedChecker) Check(_ context.Context, target string) probe.Outcome {
	if c.panics[target] {
		panic("checker exploded for " + target)
	}
	if o, ok := c.out[target]; ok {
		return o
	}
	code := 200
	return probe.Outcome{Status: domain.StatusHealthy, HTTPStatus: &code, ResponseTimeMS: 1}
}

func seedUserAndBookmarks(t *testing.T, store *memory.Store, n int) []*domain.Bookmark {
	t.Helper()
	ctx := context.Background()
	u := &domain.User{Email: "a@example.com", PasswordHash: "x", Name: "A", Role: domain.RoleUser}
	if err := store.CreateUser(ctx, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	out := make([]*domain.Bookmark, 0, n)
	for i := 0; i < n; i++ {
		b := &domain.Bookmark{
			UserID: u.ID,
			Title:  "site " + strconv.Itoa(i),
			URL:    "https://example.com/" + strconv.Itoa(i),
		}
		if err := store.CreateBookmark(ctx, b); err != nil {
			t.Fatalf("seed bookmark %d: %v", i, err)
		}
		out = append(out, b)
	}
	return out
}

// --- tests ---

func TestCheckAll_BatchIsolation(t *testing.T) {
	store := memory.New()
	bms := seedUserAndBookmarks(t, store, 5)

	chk := &scriptedChecker{
		out:    map[string]probe.Outcome{},
		panics: map[string]bool{bms[2].URL: true},
	}
	p := pool.New(2, 4, 16, false)
	defer p.Close()
	svc := NewService(zap.NewNop(), store, store, chk, p)

	svc.CheckAll(context.Background())
	p.Wait()

	for i, bm := range bms {
		cr, err := store.LastResultByBookmark(context.Background(), bm.ID)
		if err != nil {
			t.Fatalf("bookmark %d has no result: %v", i, err)
		}
		want := domain.StatusHealthy
		if i == 2 {
			want = domain.StatusDead // panicking checker is converted, not propagated
		}
		if cr.Status != want {
			t.Fatalf("bookmark %d: want %s, got %s", i, want, cr.Status)
		}
	}
}

func TestCheckAll_HundredBookmarksAllRecorded(t *testing.T) {
	store := memory.New()
	bms := seedUserAndBookmarks(t, store, 100)

	chk := &scriptedChecker{out: map[string]probe.Outcome{}}
	p := pool.New(5, 10, 100, false)
	defer p.Close()
	svc := NewService(zap.NewNop(), store, store, chk, p)

	done := make(chan struct{})
	go func() {
		svc.CheckAll(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("CheckAll should return once everything is enqueued")
	}
	p.Wait()

	for i, bm := range bms {
		if _, err := store.LastResultByBookmark(context.Background(), bm.ID); err != nil {
			t.Fatalf("bookmark %d missing a result: %v", i, err)
		}
	}
}

func TestCheckNow_OwnershipEnforced(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	bms := seedUserAndBookmarks(t, store, 1)

	other := &domain.User{Email: "b@example.com", PasswordHash: "x", Name: "B", Role: domain.RoleUser}
	if err := store.CreateUser(ctx, other); err != nil {
		t.Fatalf("create user: %v", err)
	}

	p := pool.New(1, 1, 1, false)
	defer p.Close()
	svc := NewService(zap.NewNop(), store, store, &scriptedChecker{out: map[string]probe.Outcome{}}, p)

	_, err := svc.CheckNow(ctx, bms[0].ID, other.ID)
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("want ErrNotOwner, got %v", err)
	}
	// a refused check writes nothing
	if _, err := store.LastResultByBookmark(ctx, bms[0].ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected no stored result, got err=%v", err)
	}
}

func TestCheckNow_MissingAndDeletedAreNotFound(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	bms := seedUserAndBookmarks(t, store, 1)
	owner := bms[0].UserID

	p := pool.New(1, 1, 1, false)
	defer p.Close()
	svc := NewService(zap.NewNop(), store, store, &scriptedChecker{out: map[string]probe.Outcome{}}, p)

	if _, err := svc.CheckNow(ctx, domain.BookmarkID(9999), owner); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("missing: want ErrNotFound, got %v", err)
	}

	if err := store.SoftDeleteBookmark(ctx, bms[0].ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := svc.CheckNow(ctx, bms[0].ID, owner); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("soft-deleted: want ErrNotFound, got %v", err)
	}
}

func TestCheckNow_ReturnsEnrichedResult(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	bms := seedUserAndBookmarks(t, store, 1)

	code := 404
	chk := &scriptedChecker{out: map[string]probe.Outcome{
		bms[0].URL: {Status: domain.StatusDead, HTTPStatus: &code, ResponseTimeMS: 12},
	}}
	p := pool.New(1, 1, 1, false)
	defer p.Close()
	svc := NewService(zap.NewNop(), store, store, chk, p)

	rv, err := svc.CheckNow(ctx, bms[0].ID, bms[0].UserID)
	if err != nil {
		t.Fatalf("CheckNow: %v", err)
	}
	if rv.Status != domain.StatusDead || rv.HTTPStatus == nil || *rv.HTTPStatus != 404 {
		t.Fatalf("unexpected result: %+v", rv)
	}
	if rv.BookmarkTitle != bms[0].Title || rv.BookmarkURL != bms[0].URL {
		t.Fatalf("result not enriched with bookmark fields: %+v", rv)
	}
	// and it was persisted
	if _, err := store.LastResultByBookmark(ctx, bms[0].ID); err != nil {
		t.Fatalf("expected a stored result: %v", err)
	}
}

func TestResults_LatestPerBookmarkAndOmitsUnchecked(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	bms := seedUserAndBookmarks(t, store, 3)

	code := 200
	old := &domain.CheckResult{
		BookmarkID: bms[0].ID, Status: domain.StatusDead,
		ResponseTimeMS: 5, CheckedAt: time.Now().Add(-time.Hour),
	}
	newer := &domain.CheckResult{
		BookmarkID: bms[0].ID, Status: domain.StatusHealthy, HTTPStatus: &code,
		ResponseTimeMS: 3, CheckedAt: time.Now(),
	}
	for _, cr := range []*domain.CheckResult{old, newer} {
		if err := store.AppendResult(ctx, cr); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	// bms[1] gets one result, bms[2] stays unchecked
	if err := store.AppendResult(ctx, &domain.CheckResult{
		BookmarkID: bms[1].ID, Status: domain.StatusTimeout,
		ResponseTimeMS: 1000, CheckedAt: time.Now(),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	p := pool.New(1, 1, 1, false)
	defer p.Close()
	svc := NewService(zap.NewNop(), store, store, &scriptedChecker{out: map[string]probe.Outcome{}}, p)

	out, err := svc.Results(ctx, bms[0].UserID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("want 2 rows (unchecked bookmark omitted), got %d", len(out))
	}
	byID := map[domain.BookmarkID]ResultView{}
	for _, rv := range out {
		byID[rv.BookmarkID] = rv
	}
	if rv := byID[bms[0].ID]; rv.Status != domain.StatusHealthy {
		t.Fatalf("want the newer HEALTHY row for bms[0], got %+v", rv)
	}
	if rv := byID[bms[1].ID]; rv.Status != domain.StatusTimeout || rv.HTTPStatus != nil {
		t.Fatalf("unexpected row for bms[1]: %+v", rv)
	}
}
