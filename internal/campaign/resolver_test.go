package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/MikeSquared-Agency/canvass/internal/store"
)

type fakeBackend struct {
	mappings  []store.RoomMapping
	campaigns map[int64]store.Campaign
	listErr   error
}

func (f *fakeBackend) ListActiveRoomMappings(ctx context.Context) ([]store.RoomMapping, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.mappings, nil
}

func (f *fakeBackend) GetCampaign(ctx context.Context, id int64) (store.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return store.Campaign{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeBackend) MostRecentCampaign(ctx context.Context) (store.Campaign, error) {
	var latest store.Campaign
	for _, c := range f.campaigns {
		if c.ID > latest.ID {
			latest = c
		}
	}
	if latest.ID == 0 {
		return store.Campaign{}, store.ErrNotFound
	}
	return latest, nil
}

func testBackend() *fakeBackend {
	return &fakeBackend{
		campaigns: map[int64]store.Campaign{
			3: {ID: 3, Name: "Legacy Outreach"},
			7: {ID: 7, Name: "InnoVet 2026"},
			9: {ID: 9, Name: "Follow-up Wave"},
		},
	}
}

func TestResolve_FirstPrefixMatchWins(t *testing.T) {
	backend := testBackend()
	backend.mappings = []store.RoomMapping{
		{ID: 1, CampaignID: 7, RoomPattern: "call-", IsActive: true},
		{ID: 2, CampaignID: 3, RoomPattern: "call-vip-", IsActive: true},
	}
	r := NewResolver(backend, slog.Default())

	// "call-vip-123" matches both patterns; the mapping with the lower id
	// wins, not the longer prefix.
	c, err := r.Resolve(context.Background(), "call-vip-123")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if c.ID != 7 {
		t.Errorf("resolved campaign %d, want 7 (first match, not longest)", c.ID)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	backend := testBackend()
	backend.mappings = []store.RoomMapping{
		{ID: 1, CampaignID: 7, RoomPattern: "call-", IsActive: true},
		{ID: 2, CampaignID: 3, RoomPattern: "survey-", IsActive: true},
	}
	r := NewResolver(backend, slog.Default())

	for i := 0; i < 10; i++ {
		c, err := r.Resolve(context.Background(), "call-_+15551234567_abcd")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if c.ID != 7 {
			t.Fatalf("iteration %d resolved campaign %d, want 7", i, c.ID)
		}
	}
}

func TestResolve_FallbackWhenNoMappings(t *testing.T) {
	r := NewResolver(testBackend(), slog.Default())

	c, err := r.Resolve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if c.ID != 9 {
		t.Errorf("fallback resolved campaign %d, want most recent (9)", c.ID)
	}
}

func TestResolve_FallbackWhenNoPatternMatches(t *testing.T) {
	backend := testBackend()
	backend.mappings = []store.RoomMapping{
		{ID: 1, CampaignID: 7, RoomPattern: "sip-", IsActive: true},
	}
	r := NewResolver(backend, slog.Default())

	c, err := r.Resolve(context.Background(), "call-123")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if c.ID != 9 {
		t.Errorf("fallback resolved campaign %d, want 9", c.ID)
	}
}

func TestResolve_NoCampaignAtAll(t *testing.T) {
	r := NewResolver(&fakeBackend{campaigns: map[int64]store.Campaign{}}, slog.Default())

	_, err := r.Resolve(context.Background(), "call-123")
	if !errors.Is(err, ErrNoCampaign) {
		t.Errorf("expected ErrNoCampaign, got %v", err)
	}
}

func TestResolve_BackendError(t *testing.T) {
	backend := testBackend()
	backend.listErr = fmt.Errorf("connection refused")
	r := NewResolver(backend, slog.Default())

	if _, err := r.Resolve(context.Background(), "call-123"); err == nil {
		t.Error("expected error when backend is unreachable")
	}
}

func TestResolve_MappingToMissingCampaign(t *testing.T) {
	backend := testBackend()
	backend.mappings = []store.RoomMapping{
		{ID: 1, CampaignID: 42, RoomPattern: "call-", IsActive: true},
	}
	r := NewResolver(backend, slog.Default())

	if _, err := r.Resolve(context.Background(), "call-123"); err == nil {
		t.Error("expected error for mapping pointing at a missing campaign")
	}
}
