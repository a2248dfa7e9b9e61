package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/canvass/internal/store"
)

// ErrNoCampaign means no campaign exists at all. Call setup cannot proceed
// without one, so this is fatal to the call.
var ErrNoCampaign = errors.New("campaign: no campaign exists")

// Backend is the slice of the persistence layer resolution needs.
type Backend interface {
	ListActiveRoomMappings(ctx context.Context) ([]store.RoomMapping, error)
	GetCampaign(ctx context.Context, id int64) (store.Campaign, error)
	MostRecentCampaign(ctx context.Context) (store.Campaign, error)
}

// Resolver maps a room name to a campaign by prefix match against the active
// mappings, scanned in id order. First match wins; this is deliberately not
// longest-prefix-match, so overlapping patterns resolve by creation order.
type Resolver struct {
	backend Backend
	logger  *slog.Logger
}

func NewResolver(backend Backend, logger *slog.Logger) *Resolver {
	return &Resolver{backend: backend, logger: logger}
}

// Resolve is read-only and deterministic for a fixed mapping set. When no
// mapping is active or none matches, it falls back to the most recently
// created campaign.
func (r *Resolver) Resolve(ctx context.Context, roomName string) (store.Campaign, error) {
	mappings, err := r.backend.ListActiveRoomMappings(ctx)
	if err != nil {
		return store.Campaign{}, fmt.Errorf("list mappings: %w", err)
	}

	for _, m := range mappings {
		if strings.HasPrefix(roomName, m.RoomPattern) {
			c, err := r.backend.GetCampaign(ctx, m.CampaignID)
			if err != nil {
				return store.Campaign{}, fmt.Errorf("get campaign %d for mapping %d: %w", m.CampaignID, m.ID, err)
			}
			r.logger.Info("campaign resolved by mapping",
				"room", roomName,
				"pattern", m.RoomPattern,
				"campaign_id", c.ID,
				"campaign", c.Name,
			)
			return c, nil
		}
	}

	r.logger.Info("no mapping matched, using fallback campaign", "room", roomName)
	return r.mostRecent(ctx)
}

// mostRecent is the named fallback policy: the campaign with the highest id.
func (r *Resolver) mostRecent(ctx context.Context) (store.Campaign, error) {
	c, err := r.backend.MostRecentCampaign(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return store.Campaign{}, ErrNoCampaign
	}
	if err != nil {
		return store.Campaign{}, fmt.Errorf("fallback campaign: %w", err)
	}
	return c, nil
}
