// Package tam tracks the total addressable market per client: pool
// segmentation, weekly burn rate, exhaustion forecasting, and daily
// snapshots for trend lines.
package tam

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/apqllyqn/lead-disposition/internal/config"
	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/types"
)

// Tracker computes TAM health and captures snapshots. A nil clientID
// means the global universe across all clients.
type Tracker struct {
	store storage.Store
	cfg   *config.Config
	log   *slog.Logger
}

func New(store storage.Store, cfg *config.Config, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{store: store, cfg: cfg, log: log}
}

// Health reports the current pool segmentation along with burn rate
// and the weeks-to-exhaustion forecast. With zero burn there is no
// forecast and the status stays healthy.
func (t *Tracker) Health(ctx context.Context, clientID *string) (*types.TAMHealth, error) {
	pools, err := t.store.TAMPools(ctx, clientID)
	if err != nil {
		return nil, err
	}
	burn, err := t.store.BurnRateWeekly(ctx, clientID)
	if err != nil {
		return nil, err
	}

	health := &types.TAMHealth{
		PoolCounts:     pools,
		BurnRateWeekly: burn,
		HealthStatus:   types.HealthHealthy,
	}
	if burn > 0 {
		eta := float64(pools.AvailableNow) / burn
		health.ExhaustionETAWeeks = &eta
		switch {
		case eta < float64(t.cfg.TAMCriticalWeeks):
			health.HealthStatus = types.HealthCritical
		case eta < float64(t.cfg.TAMWarningWeeks):
			health.HealthStatus = types.HealthWarning
		}
	}
	return health, nil
}

// CaptureSnapshot computes health and persists it under today's date,
// replacing any earlier snapshot for the same date and scope.
func (t *Tracker) CaptureSnapshot(ctx context.Context, clientID *string) (*types.TAMHealth, error) {
	health, err := t.Health(ctx, clientID)
	if err != nil {
		return nil, err
	}

	snap := &types.TAMSnapshot{
		SnapshotDate:       time.Now().UTC().Format("2006-01-02"),
		ClientID:           clientID,
		PoolCounts:         health.PoolCounts,
		BurnRateWeekly:     health.BurnRateWeekly,
		ExhaustionETAWeeks: health.ExhaustionETAWeeks,
	}
	if err := t.store.UpsertTAMSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return health, nil
}

// CaptureAll snapshots the global universe and every known client.
// The empty key in the returned map holds the global snapshot.
func (t *Tracker) CaptureAll(ctx context.Context) (map[string]*types.TAMHealth, error) {
	clients, err := t.store.DistinctClients(ctx)
	if err != nil {
		return nil, err
	}

	results := make(map[string]*types.TAMHealth, len(clients)+1)
	global, err := t.CaptureSnapshot(ctx, nil)
	if err != nil {
		return nil, err
	}
	results[""] = global

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	type captured struct {
		clientID string
		health   *types.TAMHealth
	}
	out := make(chan captured, len(clients))
	for _, cid := range clients {
		g.Go(func() error {
			health, err := t.CaptureSnapshot(gctx, &cid)
			if err != nil {
				return err
			}
			out <- captured{clientID: cid, health: health}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(out)
	for c := range out {
		results[c.clientID] = c.health
	}

	t.log.Info("captured snapshots", "clients", len(clients))
	return results, nil
}

// Trends returns the stored snapshots for the last N days, oldest
// first. Days defaults to 30.
func (t *Tracker) Trends(ctx context.Context, clientID *string, days int) ([]*types.TAMSnapshot, error) {
	if days <= 0 {
		days = 30
	}
	return t.store.GetSnapshots(ctx, clientID, days)
}
