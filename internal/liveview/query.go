package liveview

import (
	"context"
	"time"

	"github.com/tinytelemetry/honeywatch/internal/aggregate"
	"github.com/tinytelemetry/honeywatch/internal/apperr"
	"github.com/tinytelemetry/honeywatch/internal/filter"
	"github.com/tinytelemetry/honeywatch/internal/model"
)

const refreshTimeout = 30 * time.Second

// Querier answers presentation queries from a live view's cached snapshot.
// Every answer is derived from one snapshot; when none exists yet the
// result is ErrStoreUnavailable rather than an empty view.
type Querier struct {
	view model.LiveView
}

var _ model.ViewQuerier = (*Querier)(nil)

// NewQuerier wraps view.
func NewQuerier(view model.LiveView) *Querier {
	return &Querier{view: view}
}

// Snapshot returns the latest good snapshot.
func (q *Querier) Snapshot() (*model.Snapshot, error) {
	snap := q.view.Latest()
	if snap == nil {
		return nil, apperr.StoreUnavailable("liveview.snapshot", q.view.LastError())
	}
	return snap, nil
}

func (q *Querier) Logs() ([]model.EventRecord, error) {
	snap, err := q.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Records, nil
}

func (q *Querier) Stats() (model.Stats, error) {
	snap, err := q.Snapshot()
	if err != nil {
		return model.Stats{}, err
	}
	return snap.Stats, nil
}

func (q *Querier) TimeSeries() ([]model.TimeBucket, error) {
	snap, err := q.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.TimeSeries, nil
}

func (q *Querier) GeoClusters() ([]model.GeoCluster, error) {
	snap, err := q.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.GeoClusters, nil
}

func (q *Querier) Breakdowns() (model.Breakdowns, error) {
	snap, err := q.Snapshot()
	if err != nil {
		return model.Breakdowns{}, err
	}
	return snap.Breakdowns, nil
}

// Search runs the filter engine over the current snapshot.
func (q *Querier) Search(query string) ([]model.EventRecord, error) {
	snap, err := q.Snapshot()
	if err != nil {
		return nil, err
	}
	return filter.Apply(snap.Records, query), nil
}

// TopIPs ranks origin IPs; limit <= 0 uses the default.
func (q *Querier) TopIPs(limit int) ([]model.DimensionCount, error) {
	snap, err := q.Snapshot()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = model.DefaultTopIPs
	}
	return aggregate.TopIPs(snap.Records, limit), nil
}

// Refresh triggers an out-of-band cycle.
func (q *Querier) Refresh() error {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	return q.view.RefreshNow(ctx)
}
