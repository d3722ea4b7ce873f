package model

import "context"

// RecordReader loads the full current contents of the record store.
// Implementations re-read on every call and never fail on malformed lines.
type RecordReader interface {
	Read(ctx context.Context) ([]EventRecord, error)
}

// SnapshotSource provides the latest published snapshot.
type SnapshotSource interface {
	Latest() *Snapshot
	LastError() error
}

// Refresher triggers an out-of-band refresh cycle.
type Refresher interface {
	RefreshNow(ctx context.Context) error
}

// Subscribable lets callers follow every published update.
type Subscribable interface {
	Subscribe(fn func(Update)) (cancel func())
}

// LiveView is the unified read contract for read surfaces (HTTP and socket RPC).
type LiveView interface {
	SnapshotSource
	Refresher
	Subscribable
	State() string
}

// ViewQuerier is the query surface served to presentation clients.
type ViewQuerier interface {
	Snapshot() (*Snapshot, error)
	Logs() ([]EventRecord, error)
	Stats() (Stats, error)
	TimeSeries() ([]TimeBucket, error)
	GeoClusters() ([]GeoCluster, error)
	Breakdowns() (Breakdowns, error)
	Search(query string) ([]EventRecord, error)
	TopIPs(limit int) ([]DimensionCount, error)
	Refresh() error
}
