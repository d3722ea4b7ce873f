package model

import "time"

// EventRecord is one parsed line of the append-only security-event log.
// It is the canonical type for aggregation, transport (socket RPC), and display.
type EventRecord struct {
	Time         string   `json:"time,omitempty"` // ISO-8601 text, empty when absent
	IP           string   `json:"ip"`
	Path         string   `json:"path"`
	Method       string   `json:"method,omitempty"`
	UserAgent    string   `json:"user_agent,omitempty"`
	RiskScore    float64  `json:"risk_score"`
	Tags         []string `json:"tags"`
	Lat          float64  `json:"lat,omitempty"` // 0 = unset
	Lon          float64  `json:"lon,omitempty"` // 0 = unset
	Country      string   `json:"country,omitempty"`
	AIFlag       string   `json:"ai_flag,omitempty"`
	AIAttackType string   `json:"ai_attack_type,omitempty"`
}

// Category returns the record's primary category (its first tag), or ""
// when the record carries no tags.
func (r EventRecord) Category() string {
	if len(r.Tags) == 0 {
		return ""
	}
	return r.Tags[0]
}

// HasCoordinates reports whether both coordinates are set. Zero stands for
// "missing" upstream, so a genuine 0° reading is indistinguishable from absence.
func (r EventRecord) HasCoordinates() bool {
	return r.Lat != 0 && r.Lon != 0
}

// Stats is the headline aggregate served as getStats.
type Stats struct {
	Total      int64            `json:"total"`
	ByCategory map[string]int64 `json:"by_category"`
}

// TimeBucket holds the event count for one hour-truncated time key
// (for example "2024-05-01T14").
type TimeBucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// GeoCluster aggregates events originating from one exact coordinate pair.
type GeoCluster struct {
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Count   int64   `json:"count"`
}

// DimensionCount represents grouped counts by a single dimension value
// (for example source IP or country).
type DimensionCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// Breakdowns holds the secondary dashboard aggregates.
type Breakdowns struct {
	TopIPs        []DimensionCount `json:"top_ips"`
	Tags          []DimensionCount `json:"tags"`
	Countries     []DimensionCount `json:"countries"`
	AIFlags       []DimensionCount `json:"ai_flags"`
	AIAttackTypes []DimensionCount `json:"ai_attack_types"`
}

// Snapshot is the complete result set of one refresh cycle. Every view in it
// is derived from the same Records slice. A published Snapshot is read-only.
type Snapshot struct {
	Seq         uint64        `json:"seq"`
	RefreshedAt time.Time     `json:"refreshed_at"`
	Records     []EventRecord `json:"records"`
	Stats       Stats         `json:"stats"`
	TimeSeries  []TimeBucket  `json:"time_series"`
	GeoClusters []GeoCluster  `json:"geo_clusters"`
	Breakdowns  Breakdowns    `json:"breakdowns"`
}

// Update is what subscribers of the live view receive. Err is set when the
// refresh cycle failed; Snapshot is then the previous good snapshot (nil when
// none exists yet).
type Update struct {
	Snapshot *Snapshot
	Err      error
}
