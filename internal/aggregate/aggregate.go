package aggregate

import (
	"sort"
	"time"

	"github.com/tinytelemetry/honeywatch/internal/model"
)

// UnknownCountry labels clusters and counts whose record carried no country.
const UnknownCountry = "Unknown"

// hourKeyLen is the length of an ISO-8601 prefix truncated to the hour
// ("2024-05-01T14").
const hourKeyLen = 13

// CountsByCategory counts records by their first tag. Tagless records are
// not counted.
func CountsByCategory(records []model.EventRecord) map[string]int64 {
	counts := make(map[string]int64)
	for i := range records {
		if cat := records[i].Category(); cat != "" {
			counts[cat]++
		}
	}
	return counts
}

// Stats returns the total record count and the per-category counts.
func Stats(records []model.EventRecord) model.Stats {
	return model.Stats{
		Total:      int64(len(records)),
		ByCategory: CountsByCategory(records),
	}
}

// HourKey truncates an ISO-8601 time to the hour. Shorter values are used
// as-is; an empty time has no key.
func HourKey(t string) string {
	if len(t) > hourKeyLen {
		return t[:hourKeyLen]
	}
	return t
}

// TimeSeries groups records into hour buckets sorted ascending by key.
// Records without a time are left out.
func TimeSeries(records []model.EventRecord) []model.TimeBucket {
	counts := make(map[string]int64)
	for i := range records {
		if key := HourKey(records[i].Time); key != "" {
			counts[key]++
		}
	}

	buckets := make([]model.TimeBucket, 0, len(counts))
	for key, count := range counts {
		buckets = append(buckets, model.TimeBucket{Key: key, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Key < buckets[j].Key
	})
	return buckets
}

type coordKey struct {
	lat, lon float64
}

// GeoClusters groups records by exact coordinate pair, in first-seen order.
// A cluster keeps the country of the first record seen at its coordinates.
func GeoClusters(records []model.EventRecord) []model.GeoCluster {
	index := make(map[coordKey]int)
	clusters := make([]model.GeoCluster, 0)
	for i := range records {
		rec := &records[i]
		if !rec.HasCoordinates() {
			continue
		}
		key := coordKey{lat: rec.Lat, lon: rec.Lon}
		if idx, ok := index[key]; ok {
			clusters[idx].Count++
			continue
		}
		country := rec.Country
		if country == "" {
			country = UnknownCountry
		}
		index[key] = len(clusters)
		clusters = append(clusters, model.GeoCluster{
			Country: country,
			Lat:     rec.Lat,
			Lon:     rec.Lon,
			Count:   1,
		})
	}
	return clusters
}

// Build derives every view of one refresh cycle from a single record set.
func Build(records []model.EventRecord, seq uint64, now time.Time) *model.Snapshot {
	if records == nil {
		records = []model.EventRecord{}
	}
	return &model.Snapshot{
		Seq:         seq,
		RefreshedAt: now,
		Records:     records,
		Stats:       Stats(records),
		TimeSeries:  TimeSeries(records),
		GeoClusters: GeoClusters(records),
		Breakdowns: model.Breakdowns{
			TopIPs:        TopIPs(records, model.DefaultTopIPs),
			Tags:          TagCounts(records),
			Countries:     CountryCounts(records),
			AIFlags:       AIFlagCounts(records),
			AIAttackTypes: AIAttackTypeCounts(records),
		},
	}
}
