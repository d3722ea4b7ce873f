package aggregate

import (
	"sort"

	"github.com/tinytelemetry/honeywatch/internal/model"
)

// countBy tallies non-empty values produced by key and returns them sorted by
// count descending, then value ascending.
func countBy(records []model.EventRecord, key func(*model.EventRecord) []string) []model.DimensionCount {
	counts := make(map[string]int64)
	for i := range records {
		for _, v := range key(&records[i]) {
			if v != "" {
				counts[v]++
			}
		}
	}
	return sortedCounts(counts)
}

func sortedCounts(counts map[string]int64) []model.DimensionCount {
	out := make([]model.DimensionCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, model.DimensionCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func one(v string) []string { return []string{v} }

// TopIPs returns the n most frequent origin IPs. n <= 0 returns all of them.
func TopIPs(records []model.EventRecord, n int) []model.DimensionCount {
	out := countBy(records, func(r *model.EventRecord) []string { return one(r.IP) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// TagCounts counts every tag of every record, not only the first.
func TagCounts(records []model.EventRecord) []model.DimensionCount {
	return countBy(records, func(r *model.EventRecord) []string { return r.Tags })
}

// CountryCounts counts records by country, leaving out unknown origins.
func CountryCounts(records []model.EventRecord) []model.DimensionCount {
	return countBy(records, func(r *model.EventRecord) []string {
		if r.Country == UnknownCountry {
			return nil
		}
		return one(r.Country)
	})
}

// AIFlagCounts counts the anomaly detector's verdicts.
func AIFlagCounts(records []model.EventRecord) []model.DimensionCount {
	return countBy(records, func(r *model.EventRecord) []string { return one(r.AIFlag) })
}

// AIAttackTypeCounts counts the classifier's attack-type labels.
func AIAttackTypeCounts(records []model.EventRecord) []model.DimensionCount {
	return countBy(records, func(r *model.EventRecord) []string { return one(r.AIAttackType) })
}
