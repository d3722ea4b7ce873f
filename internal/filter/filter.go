package filter

import (
	"strings"

	"github.com/tinytelemetry/honeywatch/internal/model"
)

// MaxResults caps the filtered view.
const MaxResults = 100

// Apply returns the most recent MaxResults records whose composed text
// (ip, path and tags) contains query, case-insensitively, newest first.
// An empty query matches every record. The input is not modified.
func Apply(records []model.EventRecord, query string) []model.EventRecord {
	needle := strings.ToLower(query)

	matched := make([]model.EventRecord, 0, min(len(records), MaxResults))
	// Walk backwards so only the newest MaxResults matches are kept, already
	// in newest-first order.
	for i := len(records) - 1; i >= 0 && len(matched) < MaxResults; i-- {
		if needle == "" || strings.Contains(composedText(&records[i]), needle) {
			matched = append(matched, records[i])
		}
	}
	return matched
}

func composedText(r *model.EventRecord) string {
	return strings.ToLower(r.IP + " " + r.Path + " " + strings.Join(r.Tags, " "))
}
