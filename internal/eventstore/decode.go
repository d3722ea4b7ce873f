package eventstore

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tinytelemetry/honeywatch/internal/apperr"
	"github.com/tinytelemetry/honeywatch/internal/metrics"
	"github.com/tinytelemetry/honeywatch/internal/model"
)

const (
	readBufferSize = 64 * 1024
	maxLineSize    = 10 * 1024 * 1024
)

var errLineTooLong = fmt.Errorf("line exceeds %d bytes", maxLineSize)

// Decode reads JSON Lines from r and returns the records that parsed, in
// input order, along with the number of malformed lines that were skipped.
// Blank lines are ignored and a line longer than maxLineSize counts as
// malformed. The error is non-nil only when r itself fails.
func Decode(r io.Reader, source string, log *zap.Logger) ([]model.EventRecord, int, error) {
	reader := bufio.NewReaderSize(r, readBufferSize)

	records := make([]model.EventRecord, 0, 64)
	malformed := 0
	lineNo := 0
	line := make([]byte, 0, readBufferSize)
	tooLong := false
	for {
		chunk, err := reader.ReadSlice('\n')
		if len(chunk) > 0 && !tooLong {
			if len(line)+len(chunk) > maxLineSize {
				// Drop what we have and discard the rest of the line.
				tooLong = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, malformed, fmt.Errorf("read %s: %w", source, err)
		}
		atEOF := err != nil
		if atEOF && len(chunk) == 0 && len(line) == 0 && !tooLong {
			break
		}

		lineNo++
		switch text := strings.TrimSpace(string(line)); {
		case tooLong:
			malformed++
			skipMalformed(log, source, lineNo, errLineTooLong)
		case text == "":
		default:
			if rec, decodeErr := DecodeLine(text); decodeErr != nil {
				malformed++
				skipMalformed(log, source, lineNo, decodeErr)
			} else {
				records = append(records, rec)
			}
		}
		line = line[:0]
		tooLong = false

		if atEOF {
			break
		}
	}
	return records, malformed, nil
}

func skipMalformed(log *zap.Logger, source string, lineNo int, err error) {
	metrics.MalformedLines.WithLabelValues(source).Inc()
	if log != nil {
		log.Warn("skipping malformed record",
			zap.String("source", source),
			zap.Int("line", lineNo),
			zap.Error(err))
	}
}

// DecodeLine parses one JSON object into an EventRecord. Unknown fields are
// ignored and wrongly typed known fields fall back to their zero value.
func DecodeLine(line string) (model.EventRecord, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return model.EventRecord{}, apperr.MalformedRecord("eventstore.decode", err)
	}
	if raw == nil {
		return model.EventRecord{}, apperr.MalformedRecord("eventstore.decode", errors.New("not a JSON object"))
	}

	rec := model.EventRecord{
		Time:         stringField(raw, "time"),
		IP:           stringField(raw, "ip"),
		Path:         stringField(raw, "path"),
		Method:       stringField(raw, "method"),
		UserAgent:    stringField(raw, "user_agent"),
		Country:      stringField(raw, "country"),
		AIFlag:       stringField(raw, "ai_flag"),
		AIAttackType: stringField(raw, "ai_attack_type"),
		Tags:         tagsField(raw["tags"]),
	}
	rec.RiskScore, _ = numberField(raw, "risk_score")
	rec.Lat, _ = numberField(raw, "lat", "latitude")
	rec.Lon, _ = numberField(raw, "lon", "longitude")
	return rec, nil
}

// stringField returns the value at key when it is a JSON string.
func stringField(raw map[string]interface{}, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

// numberField returns the first key that resolves to a finite number.
// Numeric strings are accepted; "NaN" and "Inf" are not.
func numberField(raw map[string]interface{}, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case float64:
			return v, true
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
				return f, true
			}
		}
	}
	return 0, false
}

func tagsField(value interface{}) []string {
	switch v := value.(type) {
	case []interface{}:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			tags = append(tags, stringifyJSONValue(item))
		}
		return tags
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

func stringifyJSONValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return ""
}
