package eventstore

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/tinytelemetry/honeywatch/internal/apperr"
	"github.com/tinytelemetry/honeywatch/internal/logging"
	"github.com/tinytelemetry/honeywatch/internal/model"
)

// FileReader reads the append-only JSON Lines log from disk. Every Read
// re-reads the whole file.
type FileReader struct {
	path string
	log  *zap.Logger
}

// NewFileReader returns a reader over the JSON Lines file at path.
func NewFileReader(path string, log *zap.Logger) *FileReader {
	log = logging.OrNop(log)
	return &FileReader{path: path, log: log}
}

// Path returns the backing file path.
func (r *FileReader) Path() string { return r.path }

// Read implements model.RecordReader.
func (r *FileReader) Read(ctx context.Context) ([]model.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []model.EventRecord{}, nil
		}
		return nil, apperr.StoreUnavailable("eventstore.file", err)
	}
	defer f.Close()

	records, malformed, err := Decode(f, "file", r.log)
	if err != nil {
		return nil, apperr.StoreUnavailable("eventstore.file", err)
	}
	if malformed > 0 {
		r.log.Debug("read completed with skipped lines",
			zap.String("path", r.path),
			zap.Int("records", len(records)),
			zap.Int("malformed", malformed))
	}
	return records, nil
}
