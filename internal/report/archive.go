package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tinytelemetry/honeywatch/internal/logging"
)

const defaultKeepLast = 30

// Archiver keeps timestamped copies of generated reports and optionally
// uploads them to S3.
type Archiver struct {
	cfg      ArchiveConfig
	uploader Uploader
	log      *zap.Logger
}

// NewArchiver returns nil when archiving is disabled.
func NewArchiver(cfg ArchiveConfig, log *zap.Logger) (*Archiver, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	log = logging.OrNop(log)
	if strings.TrimSpace(cfg.LocalDir) == "" {
		return nil, fmt.Errorf("report: archive-dir is required when archiving is enabled")
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if err := os.MkdirAll(cfg.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("report: create archive-dir: %w", err)
	}

	var uploader Uploader
	if strings.TrimSpace(cfg.BucketURL) != "" {
		s3u, err := NewS3Uploader(context.Background(), S3Config{
			BucketURL: cfg.BucketURL,
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("report: init s3 uploader: %w", err)
		}
		uploader = s3u
	}

	return &Archiver{cfg: cfg, uploader: uploader, log: log}, nil
}

// Archive copies artifactPath into the archive, uploads the copy when
// configured, and prunes old copies.
func (a *Archiver) Archive(ctx context.Context, artifactPath string) error {
	ext := filepath.Ext(artifactPath)
	name := fmt.Sprintf("report-%s%s", time.Now().UTC().Format("20060102-150405.000"), ext)
	dst := filepath.Join(a.cfg.LocalDir, name)

	if err := copyFile(artifactPath, dst); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	a.log.Info("report archived", zap.String("path", dst))

	if a.uploader != nil {
		if err := a.uploader.UploadFile(ctx, dst); err != nil {
			return fmt.Errorf("upload: %w", err)
		}
		a.log.Info("report uploaded", zap.String("name", name))
	}

	if err := pruneArchive(a.cfg.LocalDir, ext, a.cfg.KeepLast); err != nil {
		return fmt.Errorf("prune archive: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

func pruneArchive(dir, ext string, keepLast int) error {
	if keepLast <= 0 {
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "report-*"+ext))
	if err != nil {
		return err
	}
	if len(matches) <= keepLast {
		return nil
	}

	// Timestamped names sort chronologically.
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))

	for _, old := range matches[keepLast:] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
