package report

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tinytelemetry/honeywatch/internal/apperr"
	"github.com/tinytelemetry/honeywatch/internal/logging"
	"github.com/tinytelemetry/honeywatch/internal/metrics"
)

const maxOutputInError = 2048

// Trigger runs the external report generator and serves its artifact.
// Generation is blocking; a second Generate while one runs is rejected.
type Trigger struct {
	cfg      Config
	log      *zap.Logger
	archiver *Archiver

	mu sync.Mutex
}

// NewTrigger validates cfg, fills defaults and prepares the archiver.
func NewTrigger(cfg Config, log *zap.Logger) (*Trigger, error) {
	log = logging.OrNop(log)
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = DefaultCommand
		if len(cfg.Args) == 0 {
			cfg.Args = DefaultArgs
		}
	}
	if strings.TrimSpace(cfg.ArtifactPath) == "" {
		cfg.ArtifactPath = DefaultArtifactPath
	}
	if strings.TrimSpace(cfg.Filename) == "" {
		cfg.Filename = DefaultFilename
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("report: timeout must not be negative")
	}

	archiver, err := NewArchiver(cfg.Archive, log)
	if err != nil {
		return nil, err
	}
	return &Trigger{cfg: cfg, log: log, archiver: archiver}, nil
}

// Filename returns the fixed download filename.
func (t *Trigger) Filename() string { return t.cfg.Filename }

// Generate runs the generator and waits for it to exit.
func (t *Trigger) Generate(ctx context.Context) error {
	if !t.mu.TryLock() {
		metrics.ReportGenerations.WithLabelValues("rejected").Inc()
		return apperr.New(apperr.KindReportInProgress, "report.generate", "report generation already in progress", nil)
	}
	defer t.mu.Unlock()

	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, t.cfg.Command, t.cfg.Args...)
	cmd.WaitDelay = 5 * time.Second
	out, err := cmd.CombinedOutput()
	if err != nil {
		metrics.ReportGenerations.WithLabelValues("failed").Inc()
		t.log.Error("report generation failed",
			zap.String("command", t.cfg.Command),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return apperr.New(apperr.KindReportGenerationFailed, "report.generate",
			generationMessage(out), err)
	}
	metrics.ReportGenerations.WithLabelValues("ok").Inc()
	t.log.Info("report generated",
		zap.String("artifact", t.cfg.ArtifactPath),
		zap.Duration("elapsed", time.Since(start)))

	if t.archiver != nil {
		if err := t.archiver.Archive(ctx, t.cfg.ArtifactPath); err != nil {
			t.log.Warn("report archive failed", zap.Error(err))
		}
	}
	return nil
}

func generationMessage(out []byte) string {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		return "report generator exited with error"
	}
	if len(msg) > maxOutputInError {
		msg = msg[len(msg)-maxOutputInError:]
	}
	return "report generator exited with error: " + msg
}

// Fetch returns the current artifact. A missing artifact is
// ErrArtifactNotFound, distinct from a failed generation.
func (t *Trigger) Fetch() (*Artifact, error) {
	info, err := os.Stat(t.cfg.ArtifactPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.New(apperr.KindArtifactNotFound, "report.fetch", "report not generated yet", nil)
		}
		return nil, fmt.Errorf("report: stat artifact: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("report: artifact path %s is a directory", t.cfg.ArtifactPath)
	}

	data, err := os.ReadFile(t.cfg.ArtifactPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.New(apperr.KindArtifactNotFound, "report.fetch", "report not generated yet", nil)
		}
		return nil, fmt.Errorf("report: read artifact: %w", err)
	}
	return &Artifact{Name: t.cfg.Filename, Data: data, ModTime: info.ModTime()}, nil
}
