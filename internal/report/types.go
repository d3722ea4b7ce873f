package report

import (
	"context"
	"time"
)

const (
	// DefaultFilename is the download name of the generated report.
	DefaultFilename = "honeypot_security_report.pdf"
	// DefaultArtifactPath is where the generator writes its output.
	DefaultArtifactPath = "data/report.pdf"
	DefaultCommand      = "python3"
	DefaultTimeout      = 2 * time.Minute
)

// DefaultArgs runs the bundled generator script.
var DefaultArgs = []string{"generate_report.py"}

// Config controls the external report generator.
type Config struct {
	Command      string
	Args         []string
	ArtifactPath string
	Filename     string
	Timeout      time.Duration

	Archive ArchiveConfig
}

// ArchiveConfig controls copies of every generated report.
type ArchiveConfig struct {
	Enabled   bool
	LocalDir  string
	KeepLast  int
	BucketURL string

	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
}

// Artifact is a generated report ready for download.
type Artifact struct {
	Name    string
	Data    []byte
	ModTime time.Time
}

// Uploader uploads one archived report.
type Uploader interface {
	UploadFile(ctx context.Context, localPath string) error
}
