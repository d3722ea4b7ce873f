package report

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func zapNop() *zap.Logger { return zap.NewNop() }

func TestParseS3BucketURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raw       string
		wantErr   bool
		wantBkt   string
		wantPre   string
		errSubstr string
	}{
		{
			name:    "bucket only",
			raw:     "s3://reports",
			wantBkt: "reports",
		},
		{
			name:    "bucket with prefix",
			raw:     "s3://reports/honeywatch/daily/",
			wantBkt: "reports",
			wantPre: "honeywatch/daily",
		},
		{
			name:      "invalid scheme",
			raw:       "https://reports/honeywatch",
			wantErr:   true,
			errSubstr: "s3:// scheme",
		},
		{
			name:      "missing bucket",
			raw:       "s3:///honeywatch",
			wantErr:   true,
			errSubstr: "missing bucket",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gotBkt, gotPre, err := parseS3BucketURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errSubstr) {
					t.Fatalf("err = %q, want substring %q", err.Error(), tt.errSubstr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseS3BucketURL error: %v", err)
			}
			if gotBkt != tt.wantBkt || gotPre != tt.wantPre {
				t.Errorf("got (%q, %q), want (%q, %q)", gotBkt, gotPre, tt.wantBkt, tt.wantPre)
			}
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{"", true, ""},
		{"minio:9000", false, "http://minio:9000"},
		{"s3.example.com", true, "https://s3.example.com"},
		{"http://already", true, "http://already"},
	}
	for _, tt := range tests {
		if got := normalizeEndpoint(tt.endpoint, tt.useSSL); got != tt.want {
			t.Errorf("normalizeEndpoint(%q, %v) = %q, want %q", tt.endpoint, tt.useSSL, got, tt.want)
		}
	}
}

func TestNewS3Uploader_PartialCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewS3Uploader(context.Background(), S3Config{
		BucketURL: "s3://reports",
		AccessKey: "only-access",
	})
	if err == nil {
		t.Fatal("expected error when only one key is set")
	}
}

func TestS3Uploader_PutsObjectPathStyle(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		method  string
		reqPath string
		body    string
		ctype   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, reqPath, body, ctype = r.Method, r.URL.Path, string(b), r.Header.Get("Content-Type")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u, err := NewS3Uploader(context.Background(), S3Config{
		BucketURL: "s3://reports/honeywatch",
		Endpoint:  srv.URL,
		Region:    "eu-west-1",
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
	})
	if err != nil {
		t.Fatalf("NewS3Uploader: %v", err)
	}

	local := filepath.Join(t.TempDir(), "report-20240501-140000.000.pdf")
	if err := os.WriteFile(local, []byte("pdf-bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := u.UploadFile(context.Background(), local); err != nil {
		t.Fatalf("UploadFile: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut {
		t.Errorf("method = %s, want PUT", method)
	}
	if reqPath != "/reports/honeywatch/report-20240501-140000.000.pdf" {
		t.Errorf("path = %s", reqPath)
	}
	if body != "pdf-bytes" {
		t.Errorf("body = %q", body)
	}
	if ctype != "application/pdf" {
		t.Errorf("content-type = %q", ctype)
	}
}
