package eventstore

import (
	"testing"
)

func TestOpen_Backends(t *testing.T) {
	t.Parallel()

	r, closer, err := Open(Config{LogFile: "x.jsonl"}, nil)
	if err != nil {
		t.Fatalf("Open(file): %v", err)
	}
	if fr, ok := r.(*FileReader); !ok || fr.Path() != "x.jsonl" {
		t.Errorf("Open(file) = %T, want *FileReader for x.jsonl", r)
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	r, closer, err = Open(Config{Backend: BackendRedis, Redis: RedisConfig{Addr: "127.0.0.1:1"}}, nil)
	if err != nil {
		t.Fatalf("Open(redis): %v", err)
	}
	if _, ok := r.(*RedisReader); !ok {
		t.Errorf("Open(redis) = %T, want *RedisReader", r)
	}
	closer.Close()

	if _, _, err := Open(Config{Backend: BackendRedis}, nil); err == nil {
		t.Error("expected error for redis without address")
	}
	if _, _, err := Open(Config{Backend: "s3"}, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestOpen_DefaultLogFile(t *testing.T) {
	t.Parallel()

	r, _, err := Open(Config{Backend: BackendFile}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := r.(*FileReader).Path(); got != "data/logs.jsonl" {
		t.Errorf("Path = %q, want data/logs.jsonl", got)
	}
}
