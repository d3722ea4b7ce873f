package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Version:    "+version) {
		t.Errorf("version output = %q", stdout.String())
	}
}

func TestRun_CheckConfig(t *testing.T) {
	resetHoneywatchEnv(t)
	path := writeTempConfig(t, `
api-port: 9100
log-file: /var/log/honeypot/logs.jsonl
`)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", path, "-check-config"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "config ok ("+path+")") || !strings.Contains(out, "127.0.0.1:9100") {
		t.Errorf("check-config output = %q", out)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	resetHoneywatchEnv(t)
	path := writeTempConfig(t, "api-port: 70000")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", path, "-check-config"}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "invalid api-port") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-no-such-flag"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "no-such-flag") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
