package model

import "time"

// Shared defaults used by both the server and TUI binaries.
const (
	DefaultUpdateInterval = 2 * time.Second
	DefaultLogFile        = "data/logs.jsonl"
	DefaultTopIPs         = 10
)
