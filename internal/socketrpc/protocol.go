package socketrpc

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// JSON-RPC 2.0 Method Reference
//
// The socket RPC server exposes model.ViewQuerier over a Unix domain socket.
// Each method maps 1:1 to the ViewQuerier interface.
//
//   Method         Params               Result
//   ───────────    ──────────────────   ─────────────────────
//   Snapshot       (none)               Snapshot
//   Logs           (none)               []EventRecord
//   Stats          (none)               Stats
//   TimeSeries     (none)               []TimeBucket
//   GeoClusters    (none)               []GeoCluster
//   Breakdowns     (none)               Breakdowns
//   Search         {Query: string}      []EventRecord (newest first, max 100)
//   TopIPs         {Limit: int}         []DimensionCount
//   Refresh        (none)               null
//
// Error codes follow JSON-RPC 2.0:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params
//   -32603  Internal error (marshal failure)
//   -32010  Record store unavailable (no snapshot yet, or refresh failed to read)
//   -32000  Application error

const (
	CodeParseError       = -32700
	CodeMethodNotFound   = -32601
	CodeInvalidParams    = -32602
	CodeInternalError    = -32603
	CodeStoreUnavailable = -32010
	CodeApplicationError = -32000
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// DefaultSocketPath returns the default Unix socket path.
// It prefers $XDG_RUNTIME_DIR/honeywatch/honeywatch.sock, falling back to
// ~/.local/state/honeywatch/honeywatch.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "honeywatch", "honeywatch.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/honeywatch.sock"
	}
	return filepath.Join(home, ".local", "state", "honeywatch", "honeywatch.sock")
}
