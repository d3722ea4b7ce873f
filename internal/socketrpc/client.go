package socketrpc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tinytelemetry/honeywatch/internal/apperr"
	"github.com/tinytelemetry/honeywatch/internal/model"
)

// Client implements model.ViewQuerier over a Unix domain socket using JSON-RPC 2.0.
type Client struct {
	conn    net.Conn
	mu      sync.Mutex
	nextID  int
	scanner *bufio.Scanner
	encoder *json.Encoder
}

var _ model.ViewQuerier = (*Client)(nil)

// Dial connects to the socket RPC server at the given path.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("socketrpc: dial: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	return &Client{
		conn:    conn,
		scanner: scanner,
		encoder: json.NewEncoder(conn),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call performs a JSON-RPC call and unmarshals the result into dest.
// A store-unavailable error code comes back as apperr.ErrStoreUnavailable.
func (c *Client) call(method string, params interface{}, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	paramsData, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("socketrpc: marshal params: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  paramsData,
	}

	c.conn.SetDeadline(time.Now().Add(30 * time.Second))
	defer c.conn.SetDeadline(time.Time{})

	if err := c.encoder.Encode(req); err != nil {
		return fmt.Errorf("socketrpc: send: %w", err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("socketrpc: read: %w", err)
		}
		return fmt.Errorf("socketrpc: connection closed")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("socketrpc: unmarshal response: %w", err)
	}
	if resp.ID != id {
		return fmt.Errorf("socketrpc: response id %d does not match request %d", resp.ID, id)
	}

	if resp.Error != nil {
		if resp.Error.Code == CodeStoreUnavailable {
			return apperr.StoreUnavailable("socketrpc."+method, resp.Error)
		}
		return resp.Error
	}

	if dest != nil {
		if err := json.Unmarshal(resp.Result, dest); err != nil {
			return fmt.Errorf("socketrpc: unmarshal result: %w", err)
		}
	}
	return nil
}

// IsStoreUnavailable reports whether err is a store-unavailable failure.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, apperr.ErrStoreUnavailable)
}

func (c *Client) Snapshot() (*model.Snapshot, error) {
	var result model.Snapshot
	if err := c.call("Snapshot", map[string]interface{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Logs() ([]model.EventRecord, error) {
	var result []model.EventRecord
	err := c.call("Logs", map[string]interface{}{}, &result)
	return result, err
}

func (c *Client) Stats() (model.Stats, error) {
	var result model.Stats
	err := c.call("Stats", map[string]interface{}{}, &result)
	return result, err
}

func (c *Client) TimeSeries() ([]model.TimeBucket, error) {
	var result []model.TimeBucket
	err := c.call("TimeSeries", map[string]interface{}{}, &result)
	return result, err
}

func (c *Client) GeoClusters() ([]model.GeoCluster, error) {
	var result []model.GeoCluster
	err := c.call("GeoClusters", map[string]interface{}{}, &result)
	return result, err
}

func (c *Client) Breakdowns() (model.Breakdowns, error) {
	var result model.Breakdowns
	err := c.call("Breakdowns", map[string]interface{}{}, &result)
	return result, err
}

func (c *Client) Search(query string) ([]model.EventRecord, error) {
	var result []model.EventRecord
	err := c.call("Search", map[string]interface{}{"Query": query}, &result)
	return result, err
}

func (c *Client) TopIPs(limit int) ([]model.DimensionCount, error) {
	var result []model.DimensionCount
	err := c.call("TopIPs", map[string]interface{}{"Limit": limit}, &result)
	return result, err
}

func (c *Client) Refresh() error {
	return c.call("Refresh", map[string]interface{}{}, nil)
}
