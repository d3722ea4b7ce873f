package socketrpc_test

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tinytelemetry/honeywatch/internal/apperr"
	"github.com/tinytelemetry/honeywatch/internal/model"
	"github.com/tinytelemetry/honeywatch/internal/socketrpc"
)

// mockQuerier is a minimal ViewQuerier for roundtrip testing.
type mockQuerier struct {
	mu          sync.Mutex
	unavailable bool
	refreshes   int
	lastQuery   string
	lastLimit   int
}

var testSnapshot = &model.Snapshot{
	Seq:         3,
	RefreshedAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	Records: []model.EventRecord{
		{Time: "2025-01-01T11:59:00", IP: "203.0.113.9", Path: "/wp-login.php", Tags: []string{"Bruteforce"}, Lat: 52.37, Lon: 4.89, Country: "NL"},
	},
	Stats:       model.Stats{Total: 1, ByCategory: map[string]int64{"Bruteforce": 1}},
	TimeSeries:  []model.TimeBucket{{Key: "2025-01-01T11", Count: 1}},
	GeoClusters: []model.GeoCluster{{Country: "NL", Lat: 52.37, Lon: 4.89, Count: 1}},
	Breakdowns: model.Breakdowns{
		TopIPs: []model.DimensionCount{{Value: "203.0.113.9", Count: 1}},
	},
}

func (m *mockQuerier) check() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return apperr.StoreUnavailable("mock", errors.New("no snapshot yet"))
	}
	return nil
}

func (m *mockQuerier) Snapshot() (*model.Snapshot, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	return testSnapshot, nil
}
func (m *mockQuerier) Logs() ([]model.EventRecord, error) { return testSnapshot.Records, m.check() }
func (m *mockQuerier) Stats() (model.Stats, error)        { return testSnapshot.Stats, m.check() }
func (m *mockQuerier) TimeSeries() ([]model.TimeBucket, error) {
	return testSnapshot.TimeSeries, m.check()
}
func (m *mockQuerier) GeoClusters() ([]model.GeoCluster, error) {
	return testSnapshot.GeoClusters, m.check()
}
func (m *mockQuerier) Breakdowns() (model.Breakdowns, error) {
	return testSnapshot.Breakdowns, m.check()
}
func (m *mockQuerier) Search(query string) ([]model.EventRecord, error) {
	m.mu.Lock()
	m.lastQuery = query
	m.mu.Unlock()
	return testSnapshot.Records, m.check()
}
func (m *mockQuerier) TopIPs(limit int) ([]model.DimensionCount, error) {
	m.mu.Lock()
	m.lastLimit = limit
	m.mu.Unlock()
	return testSnapshot.Breakdowns.TopIPs, m.check()
}
func (m *mockQuerier) Refresh() error {
	m.mu.Lock()
	m.refreshes++
	m.mu.Unlock()
	return m.check()
}

func startTestServer(t *testing.T, q model.ViewQuerier) (string, *socketrpc.Server) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "test.sock")
	srv := socketrpc.NewServer(sockPath, q, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	return sockPath, srv
}

func TestRoundtrip(t *testing.T) {
	q := &mockQuerier{}
	sockPath, srv := startTestServer(t, q)
	defer srv.Stop()

	client, err := socketrpc.Dial(sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	snap, err := client.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Seq != 3 || !snap.RefreshedAt.Equal(testSnapshot.RefreshedAt) || len(snap.Records) != 1 {
		t.Errorf("Snapshot = %+v", snap)
	}
	if snap.Records[0].Tags[0] != "Bruteforce" || snap.Records[0].Lat != 52.37 {
		t.Errorf("record = %+v", snap.Records[0])
	}

	stats, err := client.Stats()
	if err != nil || stats.Total != 1 || stats.ByCategory["Bruteforce"] != 1 {
		t.Errorf("Stats = %+v, %v", stats, err)
	}

	series, err := client.TimeSeries()
	if err != nil || len(series) != 1 || series[0].Key != "2025-01-01T11" {
		t.Errorf("TimeSeries = %+v, %v", series, err)
	}

	geo, err := client.GeoClusters()
	if err != nil || len(geo) != 1 || geo[0].Country != "NL" {
		t.Errorf("GeoClusters = %+v, %v", geo, err)
	}

	logs, err := client.Logs()
	if err != nil || len(logs) != 1 {
		t.Errorf("Logs = %+v, %v", logs, err)
	}

	b, err := client.Breakdowns()
	if err != nil || len(b.TopIPs) != 1 {
		t.Errorf("Breakdowns = %+v, %v", b, err)
	}

	if _, err := client.Search("wp-login"); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, err := client.TopIPs(7); err != nil {
		t.Fatalf("TopIPs: %v", err)
	}
	if err := client.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.lastQuery != "wp-login" || q.lastLimit != 7 || q.refreshes != 1 {
		t.Errorf("server saw query=%q limit=%d refreshes=%d", q.lastQuery, q.lastLimit, q.refreshes)
	}
}

func TestStoreUnavailablePropagates(t *testing.T) {
	q := &mockQuerier{unavailable: true}
	sockPath, srv := startTestServer(t, q)
	defer srv.Stop()

	client, err := socketrpc.Dial(sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	_, err = client.Stats()
	if !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Fatalf("Stats error = %v, want ErrStoreUnavailable", err)
	}
	if !socketrpc.IsStoreUnavailable(err) {
		t.Error("IsStoreUnavailable should report true")
	}
	var rpcErr *socketrpc.RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != socketrpc.CodeStoreUnavailable {
		t.Errorf("wrapped RPC error = %v", rpcErr)
	}
}

func TestConcurrentClients(t *testing.T) {
	sockPath, srv := startTestServer(t, &mockQuerier{})
	defer srv.Stop()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client, err := socketrpc.Dial(sockPath)
			if err != nil {
				errs <- err
				return
			}
			defer client.Close()
			for j := 0; j < 20; j++ {
				if _, err := client.Stats(); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("client error: %v", err)
	}
}

func TestLiveSocketIsNotReplaced(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "live.sock")

	first := socketrpc.NewServer(sockPath, &mockQuerier{}, nil)
	if err := first.Start(); err != nil {
		t.Fatalf("start first: %v", err)
	}

	second := socketrpc.NewServer(sockPath, &mockQuerier{}, nil)
	if err := second.Start(); err == nil {
		second.Stop()
		t.Fatal("second server should refuse a live socket")
	}
	first.Stop()

	third := socketrpc.NewServer(sockPath, &mockQuerier{}, nil)
	if err := third.Start(); err != nil {
		t.Fatalf("start after stop: %v", err)
	}
	third.Stop()
}

func TestStopClosesIdleConnections(t *testing.T) {
	sockPath, srv := startTestServer(t, &mockQuerier{})

	client, err := socketrpc.Dial(sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	done := make(chan struct{})
	go func() {
		srv.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on an idle client connection")
	}
}
