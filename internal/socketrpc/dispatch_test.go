package socketrpc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/tinytelemetry/honeywatch/internal/apperr"
	"github.com/tinytelemetry/honeywatch/internal/model"
)

// stubQuerier returns fixed values for dispatch unit testing.
type stubQuerier struct {
	err error
}

func (q *stubQuerier) Snapshot() (*model.Snapshot, error) {
	return &model.Snapshot{Seq: 1}, q.err
}
func (q *stubQuerier) Logs() ([]model.EventRecord, error) {
	return []model.EventRecord{{IP: "10.0.0.1"}}, q.err
}
func (q *stubQuerier) Stats() (model.Stats, error) {
	return model.Stats{Total: 5, ByCategory: map[string]int64{"XSS": 5}}, q.err
}
func (q *stubQuerier) TimeSeries() ([]model.TimeBucket, error) { return nil, q.err }
func (q *stubQuerier) GeoClusters() ([]model.GeoCluster, error) { return nil, q.err }
func (q *stubQuerier) Breakdowns() (model.Breakdowns, error)   { return model.Breakdowns{}, q.err }
func (q *stubQuerier) Search(query string) ([]model.EventRecord, error) {
	return []model.EventRecord{{IP: query}}, q.err
}
func (q *stubQuerier) TopIPs(limit int) ([]model.DimensionCount, error) {
	return []model.DimensionCount{{Value: "limit", Count: int64(limit)}}, q.err
}
func (q *stubQuerier) Refresh() error { return q.err }

func newTestDispatcher(err error) *Server {
	return NewServer("", &stubQuerier{err: err}, nil)
}

func TestDispatch_Stats(t *testing.T) {
	s := newTestDispatcher(nil)
	resp := s.dispatch(Request{JSONRPC: "2.0", ID: 4, Method: "Stats"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	if resp.ID != 4 {
		t.Errorf("ID = %d, want 4", resp.ID)
	}
	var stats model.Stats
	if err := json.Unmarshal(resp.Result, &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stats.Total != 5 {
		t.Errorf("Total = %d, want 5", stats.Total)
	}
}

func TestDispatch_SearchParams(t *testing.T) {
	s := newTestDispatcher(nil)

	resp := s.dispatch(Request{Method: "Search", Params: json.RawMessage(`{"Query":"sqli"}`)})
	var records []model.EventRecord
	if err := json.Unmarshal(resp.Result, &records); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(records) != 1 || records[0].IP != "sqli" {
		t.Errorf("records = %+v", records)
	}

	// Empty and null params fall back to an empty query.
	for _, params := range []json.RawMessage{nil, json.RawMessage(`null`)} {
		resp := s.dispatch(Request{Method: "Search", Params: params})
		if resp.Error != nil {
			t.Errorf("params %q: unexpected error %v", params, resp.Error)
		}
	}

	resp = s.dispatch(Request{Method: "Search", Params: json.RawMessage(`{"Query":42}`)})
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("bad params error = %+v, want code %d", resp.Error, CodeInvalidParams)
	}
}

func TestDispatch_TopIPsLimit(t *testing.T) {
	s := newTestDispatcher(nil)
	resp := s.dispatch(Request{Method: "TopIPs", Params: json.RawMessage(`{"Limit":3}`)})
	var top []model.DimensionCount
	if err := json.Unmarshal(resp.Result, &top); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(top) != 1 || top[0].Count != 3 {
		t.Errorf("top = %+v", top)
	}
}

func TestDispatch_ErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"store unavailable", apperr.StoreUnavailable("read", errors.New("eacces")), CodeStoreUnavailable},
		{"other", errors.New("boom"), CodeApplicationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestDispatcher(tt.err)
			resp := s.dispatch(Request{Method: "Refresh"})
			if resp.Error == nil || resp.Error.Code != tt.want {
				t.Errorf("error = %+v, want code %d", resp.Error, tt.want)
			}
		})
	}
}

func TestDispatch_UnknownMethod(t *testing.T) {
	s := newTestDispatcher(nil)
	resp := s.dispatch(Request{Method: "DropTables"})
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Errorf("error = %+v, want method not found", resp.Error)
	}
}
