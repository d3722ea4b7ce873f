package liveview

import (
	"context"
	"errors"
	"testing"

	"github.com/tinytelemetry/honeywatch/internal/apperr"
	"github.com/tinytelemetry/honeywatch/internal/model"
)

func TestQuerier_StoreUnavailableBeforeFirstSnapshot(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{}
	boom := errors.New("io failure")
	reader.set(nil, boom)
	c := New(reader, nil)
	q := NewQuerier(c)

	if _, err := q.Stats(); !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Fatalf("Stats error = %v, want ErrStoreUnavailable", err)
	}
	if err := q.Refresh(); !errors.Is(err, boom) {
		t.Fatalf("Refresh error = %v, want %v", err, boom)
	}
	_, err := q.Logs()
	if !errors.Is(err, apperr.ErrStoreUnavailable) || !errors.Is(err, boom) {
		t.Errorf("Logs error = %v, want store unavailable wrapping cause", err)
	}
}

func TestQuerier_ViewsFromOneSnapshot(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{}
	reader.set([]model.EventRecord{
		{Time: "2024-05-01T14:00:00", IP: "1.1.1.1", Path: "/login", Tags: []string{"Bruteforce"}, Lat: 1, Lon: 1},
		{Time: "2024-05-01T15:00:00", IP: "2.2.2.2", Path: "/search", Tags: []string{"SQLi"}},
		{IP: "1.1.1.1", Path: "/login", Tags: []string{"Bruteforce"}},
	}, nil)
	c := New(reader, nil)
	if err := c.RefreshNow(context.Background()); err != nil {
		t.Fatalf("RefreshNow: %v", err)
	}
	q := NewQuerier(c)

	stats, err := q.Stats()
	if err != nil || stats.Total != 3 || stats.ByCategory["Bruteforce"] != 2 {
		t.Errorf("Stats = %+v, %v", stats, err)
	}
	series, _ := q.TimeSeries()
	if len(series) != 2 {
		t.Errorf("TimeSeries = %v, want 2 buckets", series)
	}
	geo, _ := q.GeoClusters()
	if len(geo) != 1 {
		t.Errorf("GeoClusters = %v, want 1 cluster", geo)
	}
	hits, _ := q.Search("LOGIN")
	if len(hits) != 2 || hits[0].Time != "" {
		t.Errorf("Search = %+v, want the two login records newest first", hits)
	}
	top, _ := q.TopIPs(1)
	if len(top) != 1 || top[0].Value != "1.1.1.1" || top[0].Count != 2 {
		t.Errorf("TopIPs(1) = %v", top)
	}
	b, _ := q.Breakdowns()
	if len(b.Tags) != 2 {
		t.Errorf("Breakdowns.Tags = %v", b.Tags)
	}
}
