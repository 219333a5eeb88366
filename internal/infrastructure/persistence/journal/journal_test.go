package journal

import (
	"context"
	"testing"
	"time"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	base := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

	records := []Delivery{
		{ID: "a", Kind: "daily", Level: "info", Title: "📢 今日天气", Channel: "feishu", Success: true, CreatedAt: base},
		{ID: "b", Kind: "rain", Level: "warning", Title: "⚠️ 预计 12:00 有强降雨，请注意", Channel: "feishu",
			Success: false, Error: "notify feishu: status 500", CreatedAt: base.Add(time.Hour)},
		{ID: "c", Kind: "test", Level: "test", Title: "test", Channel: "console", Success: true, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, r := range records {
		if err := s.Record(ctx, r); err != nil {
			t.Fatalf("Record(%s) error = %v", r.ID, err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d rows", len(got))
	}
	if got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("Recent order = %s,%s, want c,b", got[0].ID, got[1].ID)
	}
	if got[1].Success || got[1].Error == "" {
		t.Errorf("failed delivery = %+v", got[1])
	}
	if !got[1].CreatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("CreatedAt = %v, want %v", got[1].CreatedAt, base.Add(time.Hour))
	}
}

func TestRecordDuplicateID(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	d := Delivery{ID: "dup", Kind: "daily", Level: "info", Title: "t", Channel: "feishu", Success: true}
	if err := s.Record(ctx, d); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := s.Record(ctx, d); err == nil {
		t.Fatal("Record() duplicate id error = nil, want error")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "nope", "x"); err == nil {
		t.Fatal("Open() error = nil, want error for unknown driver")
	}
}
