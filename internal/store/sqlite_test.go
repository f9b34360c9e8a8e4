package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go-newsletter-exporter/internal/model"
	"go-newsletter-exporter/internal/store"
)

func openTemp(t *testing.T) *store.SQLite {
	t.Helper()
	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertAndListPosts(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	pub := model.Publication{URL: "https://ex", Title: "Letters", Author: "Ann"}
	if err := s.UpsertPublication(ctx, pub); err != nil {
		t.Fatalf("upsert pub: %v", err)
	}
	posts := []model.PostSummary{
		{ID: "a", Title: "A", PublishedAt: "2024-01-01T00:00:00Z", URL: "https://ex/p/a"},
		{ID: "b", Title: "B", PublishedAt: "2024-02-01T00:00:00Z", URL: "https://ex/p/b"},
	}
	for _, p := range posts {
		if err := s.UpsertPost(ctx, pub.URL, p); err != nil {
			t.Fatalf("upsert post: %v", err)
		}
	}
	// 重复写入应覆盖而非报错
	posts[0].Title = "A2"
	if err := s.UpsertPost(ctx, pub.URL, posts[0]); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	got, err := s.ListPosts(ctx, pub.URL)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].ID != "b" {
		t.Fatalf("order wrong: %q first", got[0].ID)
	}
	if got[1].Title != "A2" {
		t.Fatalf("overwrite lost: %q", got[1].Title)
	}
}

func TestRecordAndListRuns(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	result := model.ExportResult{
		Succeeded:   []string{"a", "b"},
		Failed:      []model.ExportFailure{{PostID: "x", Reason: "404"}},
		OutputFiles: []string{"/tmp/a.txt"},
		FinishedAt:  time.Now(),
	}
	if err := s.RecordRun(ctx, "Letters", []model.Format{model.FormatTXT, model.FormatEPUB}, result); err != nil {
		t.Fatalf("record: %v", err)
	}
	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len = %d", len(runs))
	}
	if runs[0].Formats != "txt,epub" || runs[0].Succeeded != 2 || runs[0].FailedCount != 1 {
		t.Fatalf("run = %+v", runs[0])
	}
}

func TestReset(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.UpsertPublication(ctx, model.Publication{URL: "https://ex"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertPost(ctx, "https://ex", model.PostSummary{ID: "a"}); err != nil {
		t.Fatalf("upsert post: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	got, err := s.ListPosts(ctx, "https://ex")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len = %d after reset", len(got))
	}
}

func TestUpsertPost_RequiresID(t *testing.T) {
	s := openTemp(t)
	if err := s.UpsertPost(context.Background(), "https://ex", model.PostSummary{}); err == nil {
		t.Fatalf("missing id should fail")
	}
}
