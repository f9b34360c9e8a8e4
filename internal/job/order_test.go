package job

import (
	"strings"
	"testing"

	"go-newsletter-exporter/internal/config"
	"go-newsletter-exporter/internal/model"
)

func post(id, title, published string) model.PostSummary {
	return model.PostSummary{ID: id, Title: title, PublishedAt: published, URL: "https://ex/p/" + id}
}

func TestOrderPosts_DateDescWithTitleTiebreak(t *testing.T) {
	cfg := &config.Config{OrderMode: model.OrderByDate, SortDirection: model.SortDesc}
	posts := []model.PostSummary{
		post("a", "zeta", "2024-01-01T00:00:00Z"),
		post("b", "Alpha", "2024-01-01T00:00:00Z"),
		post("c", "late", "2024-06-01T00:00:00Z"),
	}
	got := orderPosts(posts, cfg)
	if got[0].ID != "c" || got[1].ID != "b" || got[2].ID != "a" {
		t.Fatalf("order = %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestOrderPosts_DateAsc(t *testing.T) {
	cfg := &config.Config{OrderMode: model.OrderByDate, SortDirection: model.SortAsc}
	posts := []model.PostSummary{
		post("new", "n", "2024-06-01T00:00:00Z"),
		post("old", "o", "2023-06-01T00:00:00Z"),
	}
	got := orderPosts(posts, cfg)
	if got[0].ID != "old" {
		t.Fatalf("asc order wrong: %s first", got[0].ID)
	}
}

func TestOrderPosts_UnparsableDateSinksToEpoch(t *testing.T) {
	cfg := &config.Config{OrderMode: model.OrderByDate, SortDirection: model.SortDesc}
	posts := []model.PostSummary{
		post("bad", "b", "not a date"),
		post("good", "g", "2024-01-01T00:00:00Z"),
	}
	got := orderPosts(posts, cfg)
	if got[0].ID != "good" {
		t.Fatalf("unparsable date should sort last on desc: %s first", got[0].ID)
	}
}

func TestOrderPosts_ManualNamedFirstMissingSkipped(t *testing.T) {
	cfg := &config.Config{
		OrderMode:     model.OrderManual,
		SortDirection: model.SortDesc,
		ManualOrder:   []string{"b", "ghost", "a"},
	}
	posts := []model.PostSummary{
		post("a", "a", "2024-01-01T00:00:00Z"),
		post("b", "b", "2024-02-01T00:00:00Z"),
		post("c", "c", "2024-03-01T00:00:00Z"),
		post("d", "d", "2024-04-01T00:00:00Z"),
	}
	got := orderPosts(posts, cfg)
	want := []string{"b", "a", "d", "c"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("pos %d = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestSelectPosts_EntireProfile(t *testing.T) {
	cfg := &config.Config{Mode: model.SelectEntireProfile}
	posts := []model.PostSummary{post("a", "a", ""), post("b", "b", "")}
	got, err := selectPosts(posts, cfg)
	if err != nil || len(got) != 2 {
		t.Fatalf("got %d err %v", len(got), err)
	}
}

func TestSelectPosts_EmptySubsetIsConfigError(t *testing.T) {
	cfg := &config.Config{Mode: model.SelectSpecificPosts}
	_, err := selectPosts([]model.PostSummary{post("a", "a", "")}, cfg)
	if !model.IsConfigError(err) {
		t.Fatalf("err = %v, want config error", err)
	}
}

func TestSelectPosts_NoMatchIsConfigError(t *testing.T) {
	cfg := &config.Config{Mode: model.SelectSpecificPosts, SelectedPostIDs: []string{"nope"}}
	_, err := selectPosts([]model.PostSummary{post("a", "a", "")}, cfg)
	if !model.IsConfigError(err) {
		t.Fatalf("err = %v, want config error", err)
	}
}

func TestSelectPosts_MatchesByURLToo(t *testing.T) {
	cfg := &config.Config{Mode: model.SelectSpecificPosts, SelectedPostIDs: []string{"https://ex/p/a"}}
	got, err := selectPosts([]model.PostSummary{post("a", "a", ""), post("b", "b", "")}, cfg)
	if err != nil || len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("got %v err %v", got, err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"My Post: Part 1?", "My Post_ Part 1_"},
		{"...", "untitled"},
		{"a  b   c", "a b c"},
		{"trailing dots...", "trailing dots"},
		{"", "untitled"},
	}
	for _, c := range cases {
		if got := sanitizeFilename(c.in); got != c.want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
	long := sanitizeFilename(strings.Repeat("x", 300))
	if len(long) != 120 {
		t.Fatalf("len = %d, want 120", len(long))
	}
}
