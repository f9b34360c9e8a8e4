package discover_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-newsletter-exporter/internal/discover"
	"go-newsletter-exporter/internal/fetch"
	"go-newsletter-exporter/internal/model"
)

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"mynews", "https://mynews.substack.com"},
		{"mynews.example.com", "https://mynews.example.com"},
		{"https://mynews.example.com", "https://mynews.example.com"},
		{"http://mynews.example.com/p/", "http://mynews.example.com"},
	}
	for _, c := range cases {
		got, err := discover.Normalize(c.in)
		if err != nil {
			t.Fatalf("normalize %q: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("normalize %q = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalize_Empty(t *testing.T) {
	if _, err := discover.Normalize("   "); !model.IsConfigError(err) {
		t.Fatalf("err = %v, want config error", err)
	}
}

const feedSample = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Letters</title>
    <item>
      <title>Newer</title><link>https://ex/p/newer</link><guid>g-newer</guid>
      <pubDate>Tue, 03 Jan 2023 10:00:00 GMT</pubDate>
      <author>ann@example.com (Ann Writer)</author>
    </item>
    <item>
      <title>Older</title><link>https://ex/p/older</link><guid>g-older</guid>
      <pubDate>Mon, 02 Jan 2023 10:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func TestLoad_FromFeed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedSample))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><meta property="og:image" content="https://ex/cover.png"/></head></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cl, _ := fetch.New(fetch.Options{Timeout: 5 * time.Second})
	pub, posts, err := discover.Load(context.Background(), cl, srv.URL)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pub.Title != "Letters" {
		t.Fatalf("title = %q", pub.Title)
	}
	if pub.CoverURL != "https://ex/cover.png" {
		t.Fatalf("cover = %q", pub.CoverURL)
	}
	if len(posts) != 2 {
		t.Fatalf("posts = %d", len(posts))
	}
	if posts[0].ID != "g-newer" {
		t.Fatalf("order wrong: %q first", posts[0].ID)
	}
	if _, ok := model.ParseTimeFlexible(posts[0].PublishedAt); !ok {
		t.Fatalf("published not normalized: %q", posts[0].PublishedAt)
	}
}

func TestLoad_ArchiveFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/archive", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Arch Letters</title></head><body>
<a href="/p/alpha">Alpha post</a>
<a href="/p/beta">Beta post</a>
<a href="/p/alpha">Alpha post</a>
<a href="/about">About</a>
</body></html>`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cl, _ := fetch.New(fetch.Options{Timeout: 5 * time.Second})
	pub, posts, err := discover.Load(context.Background(), cl, srv.URL)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pub.Title != "Arch Letters" {
		t.Fatalf("title = %q", pub.Title)
	}
	if len(posts) != 2 {
		t.Fatalf("posts = %d (dedup failed?)", len(posts))
	}
	if !strings.HasSuffix(posts[0].URL, "/p/alpha") || posts[0].Title != "Alpha post" {
		t.Fatalf("post 0 = %+v", posts[0])
	}
	if posts[0].PublishedAt <= posts[1].PublishedAt {
		t.Fatalf("synthetic timestamps should decrease: %q vs %q", posts[0].PublishedAt, posts[1].PublishedAt)
	}
}
