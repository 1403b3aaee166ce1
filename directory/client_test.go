package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"github.com/cppla/lifetrack/gamification"
)

func newServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/users/alice":
			_, _ = w.Write([]byte(`{"name":"Alice"}`))
		case "/users/bob":
			_, _ = w.Write([]byte(`{"data":{"display_name":"Bob B."}}`))
		case "/users/broken":
			_, _ = w.Write([]byte(`{not json`))
		case "/units/gym":
			_, _ = w.Write([]byte(`{"name":"Downtown Gym"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveUserNames(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c := New(Options{BaseURL: srv.URL + "/"}, nil, zaptest.NewLogger(t))

	names := c.ResolveUserNames(context.Background(), []string{"alice", "bob", "ghost", "broken", "alice"}, "tok")
	want := map[string]string{
		"alice":  "Alice",
		"bob":    "Bob B.",
		"ghost":  gamification.UnknownUserName,
		"broken": gamification.UnknownUserName,
	}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for id, n := range want {
		if names[id] != n {
			t.Errorf("names[%s] = %q, want %q", id, names[id], n)
		}
	}
	if hits != 4 {
		t.Errorf("requests = %d, want 4 (duplicates collapsed)", hits)
	}
}

func TestResolveFallsBackWithoutToken(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c := New(Options{BaseURL: srv.URL}, nil, zaptest.NewLogger(t))

	if got := c.ResolveUnitName(context.Background(), "gym", ""); got != gamification.UnknownUnitName {
		t.Errorf("unit name = %q", got)
	}
	if got := c.ResolveUnitName(context.Background(), "gym", "tok"); got != "Downtown Gym" {
		t.Errorf("unit name = %q", got)
	}
}

func TestResolveUnreachable(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:1"}, nil, zaptest.NewLogger(t))
	if got := c.ResolveUnitName(context.Background(), "gym", "tok"); got != gamification.UnknownUnitName {
		t.Errorf("unit name = %q", got)
	}
	unconfigured := New(Options{}, nil, nil)
	if got := unconfigured.ResolveUserNames(context.Background(), []string{"a"}, "tok")["a"]; got != gamification.UnknownUserName {
		t.Errorf("user name = %q", got)
	}
}

func TestNamesAreCachedInRedis(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := New(Options{BaseURL: srv.URL}, rdb, zaptest.NewLogger(t))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if got := c.ResolveUserNames(ctx, []string{"alice"}, "tok")["alice"]; got != "Alice" {
			t.Fatalf("name = %q", got)
		}
	}
	if hits != 1 {
		t.Errorf("requests = %d, want 1", hits)
	}
	if v, _ := mr.Get("cache:directory:users:alice"); !strings.EqualFold(v, "Alice") {
		t.Errorf("cached value = %q", v)
	}

	// Placeholders are never cached.
	c.ResolveUserNames(ctx, []string{"ghost"}, "tok")
	if mr.Exists("cache:directory:users:ghost") {
		t.Error("placeholder was cached")
	}
}
