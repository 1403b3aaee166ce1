package utils

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"github.com/cppla/lifetrack/config"
)

func withRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetRedis(rc)
	t.Cleanup(func() {
		SetRedis(nil)
		_ = rc.Close()
	})
	return mr
}

func TestCacheRoundTripAndInvalidate(t *testing.T) {
	withRedis(t)
	ctx := context.Background()

	type row struct{ Points int64 }
	CacheSetJSON(ctx, "cache:ranking:unit:gym", []row{{Points: 10}}, time.Minute)
	CacheSetJSON(ctx, "cache:ranking:global:all", []row{{Points: 20}}, time.Minute)
	CacheSetJSON(ctx, "cache:other", row{Points: 1}, time.Minute)

	var got []row
	if !CacheGetJSON(ctx, "cache:ranking:unit:gym", &got) || len(got) != 1 || got[0].Points != 10 {
		t.Fatalf("cached = %+v", got)
	}

	InvalidateByPrefix(ctx, "cache:ranking:")
	if CacheGetJSON(ctx, "cache:ranking:unit:gym", &got) || CacheGetJSON(ctx, "cache:ranking:global:all", &got) {
		t.Error("ranking keys survived invalidation")
	}
	var other row
	if !CacheGetJSON(ctx, "cache:other", &other) {
		t.Error("unrelated key was invalidated")
	}
}

func TestCacheDisabled(t *testing.T) {
	SetRedis(nil)
	ctx := context.Background()
	CacheSetJSON(ctx, "k", 1, 0)
	var v int
	if CacheGetJSON(ctx, "k", &v) {
		t.Error("hit without redis")
	}
	InvalidateByPrefix(ctx, "k")
}

func TestTokenRoundTripAndRevocation(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "test-secret"})
	token, err := GenerateToken("user-42", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "user-42" || claims.ID == "" {
		t.Fatalf("claims = %+v", claims)
	}

	config.Set(config.AppConfig{JWTSecret: "other-secret"})
	if _, err := ParseToken(token); err == nil {
		t.Error("token accepted with the wrong secret")
	}

	ctx := context.Background()
	SetRedis(nil)
	if IsTokenRevoked(ctx, claims.ID) {
		t.Fatal("fresh token revoked")
	}
	RevokeToken(ctx, claims.ID, time.Now().Add(time.Hour))
	if !IsTokenRevoked(ctx, claims.ID) {
		t.Error("in-memory revocation missing")
	}

	mr := withRedis(t)
	RevokeToken(ctx, "jti-redis", time.Now().Add(time.Hour))
	if !IsTokenRevoked(ctx, "jti-redis") || !mr.Exists(revokedKeyPrefix+"jti-redis") {
		t.Error("redis revocation missing")
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"  Morning run  ", 0, "Morning run"},
		{"<script>alert(1)</script>Leg day", 0, "Leg day"},
		{"<b>Tom &amp; Jerry</b>", 0, "Tom & Jerry"},
		{"abcdef", 3, "abc"},
		{"&lt;img src=x&gt;", 0, "img src=x"},
	}
	for _, tt := range tests {
		if got := SanitizeText(tt.in, tt.max); got != tt.want {
			t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("warn").String() != "warn" || parseLevel("bogus").String() != "info" {
		t.Error("parseLevel mapping broken")
	}
}

func TestServerShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer("", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
