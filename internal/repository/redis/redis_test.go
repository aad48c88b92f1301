package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := New(mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("redis init: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestUserTokenLifecycle(t *testing.T) {
	mr, rdb := newTestClient(t)
	ctx := context.Background()
	repo := NewUserRepository(rdb, time.Minute, time.Hour)

	if _, err := repo.GetUserToken(ctx, 7); err != ErrTokenNotFound {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
	if err := repo.AddUserToken(ctx, 7, "tok"); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetUserToken(ctx, 7)
	if err != nil || got != "tok" {
		t.Fatalf("get: %q %v", got, err)
	}

	mr.FastForward(50 * time.Second)
	if err = repo.ExtendUserToken(ctx, 7); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(50 * time.Second)
	if _, err = repo.GetUserToken(ctx, 7); err != nil {
		t.Fatalf("token should survive after extend: %v", err)
	}

	if err = repo.DeleteUserToken(ctx, 7); err != nil {
		t.Fatal(err)
	}
	if _, err = repo.GetUserToken(ctx, 7); err != ErrTokenNotFound {
		t.Fatalf("expected token removed, got %v", err)
	}
}

func TestUserSessionOutlivesToken(t *testing.T) {
	mr, rdb := newTestClient(t)
	ctx := context.Background()
	repo := NewUserRepository(rdb, time.Minute, time.Hour)

	if _, err := repo.GetSession(ctx, 7); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	_ = repo.AddUserToken(ctx, 7, "tok")
	if err := repo.SetSession(ctx, 7, "sid"); err != nil {
		t.Fatal(err)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := repo.GetUserToken(ctx, 7); err != ErrTokenNotFound {
		t.Fatalf("token should expire with access ttl, got %v", err)
	}
	if sid, err := repo.GetSession(ctx, 7); err != nil || sid != "sid" {
		t.Fatalf("session: %q %v", sid, err)
	}

	if err := repo.DeleteUserToken(ctx, 7); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetSession(ctx, 7); err != ErrSessionNotFound {
		t.Fatalf("logout must drop the session, got %v", err)
	}
}

func TestEmailCodeTwoPhase(t *testing.T) {
	_, rdb := newTestClient(t)
	ctx := context.Background()
	repo := NewEmailRepository(rdb)

	if err := repo.Confirm(ctx, ScopeReset, "a@b.c"); err != ErrCodeConfirmedFailed {
		t.Fatalf("confirm without pending: %v", err)
	}
	if err := repo.SetPending(ctx, ScopeReset, "a@b.c", "123456"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetConfirmed(ctx, ScopeReset, "a@b.c"); err != ErrEmailNotFound {
		t.Fatalf("pending code must not be readable as confirmed: %v", err)
	}
	if err := repo.Confirm(ctx, ScopeReset, "a@b.c"); err != nil {
		t.Fatal(err)
	}
	code, err := repo.GetConfirmed(ctx, ScopeReset, "a@b.c")
	if err != nil || code != "123456" {
		t.Fatalf("confirmed code: %q %v", code, err)
	}
	_ = repo.DeleteConfirmed(ctx, ScopeReset, "a@b.c")
	if _, err = repo.GetConfirmed(ctx, ScopeReset, "a@b.c"); err != ErrEmailNotFound {
		t.Fatalf("expected deleted, got %v", err)
	}
}

func TestEmailCodeAttempts(t *testing.T) {
	mr, rdb := newTestClient(t)
	ctx := context.Background()
	repo := NewEmailRepository(rdb)

	for want := int64(1); want <= 3; want++ {
		n, err := repo.IncrAttempts(ctx, ScopeReset, "a@b.c")
		if err != nil || n != want {
			t.Fatalf("attempt %d: n=%d err=%v", want, n, err)
		}
	}
	if ttl := mr.TTL(codeKey(ScopeReset, AttemptsSuffix, "a@b.c")); ttl <= 0 || ttl > DefaultEmailCodeTTL {
		t.Fatalf("attempt counter ttl %v", ttl)
	}

	// 新验证码清零
	if err := repo.SetPending(ctx, ScopeReset, "a@b.c", "654321"); err != nil {
		t.Fatal(err)
	}
	if n, _ := repo.IncrAttempts(ctx, ScopeReset, "a@b.c"); n != 1 {
		t.Fatalf("counter not reset by new code: %d", n)
	}
	_ = repo.DeleteConfirmed(ctx, ScopeReset, "a@b.c")
	if mr.Exists(codeKey(ScopeReset, AttemptsSuffix, "a@b.c")) {
		t.Fatal("counter must go with the code")
	}
}

func TestPageCacheInvalidate(t *testing.T) {
	_, rdb := newTestClient(t)
	ctx := context.Background()
	cache := NewPageCache(rdb)

	if _, ok, err := cache.Get(ctx, "index"); ok || err != nil {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}
	if err := cache.Set(ctx, "index", []byte("<p>hi</p>"), time.Minute); err != nil {
		t.Fatal(err)
	}
	body, ok, err := cache.Get(ctx, "index")
	if err != nil || !ok || string(body) != "<p>hi</p>" {
		t.Fatalf("cached: %q ok=%v err=%v", body, ok, err)
	}
	if err = cache.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ = cache.Get(ctx, "index"); ok {
		t.Fatal("expected miss after invalidate")
	}
}

func TestDistLockOnlyOwnerReleases(t *testing.T) {
	_, rdb := newTestClient(t)
	ctx := context.Background()
	lock := NewDistLock(rdb)

	got, err := lock.Acquire(ctx, "index", "owner")
	if err != nil || !got {
		t.Fatalf("acquire: %v %v", got, err)
	}
	if got, _ = lock.Acquire(ctx, "index", "other"); got {
		t.Fatal("second acquire must fail")
	}
	if err = lock.Release(ctx, "index", "other"); err != nil {
		t.Fatal(err)
	}
	if got, _ = lock.Acquire(ctx, "index", "other"); got {
		t.Fatal("non-owner release must not free the lock")
	}
	_ = lock.Release(ctx, "index", "owner")
	if got, _ = lock.Acquire(ctx, "index", "other"); !got {
		t.Fatal("lock should be free after owner release")
	}
}
