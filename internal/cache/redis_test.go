package cache

import (
	"context"
	"testing"
)

func TestHelpersWithoutRedis(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	SetUnreadCount(ctx, 7, 3)
	if _, ok := GetUnreadCount(ctx, 7); ok {
		t.Fatal("expected cache miss without redis")
	}
	InvalidateUnread(ctx, 7, 8)
	InvalidateUser(ctx, 7)

	if !ClaimWelcome(ctx, "abc") || !ClaimWelcome(ctx, "abc") {
		t.Fatal("welcome should always show when redis is unavailable")
	}
	if IsHealthy() {
		t.Fatal("nil client cannot be healthy")
	}
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestKeys(t *testing.T) {
	if UnreadKey(12) != "notifications:unread:12" {
		t.Fatalf("unexpected unread key %s", UnreadKey(12))
	}
	if UserKey(3) != "users:snapshot:3" {
		t.Fatalf("unexpected user key %s", UserKey(3))
	}
	if WelcomeKey("t-1") != "session:welcome:t-1" {
		t.Fatalf("unexpected welcome key %s", WelcomeKey("t-1"))
	}
}
