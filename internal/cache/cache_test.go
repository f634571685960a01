package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestRedisPostCacheKeys(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	c := NewRedisPostCacheFromClient(client, "snap")
	if got := c.BuildKeyByID("p1"); got != "snap:id:p1" {
		t.Fatalf("BuildKeyByID = %q", got)
	}
	if got := c.versionKey("p1"); got != "snap:ver:p1" {
		t.Fatalf("versionKey = %q", got)
	}

	c = NewRedisPostCacheFromClient(client, "")
	if got := c.BuildKeyByID("p1"); got != "post:id:p1" {
		t.Fatalf("default prefix key = %q", got)
	}
}

func TestNoopPostCacheMisses(t *testing.T) {
	var c PostCache = NoopPostCache{}
	stored, err := c.SetIfVersion(context.Background(), "p1", 0, &PostCacheResult{}, 0)
	if err != nil || stored {
		t.Fatalf("SetIfVersion = %v, %v; want false, nil", stored, err)
	}
	if err := c.Invalidate(context.Background(), "p1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := c.Get(context.Background(), "p1"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get err = %v, want ErrCacheMiss", err)
	}
}
