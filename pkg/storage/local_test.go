package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir(), PublicURL: "/media/"})
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	key := "posts/u1/p1.jpg"
	if err := s.Write(ctx, key, strings.NewReader("jpeg-bytes"), 10, "image/jpeg"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	ok, err := s.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true", ok, err)
	}

	rc, err := s.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "jpeg-bytes" {
		t.Fatalf("Read = %q", data)
	}

	if got := s.PublicURL(key); got != "/media/posts/u1/p1.jpg" {
		t.Fatalf("PublicURL = %q", got)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}
	if _, err := s.Read(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read after delete err = %v, want ErrNotFound", err)
	}
}

func TestLocalStorageKeepsKeysInsideBasePath(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalStorage(LocalConfig{BasePath: base})
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	path := s.fullPath("../../etc/passwd")
	if !strings.HasPrefix(path, s.BasePath()) {
		t.Fatalf("fullPath escaped base: %s", path)
	}
	if got := s.PublicURL("../x.jpg"); got != "/media/x.jpg" {
		t.Fatalf("PublicURL = %q", got)
	}
}

func TestLocalStorageHasNoUploadURL(t *testing.T) {
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	_, err = s.GetUploadURL(context.Background(), "k", "image/png", time.Minute)
	if !errors.Is(err, ErrUploadURLUnsupported) {
		t.Fatalf("err = %v, want ErrUploadURLUnsupported", err)
	}
}
