package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestNewPingsServer(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client, err := New(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer client.Close()

	if err := Ping(client)(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	mr.Close()
	if err := Ping(client)(context.Background()); err == nil {
		t.Fatal("expected ping to fail after shutdown")
	}
}

func TestNewUnreachable(t *testing.T) {
	if _, err := New(context.Background(), "127.0.0.1:1"); err == nil {
		t.Fatal("expected error for unreachable redis")
	}
}
