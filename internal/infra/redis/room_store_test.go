package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-room-service/internal/app"
)

func TestRoomStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRoomStore(client, time.Minute, app.RoomFactory(app.DefaultSettings()))

	if _, created := store.GetOrCreate("ABC555"); !created {
		t.Fatalf("expected room to be created")
	}
	if !mr.Exists("quiz:room:ABC555") {
		t.Fatalf("expected redis key to be set")
	}
	codes, err := store.ActiveCodes(context.Background())
	if err != nil || len(codes) != 1 || codes[0] != "ABC555" {
		t.Fatalf("expected ABC555 active, got %v (%v)", codes, err)
	}

	if !store.DeleteIfEmpty("ABC555") {
		t.Fatalf("expected empty room deleted")
	}
	if mr.Exists("quiz:room:ABC555") {
		t.Fatalf("expected redis key to be removed")
	}
	codes, _ = store.ActiveCodes(context.Background())
	if len(codes) != 0 {
		t.Fatalf("expected no active rooms, got %v", codes)
	}
}

func TestRoomStoreMarkerExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRoomStore(client, time.Minute, app.RoomFactory(app.DefaultSettings()))
	store.GetOrCreate("ABC555")

	mr.FastForward(2 * time.Minute)
	if mr.Exists("quiz:room:ABC555") {
		t.Fatalf("expected liveness marker to expire")
	}
	if _, ok := store.Get("ABC555"); !ok {
		t.Fatalf("expected in-process room to outlive its marker")
	}
}

func TestRoomStoreRefreshesMarkerOnActivity(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRoomStore(client, time.Minute, app.RoomFactory(app.DefaultSettings()))
	clock := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	store.GetOrCreate("ABC555")

	clock = clock.Add(40 * time.Second)
	mr.FastForward(40 * time.Second)
	if _, ok := store.Get("ABC555"); !ok {
		t.Fatalf("expected room present")
	}

	clock = clock.Add(40 * time.Second)
	mr.FastForward(40 * time.Second)
	if !mr.Exists("quiz:room:ABC555") {
		t.Fatalf("expected marker refreshed by activity")
	}
	codes, err := store.ActiveCodes(context.Background())
	if err != nil || len(codes) != 1 {
		t.Fatalf("expected room still active, got %v (%v)", codes, err)
	}
}

func TestActiveCodesDropsStaleEntries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	crashed := NewRoomStore(client, time.Minute, app.RoomFactory(app.DefaultSettings()))
	clock := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	crashed.now = func() time.Time { return clock }
	crashed.GetOrCreate("GONE01")

	survivor := NewRoomStore(client, time.Minute, app.RoomFactory(app.DefaultSettings()))
	survivor.now = func() time.Time { return clock.Add(2 * time.Minute) }
	survivor.GetOrCreate("LIVE01")

	codes, err := survivor.ActiveCodes(context.Background())
	if err != nil {
		t.Fatalf("active codes: %v", err)
	}
	if len(codes) != 1 || codes[0] != "LIVE01" {
		t.Fatalf("expected only LIVE01, got %v", codes)
	}
}
