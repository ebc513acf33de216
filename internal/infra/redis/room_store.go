package redis

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-room-service/internal/app"
)

const (
	activeRoomsKey = "quiz:rooms:active"
	markerTimeout  = 2 * time.Second
	defaultRoomTTL = 10 * time.Minute
)

// RoomStore is a Redis-aware implementation of app.RoomRepository.
// Rooms and their fan-out live in process; Redis only carries a liveness
// marker per room code plus a sorted set of active codes scored by expiry,
// so operators can see which rooms are being served.
type RoomStore struct {
	client  *redis.Client
	ttl     time.Duration
	newRoom func(code string) *app.Room
	now     func() time.Time

	mu    sync.RWMutex
	rooms map[string]*app.Room

	touchMu sync.Mutex
	touched map[string]time.Time
}

func NewRoomStore(client *redis.Client, ttl time.Duration, newRoom func(code string) *app.Room) *RoomStore {
	if ttl <= 0 {
		ttl = defaultRoomTTL
	}
	return &RoomStore{
		client:  client,
		ttl:     ttl,
		newRoom: newRoom,
		now:     time.Now,
		rooms:   make(map[string]*app.Room),
		touched: make(map[string]time.Time),
	}
}

func (s *RoomStore) GetOrCreate(code string) (*app.Room, bool) {
	s.mu.Lock()
	room, ok := s.rooms[code]
	if !ok {
		room = s.newRoom(code)
		s.rooms[code] = room
	}
	s.mu.Unlock()

	s.touch(code, !ok)
	return room, !ok
}

func (s *RoomStore) Get(code string) (*app.Room, bool) {
	s.mu.RLock()
	room, ok := s.rooms[code]
	s.mu.RUnlock()
	if ok {
		s.touch(code, false)
	}
	return room, ok
}

func (s *RoomStore) DeleteIfEmpty(code string) bool {
	s.mu.Lock()
	room, ok := s.rooms[code]
	if !ok || !room.CloseIfEmpty() {
		s.mu.Unlock()
		return false
	}
	delete(s.rooms, code)
	s.mu.Unlock()

	s.touchMu.Lock()
	delete(s.touched, code)
	s.touchMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), markerTimeout)
	defer cancel()
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(code))
	pipe.ZRem(ctx, activeRoomsKey, code)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("redis: clear room %s: %v", code, err)
	}
	return true
}

// ActiveCodes lists room codes whose marker has not expired. Entries left
// behind by a crashed process age out of the set on read.
func (s *RoomStore) ActiveCodes(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(s.now().Unix(), 10)
	if err := s.client.ZRemRangeByScore(ctx, activeRoomsKey, "-inf", "("+now).Err(); err != nil {
		return nil, err
	}
	return s.client.ZRangeByScore(ctx, activeRoomsKey, &redis.ZRangeBy{Min: now, Max: "+inf"}).Result()
}

// touch refreshes the room's marker on activity, at most once per half ttl.
func (s *RoomStore) touch(code string, force bool) {
	now := s.now()
	s.touchMu.Lock()
	last, seen := s.touched[code]
	due := force || !seen || now.Sub(last) >= s.ttl/2
	if due {
		s.touched[code] = now
	}
	s.touchMu.Unlock()
	if !due {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), markerTimeout)
	defer cancel()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(code), now.UTC().Format(time.RFC3339), s.ttl)
	pipe.ZAdd(ctx, activeRoomsKey, redis.Z{Score: float64(now.Add(s.ttl).Unix()), Member: code})
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("redis: mark room %s: %v", code, err)
	}
}

func (s *RoomStore) key(code string) string {
	return "quiz:room:" + code
}
