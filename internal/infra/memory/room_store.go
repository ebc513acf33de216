package memory

import (
	"sync"

	"quiz-room-service/internal/app"
)

// RoomStore is an in-memory implementation of app.RoomRepository.
type RoomStore struct {
	newRoom func(code string) *app.Room

	mu    sync.RWMutex
	rooms map[string]*app.Room
}

func NewRoomStore(newRoom func(code string) *app.Room) *RoomStore {
	return &RoomStore{
		newRoom: newRoom,
		rooms:   make(map[string]*app.Room),
	}
}

func (s *RoomStore) GetOrCreate(code string) (*app.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[code]; ok {
		return room, false
	}
	room := s.newRoom(code)
	s.rooms[code] = room
	return room, true
}

func (s *RoomStore) Get(code string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

func (s *RoomStore) DeleteIfEmpty(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return false
	}
	if !room.CloseIfEmpty() {
		return false
	}
	delete(s.rooms, code)
	return true
}

// Len reports how many rooms are registered.
func (s *RoomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
