package store

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
)

const favoritesKey = "favorites"

// KV описывает durable-хранилище, в котором переживает рестарты
// небольшое состояние клиента.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// FavoritesStore держит избранные товары. Состояние полностью локальное,
// сервер о нём не знает; между запусками живёт в KV.
type FavoritesStore struct {
	mu     sync.Mutex
	ids    []string
	logger *slog.Logger
	kv     KV

	subMu sync.Mutex
	subs  []func()
}

func NewFavorites(logger *slog.Logger, kv KV) *FavoritesStore {
	s := &FavoritesStore{
		logger: logger.With(slog.String("store", "favorites")),
		kv:     kv,
	}
	if raw, err := s.kv.Get(favoritesKey); err == nil {
		if err := json.Unmarshal([]byte(raw), &s.ids); err != nil {
			s.logger.Warn("failed to decode stored favorites", slog.Any("error", err))
			s.ids = nil
		}
	}
	return s
}

// Toggle добавляет товар в избранное либо убирает его оттуда.
func (s *FavoritesStore) Toggle(id string) {
	s.mu.Lock()
	if i := slices.Index(s.ids, id); i >= 0 {
		s.ids = slices.Delete(s.ids, i, i+1)
	} else {
		s.ids = append(s.ids, id)
	}
	s.persistLocked()
	s.mu.Unlock()
	s.notify()
}

func (s *FavoritesStore) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.ids, id)
}

func (s *FavoritesStore) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids)
}

func (s *FavoritesStore) Subscribe(fn func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *FavoritesStore) notify() {
	s.subMu.Lock()
	subs := slices.Clone(s.subs)
	s.subMu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

func (s *FavoritesStore) persistLocked() {
	data, err := json.Marshal(s.ids)
	if err != nil {
		s.logger.Warn("failed to encode favorites", slog.Any("error", err))
		return
	}
	if err := s.kv.Set(favoritesKey, string(data)); err != nil {
		s.logger.Warn("failed to persist favorites", slog.Any("error", err))
	}
}
