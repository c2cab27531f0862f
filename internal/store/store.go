// Package store содержит клиентские кэши коллекций магазина (каталог, заказы).
//
// Каждый стор хранит список сущностей и статус последней загрузки. Мутации
// применяются к списку только после подтверждения сервером; упавшая загрузка
// оставляет прежний список на месте. Если несколько загрузок идут параллельно,
// итоговое состояние определяет та, что завершилась последней.
package store

import "sync"

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// slice is the shared cache core: ordered list, fetch status, last error.
type slice[T any] struct {
	mu     sync.Mutex
	list   []T
	status Status
	err    string

	id func(T) string

	subMu sync.Mutex
	subs  []func()
}

func (s *slice[T]) List() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.list))
	copy(out, s.list)
	return out
}

func (s *slice[T]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *slice[T]) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Subscribe registers a callback fired after every state change.
func (s *slice[T]) Subscribe(fn func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *slice[T]) notify() {
	s.subMu.Lock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

func (s *slice[T]) beginFetch() {
	s.mu.Lock()
	s.status = StatusLoading
	s.mu.Unlock()
	s.notify()
}

// resolve replaces the list wholesale; whoever resolves last wins.
func (s *slice[T]) resolve(list []T) {
	s.mu.Lock()
	s.status = StatusSucceeded
	s.list = list
	s.err = ""
	s.mu.Unlock()
	s.notify()
}

// fail records the error but keeps the stale list for display.
func (s *slice[T]) fail(msg string) {
	s.mu.Lock()
	s.status = StatusFailed
	s.err = msg
	s.mu.Unlock()
	s.notify()
}

func (s *slice[T]) append(item T) {
	s.mu.Lock()
	s.list = append(s.list, item)
	s.mu.Unlock()
	s.notify()
}

func (s *slice[T]) prepend(item T) {
	s.mu.Lock()
	s.list = append([]T{item}, s.list...)
	s.mu.Unlock()
	s.notify()
}

// replace swaps the entry with the same id in place. Unknown ids are ignored,
// the entry is not appended.
func (s *slice[T]) replace(item T) {
	s.mu.Lock()
	changed := false
	for i := range s.list {
		if s.id(s.list[i]) == s.id(item) {
			s.list[i] = item
			changed = true
			break
		}
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

func (s *slice[T]) remove(id string) {
	s.mu.Lock()
	kept := s.list[:0]
	for _, item := range s.list {
		if s.id(item) != id {
			kept = append(kept, item)
		}
	}
	changed := len(kept) != len(s.list)
	s.list = kept
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}
