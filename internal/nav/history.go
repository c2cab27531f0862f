package nav

import "sync"

// History моделирует навигационную историю: стек записей с курсором.
// Push сам по себе никого не уведомляет — это известное острое место
// браузерного pushState, воспроизведённое нарочно. Уведомление приходит
// только от переходов Back/Forward либо от Navigator.Navigate.
type History struct {
	mu       sync.Mutex
	entries  []string
	cursor   int
	listener func()
}

func NewHistory() *History {
	return &History{entries: []string{"/"}}
}

// SetListener регистрирует пассивного слушателя переходов Back/Forward.
func (h *History) SetListener(fn func()) {
	h.mu.Lock()
	h.listener = fn
	h.mu.Unlock()
}

// Push добавляет запись, отбрасывая forward-хвост. Слушатель не вызывается.
func (h *History) Push(path string) {
	h.mu.Lock()
	h.entries = append(h.entries[:h.cursor+1], path)
	h.cursor = len(h.entries) - 1
	h.mu.Unlock()
}

// Back переходит на запись назад и уведомляет слушателя. На первой записи — no-op.
func (h *History) Back() {
	h.mu.Lock()
	if h.cursor == 0 {
		h.mu.Unlock()
		return
	}
	h.cursor--
	fn := h.listener
	h.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Forward переходит на запись вперёд и уведомляет слушателя. На последней — no-op.
func (h *History) Forward() {
	h.mu.Lock()
	if h.cursor >= len(h.entries)-1 {
		h.mu.Unlock()
		return
	}
	h.cursor++
	fn := h.listener
	h.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Current возвращает запись под курсором.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.cursor]
}

// Len возвращает количество записей в истории.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
