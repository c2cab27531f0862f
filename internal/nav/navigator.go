// Package nav отвечает за навигацию внутри приложения: хранит активный путь,
// разрешает его в экран и рассылает изменения подписчикам.
package nav

import "sync"

// Navigator — единственный владелец навигации. Программный переход и
// нативные переходы по истории сходятся в одном обработчике, который
// перечитывает текущий путь и публикует его заново; разъехаться адресу
// и отображаемому экрану здесь негде.
type Navigator struct {
	hist *History

	mu   sync.Mutex
	path string

	subMu sync.Mutex
	subs  []func(path string)
}

func New() *Navigator {
	n := &Navigator{
		hist: NewHistory(),
		path: "/",
	}
	// нативные Back/Forward приходят через пассивного слушателя истории
	n.hist.SetListener(n.locationChanged)
	return n
}

// Navigate — единая точка программного перехода: кладёт путь в историю
// и тут же синхронно уведомляет подписчиков. Одного Push недостаточно.
func (n *Navigator) Navigate(path string) {
	n.hist.Push(path)
	n.locationChanged()
}

func (n *Navigator) Back() {
	n.hist.Back()
}

func (n *Navigator) Forward() {
	n.hist.Forward()
}

// Path возвращает последний опубликованный путь.
func (n *Navigator) Path() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

// Route разрешает опубликованный путь в активный экран.
func (n *Navigator) Route() Route {
	return Resolve(n.Path())
}

// History открывает доступ к навигационной истории.
func (n *Navigator) History() *History {
	return n.hist
}

// Subscribe регистрирует подписчика на смену пути.
func (n *Navigator) Subscribe(fn func(path string)) {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	n.subs = append(n.subs, fn)
}

func (n *Navigator) locationChanged() {
	path := n.hist.Current()

	n.mu.Lock()
	n.path = path
	n.mu.Unlock()

	n.subMu.Lock()
	subs := make([]func(string), len(n.subs))
	copy(subs, n.subs)
	n.subMu.Unlock()
	for _, fn := range subs {
		fn(path)
	}
}
