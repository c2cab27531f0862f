package store

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmarchuk/storefront-core/internal/api"
	"github.com/dmarchuk/storefront-core/internal/entities"
)

// OrderStore кэширует заказы: либо собственные заказы покупателя, либо все
// заказы магазина (админ). Удалённый API не даёт менять и удалять заказы,
// единственная мутация — смена статуса.
type OrderStore struct {
	slice[entities.Order]

	logger *slog.Logger
	client *api.Client
	tokens TokenSource
}

// Stats агрегирует кэш заказов для админской панели.
type Stats struct {
	Orders  int
	Revenue float64
}

func NewOrders(logger *slog.Logger, client *api.Client, tokens TokenSource) *OrderStore {
	s := &OrderStore{
		logger: logger.With(slog.String("store", "orders")),
		client: client,
		tokens: tokens,
	}
	s.id = func(o entities.Order) string { return o.ID }
	return s
}

// FetchMy загружает заказы текущего пользователя.
func (s *OrderStore) FetchMy(ctx context.Context) {
	s.fetch(ctx, "/orders/my-orders")
}

// FetchAll загружает все заказы магазина.
func (s *OrderStore) FetchAll(ctx context.Context) {
	s.fetch(ctx, "/orders")
}

func (s *OrderStore) fetch(ctx context.Context, path string) {
	s.beginFetch()

	token := s.tokens.Token()
	if token == "" {
		s.fail(entities.ErrNotAuthenticated.Error())
		return
	}

	var list []entities.Order
	if err := s.client.Do(ctx, http.MethodGet, path, token, nil, &list); err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch orders", slog.String("path", path), slog.Any("error", err))
		s.fail(err.Error())
		return
	}
	s.resolve(list)
}

// Create оформляет заказ и после подтверждения ставит его в начало списка:
// история заказов отображается от новых к старым.
func (s *OrderStore) Create(ctx context.Context, input entities.Order) (entities.Order, error) {
	token := s.tokens.Token()
	if token == "" {
		return entities.Order{}, entities.ErrNotAuthenticated
	}

	var created entities.Order
	if err := s.client.Do(ctx, http.MethodPost, "/orders", token, input, &created); err != nil {
		return entities.Order{}, err
	}
	s.prepend(created)
	return created, nil
}

// UpdateStatus переводит заказ в новый статус и заменяет его в кэше
// подтверждённой сервером версией.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status entities.OrderStatus) (entities.Order, error) {
	token := s.tokens.Token()
	if token == "" {
		return entities.Order{}, entities.ErrNotAuthenticated
	}

	body := struct {
		Status entities.OrderStatus `json:"status"`
	}{Status: status}

	var updated entities.Order
	if err := s.client.Do(ctx, http.MethodPut, "/orders/"+id+"/status", token, body, &updated); err != nil {
		return entities.Order{}, err
	}
	s.replace(updated)
	return updated, nil
}

// Stats считает количество заказов и выручку; отменённые заказы в выручку не входят.
func (s *OrderStore) Stats() Stats {
	list := s.List()
	stats := Stats{Orders: len(list)}
	for _, o := range list {
		if o.Status != entities.OrderStatusCancelled {
			stats.Revenue += o.Total
		}
	}
	return stats
}
