package store

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmarchuk/storefront-core/internal/api"
	"github.com/dmarchuk/storefront-core/internal/entities"
)

// TokenSource выдаёт текущий bearer-токен сессии (пустая строка — нет сессии).
type TokenSource interface {
	Token() string
}

// CatalogStore кэширует единую коллекцию товаров. Разделы каталога
// (причепи и комплектующие) — это её клиентские срезы по категории.
type CatalogStore struct {
	slice[entities.Product]

	logger *slog.Logger
	client *api.Client
	tokens TokenSource
}

func NewCatalog(logger *slog.Logger, client *api.Client, tokens TokenSource) *CatalogStore {
	s := &CatalogStore{
		logger: logger.With(slog.String("store", "catalog")),
		client: client,
		tokens: tokens,
	}
	s.id = func(p entities.Product) string { return p.ID }
	return s
}

// FetchAll загружает каталог целиком. Результат (успех или ошибка)
// фиксируется на самом сторе, вызывающему коду ничего не возвращается.
func (s *CatalogStore) FetchAll(ctx context.Context) {
	s.beginFetch()

	var list []entities.Product
	if err := s.client.Do(ctx, http.MethodGet, "/products", "", nil, &list); err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch products", slog.Any("error", err))
		s.fail(err.Error())
		return
	}
	s.resolve(list)
}

// Create отправляет новый товар и после подтверждения добавляет его в конец списка.
func (s *CatalogStore) Create(ctx context.Context, input entities.Product) (entities.Product, error) {
	var created entities.Product
	err := s.client.Do(ctx, http.MethodPost, "/products", s.tokens.Token(), input, &created)
	if err != nil {
		return entities.Product{}, err
	}
	s.append(created)
	return created, nil
}

// Update заменяет товар по id на версию, подтверждённую сервером.
func (s *CatalogStore) Update(ctx context.Context, product entities.Product) (entities.Product, error) {
	var updated entities.Product
	err := s.client.Do(ctx, http.MethodPut, "/products/"+product.ID, s.tokens.Token(), product, &updated)
	if err != nil {
		return entities.Product{}, err
	}
	s.replace(updated)
	return updated, nil
}

func (s *CatalogStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Do(ctx, http.MethodDelete, "/products/"+id, s.tokens.Token(), nil, nil); err != nil {
		return err
	}
	s.remove(id)
	return nil
}

func (s *CatalogStore) Trailers() []entities.Product {
	return s.byCategory(entities.CategoryTrailers)
}

func (s *CatalogStore) Accessories() []entities.Product {
	return s.byCategory(entities.CategoryAccessories)
}

func (s *CatalogStore) byCategory(category entities.Category) []entities.Product {
	var out []entities.Product
	for _, p := range s.List() {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}
