// Команда mockapi поднимает in-memory реализацию API магазина для локальной
// разработки клиента: авторизация с ротацией токена, каталог и заказы.
// Данные живут в памяти и теряются при перезапуске.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dmarchuk/storefront-core/internal/entities"
	"github.com/dmarchuk/storefront-core/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	srv := newServer(logger)

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	router.Route("/api", srv.Init)

	addr := net.JoinHostPort(envOr("HOST", "localhost"), envOr("PORT", "5001"))
	httpSrv := &http.Server{Addr: addr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("mock api listening", slog.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("mock api failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

type server struct {
	logger   *slog.Logger
	validate *validator.Validate

	mu        sync.Mutex
	users     map[string]entities.User
	passwords map[string]string // user id -> password
	tokens    map[string]string // token -> user id
	products  []entities.Product
	orders    []entities.Order
}

func newServer(logger *slog.Logger) *server {
	s := &server{
		logger:    logger.With(slog.String("handler", "mockapi")),
		validate:  validator.New(),
		users:     make(map[string]entities.User),
		passwords: make(map[string]string),
		tokens:    make(map[string]string),
	}
	s.seed()
	return s
}

func (s *server) seed() {
	admin := entities.User{
		ID:    uuid.NewString(),
		Name:  "Admin",
		Email: "admin@example.com",
		Role:  entities.RoleAdmin,
	}
	s.users[admin.ID] = admin
	s.passwords[admin.ID] = "admin"

	now := time.Now()
	s.products = []entities.Product{
		{
			ID:       uuid.NewString(),
			Name:     "Причіп одновісний 750 кг",
			Slug:     "prychip-odnovisnyi-750",
			Brand:    "Sample",
			Category: entities.CategoryTrailers,
			Type:     "product",
			Price:    32000,
			Currency: "UAH",
			InStock:  true,
			Quantity: 3,

			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:       uuid.NewString(),
			Name:     "Опорне колесо",
			Slug:     "oporne-koleso",
			Brand:    "Sample",
			Category: entities.CategoryAccessories,
			Type:     "accessory",
			Price:    1500,
			Currency: "UAH",
			InStock:  true,
			Quantity: 20,

			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func (s *server) Init(r chi.Router) {
	r.Post("/auth/register", s.register)
	r.Post("/auth/login", s.login)
	r.Get("/auth/me", s.me)
	r.Put("/auth/me/profile", s.updateProfile)
	r.Put("/auth/me/password", s.changePassword)
	r.Post("/auth/forgot-password", s.forgotPassword)

	r.Get("/users", s.listUsers)
	r.Put("/users/{id}", s.updateUser)
	r.Delete("/users/{id}", s.deleteUser)

	r.Get("/products", s.listProducts)
	r.Post("/products", s.createProduct)
	r.Put("/products/{id}", s.updateProduct)
	r.Delete("/products/{id}", s.deleteProduct)

	r.Get("/orders", s.listOrders)
	r.Get("/orders/my-orders", s.listMyOrders)
	r.Post("/orders", s.createOrder)
	r.Put("/orders/{id}/status", s.updateOrderStatus)
}

// authed возвращает пользователя по bearer-токену запроса.
func (s *server) authed(r *http.Request) (entities.User, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return entities.User{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	if !ok {
		return entities.User{}, false
	}
	user, ok := s.users[id]
	return user, ok
}

func (s *server) issueToken(userID string) string {
	token := uuid.NewString()
	s.tokens[token] = userID
	return token
}

type authPayload struct {
	Token   string        `json:"token"`
	User    entities.User `json:"user"`
	Message string        `json:"message,omitempty"`
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == req.Email {
			utils.WriteError(w, "Email already registered", http.StatusConflict)
			return
		}
	}

	user := entities.User{
		ID:    uuid.NewString(),
		Name:  req.Name,
		Email: req.Email,
		Role:  entities.RoleCustomer,
	}
	s.users[user.ID] = user
	s.passwords[user.ID] = req.Password

	utils.WriteJSON(w, authPayload{Token: s.issueToken(user.ID), User: user}, http.StatusCreated)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range s.users {
		if u.Email == req.Email && s.passwords[id] == req.Password {
			utils.WriteJSON(w, authPayload{Token: s.issueToken(id), User: u}, http.StatusOK)
			return
		}
	}
	utils.WriteError(w, "Invalid email or password", http.StatusUnauthorized)
}

func (s *server) me(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authed(r)
	if !ok {
		utils.WriteError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	utils.WriteJSON(w, user, http.StatusOK)
}

func (s *server) updateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authed(r)
	if !ok {
		utils.WriteError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name   string `json:"name"`
		Email  string `json:"email" validate:"omitempty,email"`
		Avatar string `json:"avatar"`
	}
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}
	s.users[user.ID] = user

	// профиль изменился — старый токен отзываем, выдаём новый
	for token, id := range s.tokens {
		if id == user.ID {
			delete(s.tokens, token)
		}
	}

	utils.WriteJSON(w, authPayload{
		Token:   s.issueToken(user.ID),
		User:    user,
		Message: "Profile updated",
	}, http.StatusOK)
}

func (s *server) changePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authed(r)
	if !ok {
		utils.WriteError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required"`
	}
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.passwords[user.ID] != req.OldPassword {
		utils.WriteError(w, "Old password is incorrect", http.StatusBadRequest)
		return
	}
	s.passwords[user.ID] = req.NewPassword
	utils.WriteJSON(w, map[string]string{"message": "Password changed"}, http.StatusOK)
}

func (s *server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}
	utils.WriteJSON(w, map[string]string{"message": "Recovery email sent"}, http.StatusOK)
}

func (s *server) requireAdmin(w http.ResponseWriter, r *http.Request) (entities.User, bool) {
	user, ok := s.authed(r)
	if !ok {
		utils.WriteError(w, "Unauthorized", http.StatusUnauthorized)
		return entities.User{}, false
	}
	if !user.IsAdmin() {
		utils.WriteError(w, "Forbidden", http.StatusForbidden)
		return entities.User{}, false
	}
	return user, true
}

func (s *server) listUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entities.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	utils.WriteJSON(w, out, http.StatusOK)
}

func (s *server) updateUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	var req struct {
		Name   string        `json:"name"`
		Email  string        `json:"email" validate:"omitempty,email"`
		Role   entities.Role `json:"role" validate:"omitempty,oneof=admin customer"`
		Avatar string        `json:"avatar"`
	}
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")
	user, ok := s.users[id]
	if !ok {
		utils.WriteError(w, "User not found", http.StatusNotFound)
		return
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}
	s.users[id] = user
	utils.WriteJSON(w, user, http.StatusOK)
}

func (s *server) deleteUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")
	if _, ok := s.users[id]; !ok {
		utils.WriteError(w, "User not found", http.StatusNotFound)
		return
	}
	delete(s.users, id)
	delete(s.passwords, id)
	utils.WriteJSON(w, map[string]string{"message": "User deleted"}, http.StatusOK)
}

func (s *server) listProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	utils.WriteJSON(w, s.products, http.StatusOK)
}

func (s *server) createProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	var product entities.Product
	if err := utils.DecodeBody(r, &product); err != nil {
		utils.WriteError(w, "invalid body", http.StatusBadRequest)
		return
	}

	now := time.Now()
	product.ID = uuid.NewString()
	product.CreatedAt = now
	product.UpdatedAt = now
	if product.Slug == "" {
		product.Slug = product.ID
	}

	s.mu.Lock()
	s.products = append(s.products, product)
	s.mu.Unlock()

	utils.WriteJSON(w, product, http.StatusCreated)
}

func (s *server) updateProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	var product entities.Product
	if err := utils.DecodeBody(r, &product); err != nil {
		utils.WriteError(w, "invalid body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")
	for i := range s.products {
		if s.products[i].ID == id {
			product.ID = id
			product.CreatedAt = s.products[i].CreatedAt
			product.UpdatedAt = time.Now()
			s.products[i] = product
			utils.WriteJSON(w, product, http.StatusOK)
			return
		}
	}
	utils.WriteError(w, "Product not found", http.StatusNotFound)
}

func (s *server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")
	kept := s.products[:0]
	for _, p := range s.products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.products = kept
	utils.WriteJSON(w, map[string]string{"message": "Product deleted"}, http.StatusOK)
}

func (s *server) listOrders(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	utils.WriteJSON(w, s.orders, http.StatusOK)
}

func (s *server) listMyOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authed(r)
	if !ok {
		utils.WriteError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entities.Order, 0)
	for _, o := range s.orders {
		if o.Customer.Email == user.Email {
			out = append(out, o)
		}
	}
	utils.WriteJSON(w, out, http.StatusOK)
}

func (s *server) createOrder(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authed(r); !ok {
		utils.WriteError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var order entities.Order
	if err := utils.DecodeBody(r, &order); err != nil {
		utils.WriteError(w, "invalid body", http.StatusBadRequest)
		return
	}

	order.ID = uuid.NewString()
	order.Date = time.Now()
	order.Status = entities.OrderStatusProcessing

	s.mu.Lock()
	s.orders = append(s.orders, order)
	s.mu.Unlock()

	utils.WriteJSON(w, order, http.StatusCreated)
}

func (s *server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	var req struct {
		Status entities.OrderStatus `json:"status" validate:"required,oneof=Processing Shipped Delivered Cancelled"`
	}
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders[i].Status = req.Status
			utils.WriteJSON(w, s.orders[i], http.StatusOK)
			return
		}
	}
	utils.WriteError(w, "Order not found", http.StatusNotFound)
}
