// Package session владеет состоянием аутентификации: токеном, текущим
// пользователем и админским кэшем всех учётных записей.
//
// Все операции возвращают исход вызывающему коду и сами ничего не показывают
// пользователю. Исключения два: восстановление сессии на старте и отказ
// /auth/me по токену — оба принудительно разлогинивают.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/dmarchuk/storefront-core/internal/api"
	"github.com/dmarchuk/storefront-core/internal/entities"
	"github.com/dmarchuk/storefront-core/pkg/kv"
	"github.com/go-playground/validator/v10"
)

const tokenKey = "auth_token"

// KV описывает durable-хранилище для токена.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Result описывает исход операции вместе с сообщением сервера.
type Result struct {
	Success bool
	Message string
}

// ProfileUpdate несёт частичное обновление собственного профиля.
type ProfileUpdate struct {
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty" validate:"omitempty,email"`
	Avatar string `json:"avatar,omitempty"`
}

// UserUpdate несёт частичное админское обновление чужой учётной записи.
type UserUpdate struct {
	Name   string        `json:"name,omitempty"`
	Email  string        `json:"email,omitempty" validate:"omitempty,email"`
	Role   entities.Role `json:"role,omitempty" validate:"omitempty,oneof=admin customer"`
	Avatar string        `json:"avatar,omitempty"`
}

type credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// authResponse — ответ сервера на любой аутентифицирующий запрос.
type authResponse struct {
	Token   string        `json:"token"`
	User    entities.User `json:"user"`
	Message string        `json:"message,omitempty"`
}

type Manager struct {
	logger   *slog.Logger
	client   *api.Client
	kv       KV
	validate *validator.Validate

	mu      sync.Mutex
	token   string
	current *entities.User
	loading bool
	users   []entities.User

	subMu sync.Mutex
	subs  []func()
}

func NewManager(logger *slog.Logger, client *api.Client, state KV) *Manager {
	m := &Manager{
		logger:   logger.With(slog.String("component", "session")),
		client:   client,
		kv:       state,
		validate: validator.New(),
		loading:  true,
	}
	if token, err := m.kv.Get(tokenKey); err == nil {
		m.token = token
	} else if !errors.Is(err, kv.ErrNotFound) {
		m.logger.Warn("failed to read stored token", slog.Any("error", err))
	}
	return m
}

// Restore разрешает сохранённый токен в пользователя. Любая неудача здесь
// фатальна для сессии: токен стирается, клиент остаётся разлогиненным.
// Единственное место, где loading истинен; обратно он не включается никогда.
func (m *Manager) Restore(ctx context.Context) {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()

	if token == "" {
		m.setLoading(false)
		return
	}

	if err := m.resolveCurrent(ctx); err != nil {
		m.logger.Warn("stored session rejected", slog.Any("error", err))
	}
	m.setLoading(false)
}

// resolveCurrent запрашивает /auth/me по текущему токену. Отказ означает
// недействительную сессию и приводит к полному logout.
func (m *Manager) resolveCurrent(ctx context.Context) error {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()

	var user entities.User
	if err := m.client.Do(ctx, http.MethodGet, "/auth/me", token, nil, &user); err != nil {
		m.Logout()
		return err
	}

	m.mu.Lock()
	m.current = &user
	m.mu.Unlock()
	m.notify()
	return nil
}

// Login аутентифицирует по email и паролю. Токен и пользователь выставляются
// вместе, одним переходом, токен сразу сохраняется.
func (m *Manager) Login(ctx context.Context, email, password string) Result {
	return m.authenticate(ctx, "/auth/login", credentials{Email: email, Password: password})
}

// Register создаёт учётную запись; контракт идентичен Login.
func (m *Manager) Register(ctx context.Context, name, email, password string) Result {
	creds := credentials{Name: name, Email: email, Password: password}
	if name == "" {
		return Result{Message: "name is required"}
	}
	return m.authenticate(ctx, "/auth/register", creds)
}

func (m *Manager) authenticate(ctx context.Context, path string, creds credentials) Result {
	if err := m.validate.Struct(creds); err != nil {
		return Result{Message: "invalid credentials"}
	}

	var resp authResponse
	if err := m.client.Do(ctx, http.MethodPost, path, "", creds, &resp); err != nil {
		return Result{Message: failureMessage(err)}
	}

	m.setAuthenticated(resp.Token, resp.User)
	return Result{Success: true, Message: resp.Message}
}

// Logout очищает токен, пользователя и сохранённый токен. Идемпотентен.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.token = ""
	m.current = nil
	m.mu.Unlock()

	if err := m.kv.Delete(tokenKey); err != nil {
		m.logger.Warn("failed to clear stored token", slog.Any("error", err))
	}
	m.notify()
}

// UpdateMyProfile обновляет собственный профиль. Сервер при этом ротирует
// токен: ответ заменяет и токен, и пользователя, старый токен больше не годится.
func (m *Manager) UpdateMyProfile(ctx context.Context, data ProfileUpdate) Result {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()
	if token == "" {
		return Result{Message: entities.ErrNotAuthenticated.Error()}
	}

	if err := m.validate.Struct(data); err != nil {
		return Result{Message: "invalid profile data"}
	}

	var resp authResponse
	if err := m.client.Do(ctx, http.MethodPut, "/auth/me/profile", token, data, &resp); err != nil {
		return Result{Message: failureMessage(err)}
	}

	m.setAuthenticated(resp.Token, resp.User)
	return Result{Success: true, Message: resp.Message}
}

// ChangePassword меняет пароль; состояние сессии при успехе не трогает.
func (m *Manager) ChangePassword(ctx context.Context, oldPassword, newPassword string) Result {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()
	if token == "" {
		return Result{Message: entities.ErrNotAuthenticated.Error()}
	}

	body := struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}{oldPassword, newPassword}

	var resp struct {
		Message string `json:"message"`
	}
	if err := m.client.Do(ctx, http.MethodPut, "/auth/me/password", token, body, &resp); err != nil {
		return Result{Message: failureMessage(err)}
	}
	return Result{Success: true, Message: resp.Message}
}

// ForgotPassword запускает восстановление; аутентификации не требует.
func (m *Manager) ForgotPassword(ctx context.Context, email string) Result {
	body := struct {
		Email string `json:"email"`
	}{email}

	var resp struct {
		Message string `json:"message"`
	}
	if err := m.client.Do(ctx, http.MethodPost, "/auth/forgot-password", "", body, &resp); err != nil {
		return Result{Message: failureMessage(err)}
	}
	return Result{Success: true, Message: resp.Message}
}

// FetchUsers целиком заменяет админский кэш пользователей. Без токена — no-op,
// ошибка только логируется: после неудачи свежесть кэша не гарантируется.
func (m *Manager) FetchUsers(ctx context.Context) {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()
	if token == "" {
		return
	}

	var users []entities.User
	if err := m.client.Do(ctx, http.MethodGet, "/users", token, nil, &users); err != nil {
		m.logger.ErrorContext(ctx, "failed to fetch users", slog.Any("error", err))
		return
	}

	m.mu.Lock()
	m.users = users
	m.mu.Unlock()
	m.notify()
}

// UpdateUser применяет админскую правку и перечитывает кэш пользователей
// целиком. Правка собственной записи дополнительно переразрешает текущего
// пользователя, чтобы сессия не разошлась с сервером.
func (m *Manager) UpdateUser(ctx context.Context, id string, data UserUpdate) bool {
	m.mu.Lock()
	token := m.token
	selfEdit := m.current != nil && m.current.ID == id
	m.mu.Unlock()
	if token == "" {
		return false
	}

	if err := m.validate.Struct(data); err != nil {
		return false
	}

	if err := m.client.Do(ctx, http.MethodPut, "/users/"+id, token, data, nil); err != nil {
		m.logger.ErrorContext(ctx, "failed to update user", slog.String("id", id), slog.Any("error", err))
		return false
	}

	m.FetchUsers(ctx)
	if selfEdit {
		if err := m.resolveCurrent(ctx); err != nil {
			m.logger.Warn("failed to refresh current user after self-edit", slog.Any("error", err))
		}
	}
	return true
}

// DeleteUser удаляет чужую учётную запись. Удаление самого себя запрещено
// на этом уровне и отклоняется без похода в сеть.
func (m *Manager) DeleteUser(ctx context.Context, id string) bool {
	m.mu.Lock()
	token := m.token
	self := m.current != nil && m.current.ID == id
	m.mu.Unlock()
	if token == "" || self {
		return false
	}

	if err := m.client.Do(ctx, http.MethodDelete, "/users/"+id, token, nil, nil); err != nil {
		m.logger.ErrorContext(ctx, "failed to delete user", slog.String("id", id), slog.Any("error", err))
		return false
	}

	m.FetchUsers(ctx)
	return true
}

// Token реализует store.TokenSource.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *Manager) CurrentUser() (entities.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return entities.User{}, false
	}
	return *m.current, true
}

func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

func (m *Manager) Users() []entities.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entities.User, len(m.users))
	copy(out, m.users)
	return out
}

// Subscribe регистрирует колбэк, вызываемый после каждого изменения сессии.
func (m *Manager) Subscribe(fn func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.subs = append(m.subs, fn)
}

func (m *Manager) notify() {
	m.subMu.Lock()
	subs := make([]func(), len(m.subs))
	copy(subs, m.subs)
	m.subMu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

func (m *Manager) setAuthenticated(token string, user entities.User) {
	m.mu.Lock()
	m.token = token
	m.current = &user
	m.mu.Unlock()

	if err := m.kv.Set(tokenKey, token); err != nil {
		m.logger.Warn("failed to persist token", slog.Any("error", err))
	}
	m.notify()
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
	m.notify()
}

// failureMessage приводит любую ошибку запроса к сообщению для вызывающего:
// отказ сервера — его собственным текстом, транспортный сбой — общим.
func failureMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "request failed"
}
