package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"gamestore/internal/domain/model"
	repo "gamestore/internal/repository"
	"gamestore/internal/validator"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-secret"

const (
	userID  int64 = 1
	adminID int64 = 2
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[int64]*model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[int64]*model.User{
		userID:  {ID: userID, Email: "user@example.com", Role: model.RoleUser, IsActive: true},
		adminID: {ID: adminID, Email: "admin@example.com", Role: model.RoleAdmin, IsActive: true},
	}}
}

func (f *fakeUsers) Create(ctx context.Context, u *model.User) error { return nil }

func (f *fakeUsers) FindByID(ctx context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, repo.ErrNotFound
}

func (f *fakeUsers) FindByResetTokenHash(ctx context.Context, h string) (*model.User, error) {
	return nil, repo.ErrNotFound
}

func (f *fakeUsers) Update(ctx context.Context, u *model.User) error { return nil }

func (f *fakeUsers) IncrementTokenVersion(ctx context.Context, id int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return 0, repo.ErrNotFound
	}
	u.TokenVersion++
	return u.TokenVersion, nil
}

type fakeProducts struct {
	mu        sync.Mutex
	items     map[int64]model.Product
	nextID    int64
	lastQuery repo.ProductListQuery
}

func newFakeProducts(ps ...model.Product) *fakeProducts {
	f := &fakeProducts{items: map[int64]model.Product{}, nextID: 100}
	for _, p := range ps {
		f.items[p.ID] = p
	}
	return f
}

func (f *fakeProducts) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	out := make([]model.Product, 0, len(f.items))
	for _, p := range f.items {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (f *fakeProducts) FindByID(ctx context.Context, id int64) (model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (f *fakeProducts) Create(ctx context.Context, p model.Product) (model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	f.items[p.ID] = p
	return p, nil
}

func (f *fakeProducts) Update(ctx context.Context, p model.Product) (model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[p.ID]; !ok {
		return model.Product{}, repo.ErrNotFound
	}
	f.items[p.ID] = p
	return p, nil
}

func (f *fakeProducts) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeAudit struct {
	mu   sync.Mutex
	logs []model.AuditLog
}

func (f *fakeAudit) Create(ctx context.Context, l model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, l)
	return nil
}

func (f *fakeAudit) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.AuditLog{}, f.logs...), nil
}

type fakeImages struct {
	savedName string
	savedBody string
}

func (f *fakeImages) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.savedName = filename
	f.savedBody = string(b)
	return "/uploads/stored.png", nil
}

func (f *fakeImages) Delete(ctx context.Context, url string) error { return nil }

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Validator = validator.New()
	return e
}

func bearer(t *testing.T, sub int64, role model.Role) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": string(role),
		"tv":   0,
		"iat":  1,
		"exp":  9999999999,
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

func doJSON(e *echo.Echo, method, path, body, auth string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, decodeBody(rec, &body))
	return body.Error
}

func decodeBody(rec *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}
