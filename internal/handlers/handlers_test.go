package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"library-lending/internal/handlers"
	"library-lending/internal/lending"
	"library-lending/internal/models"
	"library-lending/internal/store/memstore"
	"library-lending/internal/utils"
)

var today = time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

const password = "secret123"

type testEnv struct {
	router *mux.Router
	store  *memstore.Store
	admin  models.User
	member models.User
	other  models.User
	book   models.Book
	spare  models.Book
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	utils.InitJwtSecret("handler-secret")
	ctx := context.Background()
	store := memstore.New()

	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)

	e := &testEnv{store: store}
	e.admin = models.User{Name: "Grace", Email: "grace@example.com", IsAdmin: true, PasswordHash: hash}
	e.member = models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: hash}
	e.other = models.User{Name: "Linus", Email: "linus@example.com", PasswordHash: hash}
	for _, u := range []*models.User{&e.admin, &e.member, &e.other} {
		require.NoError(t, store.CreateUser(ctx, u))
	}

	e.book = models.Book{Name: "Dune", Category: models.CategoryFiction, IsAvailable: true}
	e.spare = models.Book{Name: "Cosmos", Category: models.CategoryScience, IsAvailable: true}
	require.NoError(t, store.CreateBook(ctx, &e.book))
	require.NoError(t, store.CreateBook(ctx, &e.spare))

	svc := lending.NewService(store, lending.WithClock(func() time.Time { return today }))
	e.router = handlers.NewRouter(handlers.Deps{
		Borrowals: svc,
		Books:     store,
		Users:     store,
		Prefix:    "/api",
		TokenTTL:  time.Hour,
		HashCost:  bcrypt.MinCost,
		Now:       func() time.Time { return today },
	})
	return e
}

func (e *testEnv) token(t *testing.T, u models.User) string {
	t.Helper()
	token, err := utils.GenerateJWT(u.ID, u.IsAdmin, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func obj(t *testing.T, v any) map[string]any {
	t.Helper()
	m, ok := v.(map[string]any)
	require.True(t, ok, "expected object, got %T", v)
	return m
}
