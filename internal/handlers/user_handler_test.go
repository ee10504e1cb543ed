package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserHandler(t *testing.T) {
	e := newEnv(t)
	admin, member := e.token(t, e.admin), e.token(t, e.member)

	code, body := e.do(t, http.MethodPost, "/api/user/add", admin, map[string]any{
		"name": "Margaret", "email": "Margaret <Margaret@Example.com>", "password": "hamilton",
	})
	require.Equal(t, http.StatusOK, code, body)
	created := obj(t, body["newUser"])
	assert.Equal(t, "margaret@example.com", created["email"])
	assert.Equal(t, false, created["isAdmin"])
	assert.NotContains(t, created, "passwordHash")

	code, body = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "margaret@example.com", "password": "hamilton",
	})
	assert.Equal(t, http.StatusOK, code, body)

	tests := []struct {
		name   string
		token  string
		body   map[string]any
		status int
	}{
		{"duplicate email", admin, map[string]any{"name": "Ada 2", "email": "ada@example.com", "password": "secret123"}, http.StatusConflict},
		{"short password", admin, map[string]any{"name": "Bob", "email": "bob@example.com", "password": "123"}, http.StatusBadRequest},
		{"bad email", admin, map[string]any{"name": "Bob", "email": "bob", "password": "secret123"}, http.StatusBadRequest},
		{"member cannot register", member, map[string]any{"name": "Bob", "email": "bob@example.com", "password": "secret123"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := e.do(t, http.MethodPost, "/api/user/add", tt.token, tt.body)
			assert.Equal(t, tt.status, code)
		})
	}

	code, body = e.do(t, http.MethodGet, "/api/user/getAll", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["usersList"], 4)

	code, _ = e.do(t, http.MethodGet, "/api/user/getAll", member, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = e.do(t, http.MethodGet, "/api/user/get/"+e.member.ID, member, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Ada", obj(t, body["user"])["name"])

	code, _ = e.do(t, http.MethodGet, "/api/user/get/"+e.other.ID, member, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
