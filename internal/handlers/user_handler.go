package handlers

import (
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"library-lending/internal/apperr"
	"library-lending/internal/constants"
	"library-lending/internal/lending"
	"library-lending/internal/models"
	"library-lending/internal/utils"
)

type UserHandler struct {
	Store       UserStore
	AuditLogger lending.AuditLogger
	HashCost    int // bcrypt cost, 0 for the default
	Now         func() time.Time
}

func NewUserHandler(store UserStore, logger lending.AuditLogger) *UserHandler {
	return &UserHandler{Store: store, AuditLogger: auditOrNop(logger), Now: time.Now}
}

type userRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"isAdmin"`
}

// POST /user/add
func (h *UserHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	user, err := NewUser(req.Name, req.Email, req.Password, req.IsAdmin, h.HashCost, h.Now())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.Store.CreateUser(r.Context(), &user); err != nil {
		utils.WriteError(w, err)
		return
	}

	h.AuditLogger.Log(r.Context(), models.UserEntity, constants.Create, user)

	utils.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "newUser": user})
}

// GET /user/getAll
func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "usersList": users})
}

// GET /user/get/{id}; members may only read themselves.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if !caller.IsAdmin && caller.ID != id {
		utils.WriteError(w, apperr.NotFound("User not found"))
		return
	}

	user, err := h.Store.GetUser(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// NewUser validates the registration fields and hashes the password.
func NewUser(name, email, password string, isAdmin bool, cost int, now time.Time) (models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.User{}, apperr.Validation("name is required")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return models.User{}, apperr.Validation("Invalid email")
	}
	if len(password) < utils.MinPasswordLength {
		return models.User{}, apperr.Validation("password must be at least 6 characters")
	}

	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return models.User{}, err
	}

	return models.User{
		Name:         name,
		Email:        strings.ToLower(addr.Address),
		IsAdmin:      isAdmin,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
