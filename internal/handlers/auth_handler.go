package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"library-lending/internal/apperr"
	"library-lending/internal/constants"
	"library-lending/internal/lending"
	"library-lending/internal/models"
	"library-lending/internal/utils"
)

type AuthHandler struct {
	Users       UserStore
	AuditLogger lending.AuditLogger
	TokenTTL    time.Duration
	Log         *zap.Logger
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token"`
	User    models.User `json:"user"`
}

// POST /auth/login
func (a *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		utils.JSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		utils.JSONError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	user, err := a.Users.FindUserByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		utils.WriteError(w, err)
		return
	}
	if user == nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.JSONError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := utils.GenerateJWT(user.ID, user.IsAdmin, a.TokenTTL)
	if err != nil {
		a.logger().Error("token signing failed", zap.Error(err))
		utils.JSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	ctx := lending.WithCaller(r.Context(), lending.Caller{ID: user.ID, IsAdmin: user.IsAdmin})
	auditOrNop(a.AuditLogger).Log(ctx, models.UserEntity, constants.Login, map[string]any{"user_id": user.ID})

	utils.WriteJSON(w, http.StatusOK, LoginResponse{Success: true, Token: token, User: *user})
}

func (a *AuthHandler) logger() *zap.Logger {
	if a.Log == nil {
		return zap.NewNop()
	}
	return a.Log
}
