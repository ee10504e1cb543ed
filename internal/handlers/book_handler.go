package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"library-lending/internal/apperr"
	"library-lending/internal/constants"
	"library-lending/internal/lending"
	"library-lending/internal/models"
	"library-lending/internal/utils"
)

type BookHandler struct {
	Store       BookStore
	AuditLogger lending.AuditLogger
	Now         func() time.Time
}

func NewBookHandler(store BookStore, logger lending.AuditLogger) *BookHandler {
	return &BookHandler{Store: store, AuditLogger: auditOrNop(logger), Now: time.Now}
}

type bookRequest struct {
	Name     string `json:"name"`
	ISBN     string `json:"isbn"`
	AuthorID string `json:"authorId"`
	GenreID  string `json:"genreId"`
	Category string `json:"category"`
	Summary  string `json:"summary"`
	PhotoURL string `json:"photoUrl"`
}

// POST /book/add
func (h *BookHandler) AddBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		utils.JSONError(w, "name is required", http.StatusBadRequest)
		return
	}
	if !models.IsValidCategory(req.Category) {
		utils.JSONError(w, "Invalid category", http.StatusBadRequest)
		return
	}

	now := h.Now()
	book := models.Book{
		Name:        req.Name,
		ISBN:        req.ISBN,
		AuthorID:    req.AuthorID,
		GenreID:     req.GenreID,
		Category:    models.Category(req.Category),
		Summary:     req.Summary,
		PhotoURL:    req.PhotoURL,
		IsAvailable: true, // only the lending flow takes a book off the shelf
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Store.CreateBook(r.Context(), &book); err != nil {
		utils.WriteError(w, err)
		return
	}

	h.AuditLogger.Log(r.Context(), models.BookEntity, constants.Create, book)

	utils.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "newBook": book})
}

// GET /book/getAll
func (h *BookHandler) GetBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.Store.ListBooks(r.Context(), models.BookFilter{})
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "booksList": books})
}

// GET /book/get/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.Store.GetBook(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "book": book})
}

// GET /book/category/{category}
func (h *BookHandler) GetBooksByCategory(w http.ResponseWriter, r *http.Request) {
	category := models.Category(mux.Vars(r)["category"])
	if !models.IsValidCategory(string(category)) {
		utils.JSONError(w, "Invalid category", http.StatusBadRequest)
		return
	}

	books, err := h.Store.ListBooks(r.Context(), models.BookFilter{Category: &category})
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "books": books})
}

// GET /book/status/{status}
func (h *BookHandler) GetBooksByStatus(w http.ResponseWriter, r *http.Request) {
	var available bool
	switch mux.Vars(r)["status"] {
	case "available":
		available = true
	case "unavailable":
	default:
		utils.JSONError(w, "status must be available or unavailable", http.StatusBadRequest)
		return
	}

	books, err := h.Store.ListBooks(r.Context(), models.BookFilter{Available: &available})
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "books": books})
}

// PUT /book/update/{id}
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	var update models.BookUpdate
	if err := utils.DecodeJSON(r.Body, &update); err != nil {
		utils.WriteError(w, err)
		return
	}
	if update.IsEmpty() {
		utils.WriteError(w, apperr.Validation("No update fields provided"))
		return
	}
	if update.Category != nil && !models.IsValidCategory(string(*update.Category)) {
		utils.JSONError(w, "Invalid category", http.StatusBadRequest)
		return
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		utils.JSONError(w, "name is required", http.StatusBadRequest)
		return
	}

	book, err := h.Store.UpdateBook(r.Context(), mux.Vars(r)["id"], update)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	h.AuditLogger.Log(r.Context(), models.BookEntity, constants.Update, book)

	utils.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "updatedBook": book})
}

// DELETE /book/delete/{id}
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.Store.DeleteBook(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	h.AuditLogger.Log(r.Context(), models.BookEntity, constants.Delete, book)

	utils.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "deletedBook": book})
}
