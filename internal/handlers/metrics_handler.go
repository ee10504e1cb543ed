package handlers

import (
	"net/http"
	"time"

	"library-lending/internal/lending"
	"library-lending/internal/models"
	"library-lending/internal/utils"
)

type MetricsHandler struct {
	Books     BookStore
	Users     UserStore
	Borrowals *lending.Service
	Now       func() time.Time
}

type Metrics struct {
	TotalBooks       int     `json:"total_books"`
	AvailableBooks   int     `json:"available_books"`
	TotalMembers     int     `json:"total_members"`
	ActiveLoans      int     `json:"active_loans"`
	LoansToday       int     `json:"loans_today"`
	OverdueCount     int     `json:"overdue_count"`
	OutstandingFines float64 `json:"outstanding_fines"`
	FinesCollected   float64 `json:"fines_collected"`
}

// GET /admin/metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	todayStart := now.Truncate(24 * time.Hour)

	var m Metrics

	books, err := h.Books.ListBooks(ctx, models.BookFilter{})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	m.TotalBooks = len(books)
	for _, b := range books {
		if b.IsAvailable {
			m.AvailableBooks++
		}
	}

	users, err := h.Users.ListUsers(ctx)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	for _, u := range users {
		if !u.IsAdmin {
			m.TotalMembers++
		}
	}

	loans, err := h.Borrowals.List(ctx, caller)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	for _, l := range loans {
		if !l.CreatedAt.Before(todayStart) {
			m.LoansToday++
		}
		if l.IsActive() {
			m.ActiveLoans++
			if now.After(l.DueDate) {
				m.OverdueCount++
			}
		}
		if l.FinePaid {
			m.FinesCollected += l.AmountPaid
		} else {
			// fineAmount is already derived by the service
			m.OutstandingFines += l.FineAmount
		}
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "metrics": m})
}
