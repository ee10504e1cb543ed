package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"library-lending/internal/apperr"
	"library-lending/internal/lending"
	"library-lending/internal/listing"
	"library-lending/internal/models"
	"library-lending/internal/utils"
)

type BorrowalHandler struct {
	Service *lending.Service
}

func NewBorrowalHandler(svc *lending.Service) *BorrowalHandler {
	return &BorrowalHandler{Service: svc}
}

type borrowalRequest struct {
	BookID       string  `json:"bookId"`
	MemberID     string  `json:"memberId"`
	BorrowedDate *string `json:"borrowedDate"`
	DueDate      *string `json:"dueDate"`
	Status       *string `json:"status"`
}

// GET /borrowal/getAll
func (h *BorrowalHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	q, err := listQuery(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	page, err := h.Service.Search(r.Context(), caller, q)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"borrowalList": page.Items,
		"total":        page.Total,
	})
}

// GET /borrowal/get/{id}
func (h *BorrowalHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	b, err := h.Service.Get(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "borrowal": b})
}

// POST /borrowal/add
func (h *BorrowalHandler) Add(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req borrowalRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	in := lending.CreateInput{BookID: req.BookID, MemberID: req.MemberID}
	if in.MemberID == "" && !caller.IsAdmin {
		in.MemberID = caller.ID
	}
	if req.Status != nil {
		in.Status = models.BorrowalStatus(*req.Status)
	}
	borrowed, err := parseOptionalDate("borrowedDate", req.BorrowedDate)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	due, err := parseOptionalDate("dueDate", req.DueDate)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if borrowed != nil {
		in.BorrowedDate = *borrowed
	}
	if due != nil {
		in.DueDate = *due
	}

	created, err := h.Service.Create(r.Context(), caller, in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "newBorrowal": created})
}

// PUT /borrowal/update/{id}
func (h *BorrowalHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req borrowalRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if req.BookID != "" || req.MemberID != "" {
		utils.WriteError(w, apperr.Validation("bookId and memberId cannot be changed"))
		return
	}

	var (
		p   lending.Patch
		err error
	)
	if p.BorrowedDate, err = parseOptionalDate("borrowedDate", req.BorrowedDate); err != nil {
		utils.WriteError(w, err)
		return
	}
	if p.DueDate, err = parseOptionalDate("dueDate", req.DueDate); err != nil {
		utils.WriteError(w, err)
		return
	}
	if req.Status != nil {
		status := models.BorrowalStatus(*req.Status)
		p.Status = &status
	}

	updated, err := h.Service.Update(r.Context(), caller, mux.Vars(r)["id"], p)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "updatedBorrowal": updated})
}

// DELETE /borrowal/delete/{id}
func (h *BorrowalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	deleted, err := h.Service.Delete(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "deletedBorrowal": deleted})
}

// PUT /borrowal/pay-fine/{id}
func (h *BorrowalHandler) PayFine(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	paid, err := h.Service.PayFine(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"borrowal": paid,
		"message":  "Fine paid successfully",
	})
}

func listQuery(r *http.Request) (listing.Query, error) {
	values := r.URL.Query()
	q := listing.Query{
		Search: values.Get("search"),
		SortBy: values.Get("sortBy"),
		Order:  listing.ParseOrder(values.Get("order")),
	}
	var err error
	if q.Offset, err = queryInt(r, "offset"); err != nil {
		return q, err
	}
	if q.Limit, err = queryInt(r, "limit"); err != nil {
		return q, err
	}
	return q, nil
}
