package utils

import (
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"library-lending/internal/apperr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func JSONError(w http.ResponseWriter, message string, code int) {
	WriteJSON(w, code, map[string]any{"success": false, "message": message})
}

// WriteError maps err onto its HTTP status and client-facing message.
func WriteError(w http.ResponseWriter, err error) {
	JSONError(w, apperr.Message(err), apperr.HTTPStatus(err))
}

func DecodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return nil
}
