package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-product-catalog/internal/orders"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, code int, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, code int, kind, msg string) {
	writeJSON(w, code, ErrorResponse{Error: kind, Message: msg})
}

// writeFailure maps a service error to its status class. Internal errors are
// logged and reported without detail.
func writeFailure(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, orders.Kind(err), err.Error())
	case errors.Is(err, orders.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, orders.Kind(err), err.Error())
	case errors.Is(err, orders.ErrInvalidOperation):
		writeError(w, http.StatusConflict, orders.Kind(err), err.Error())
	default:
		log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "unexpected error")
	}
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
