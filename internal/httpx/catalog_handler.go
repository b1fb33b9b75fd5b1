package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ariefcatur/go-product-catalog/internal/orders"
)

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	ps, err := h.Service.ListProducts(ctx)
	if err != nil {
		writeFailure(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *OrdersHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid product id")
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	p, found, err := h.Service.GetProduct(ctx, id)
	if err != nil {
		writeFailure(w, h.Log, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("product %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *OrdersHandler) addProduct(w http.ResponseWriter, r *http.Request) {
	var in orders.NewProduct
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json")
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	p, err := h.Service.AddProduct(ctx, in)
	if err != nil {
		writeFailure(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *OrdersHandler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid customer id")
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	c, found, err := h.Service.GetCustomer(ctx, id)
	if err != nil {
		writeFailure(w, h.Log, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("customer %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, c)
}
