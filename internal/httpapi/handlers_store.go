package httpapi

import (
	"net/http"
	"strings"

	"qonnectme/internal/domain"
)

func (a *api) handleProductsList(w http.ResponseWriter, r *http.Request) {
	products, err := a.storeSvc.ListProducts(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, products)
}

func (a *api) handleCartGet(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	cart, err := a.storeSvc.Cart(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, cart)
}

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (a *api) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req addCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}

	cart, err := a.storeSvc.AddToCart(r.Context(), u.ID, req.ProductID, req.Quantity)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, cart)
}

type setCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

func (a *api) handleCartSet(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req setCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	if req.Quantity == nil {
		WriteDomainError(w, domain.Invalid("quantity", "required"))
		return
	}

	cart, err := a.storeSvc.SetQuantity(r.Context(), u.ID, strings.TrimSpace(r.PathValue("productID")), *req.Quantity)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, cart)
}

func (a *api) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	cart, err := a.storeSvc.RemoveFromCart(r.Context(), u.ID, strings.TrimSpace(r.PathValue("productID")))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, cart)
}
