package service

import (
	"context"
	"strings"

	"qonnectme/internal/domain"
)

// ShippingCents is the flat shipping fee for a non-empty cart.
const ShippingCents int64 = 500

const maxLineQuantity = 99

type ProductsStore interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}

type CartStore interface {
	ListCart(ctx context.Context, userID string) ([]domain.CartItem, error)
	// AddCartItem adjusts the line by delta and returns the new quantity.
	// A resulting quantity of 0 or less removes the line.
	AddCartItem(ctx context.Context, userID, productID string, delta int) (int, error)
	SetCartItem(ctx context.Context, userID, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, userID, productID string) error
}

type StoreService struct {
	Catalog ProductsStore
	Carts   CartStore
}

func (s *StoreService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.Catalog.ListProducts(ctx)
}

func (s *StoreService) Cart(ctx context.Context, userID string) (domain.Cart, error) {
	items, err := s.Carts.ListCart(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	return SummarizeCart(items), nil
}

func (s *StoreService) AddToCart(ctx context.Context, userID, productID string, delta int) (domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Cart{}, domain.Invalid("product_id", "required")
	}
	if delta == 0 {
		delta = 1
	}
	if delta > maxLineQuantity || delta < -maxLineQuantity {
		return domain.Cart{}, domain.Invalid("quantity", "must be between -99 and 99")
	}
	if _, err := s.Catalog.GetProduct(ctx, productID); err != nil {
		return domain.Cart{}, err
	}

	qty, err := s.Carts.AddCartItem(ctx, userID, productID, delta)
	if err != nil {
		return domain.Cart{}, err
	}
	if qty > maxLineQuantity {
		if err := s.Carts.SetCartItem(ctx, userID, productID, maxLineQuantity); err != nil {
			return domain.Cart{}, err
		}
	}
	return s.Cart(ctx, userID)
}

func (s *StoreService) SetQuantity(ctx context.Context, userID, productID string, quantity int) (domain.Cart, error) {
	if quantity < 0 || quantity > maxLineQuantity {
		return domain.Cart{}, domain.Invalid("quantity", "must be between 0 and 99")
	}
	if quantity == 0 {
		return s.RemoveFromCart(ctx, userID, productID)
	}
	if _, err := s.Catalog.GetProduct(ctx, productID); err != nil {
		return domain.Cart{}, err
	}
	if err := s.Carts.SetCartItem(ctx, userID, productID, quantity); err != nil {
		return domain.Cart{}, err
	}
	return s.Cart(ctx, userID)
}

func (s *StoreService) RemoveFromCart(ctx context.Context, userID, productID string) (domain.Cart, error) {
	if err := s.Carts.RemoveCartItem(ctx, userID, productID); err != nil {
		return domain.Cart{}, err
	}
	return s.Cart(ctx, userID)
}

// SummarizeCart totals the lines. Shipping applies only when there is at
// least one line.
func SummarizeCart(items []domain.CartItem) domain.Cart {
	cart := domain.Cart{Items: make([]domain.CartItem, 0, len(items))}
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		cart.Items = append(cart.Items, it)
		cart.SubtotalCents += it.Product.PriceCents * int64(it.Quantity)
	}
	if len(cart.Items) > 0 {
		cart.ShippingCents = ShippingCents
	}
	cart.TotalCents = cart.SubtotalCents + cart.ShippingCents
	return cart
}
