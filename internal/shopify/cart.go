package shopify

import (
	"context"

	"go.uber.org/zap"

	"shopify-storefront/internal/documents"
	"shopify-storefront/structs"
)

// cartPayload matches both the getCart root and the cart mutation payloads.
type cartPayload struct {
	Cart *structs.ShopifyCart `json:"cart"`
}

// GetCart returns nil when the session has no cart or the upstream no longer
// knows it; old carts become null after checkout.
func (s *Storefront) GetCart(ctx context.Context, session Session) (*structs.Cart, error) {
	cartID := session.CartID()
	if cartID == "" {
		return nil, nil
	}

	data, err := Query[cartPayload](ctx, s.client, request(documents.GetCartQuery, map[string]interface{}{"cartId": cartID}))
	if err != nil {
		return nil, err
	}
	if data.Cart == nil {
		return nil, nil
	}
	return ReshapeCart(data.Cart)
}

type createCartData struct {
	CartCreate *cartPayload `json:"cartCreate"`
}

// CreateCart starts an empty cart and stores its id in the session.
func (s *Storefront) CreateCart(ctx context.Context, session Session) (*structs.Cart, error) {
	data, err := Query[createCartData](ctx, s.client, request(documents.CreateCartMutation, map[string]interface{}{}))
	if err != nil {
		return nil, err
	}
	if data.CartCreate == nil {
		return nil, ErrNoCartProvided
	}

	cart, err := ReshapeCart(data.CartCreate.Cart)
	if err != nil {
		return nil, err
	}
	session.SetCartID(cart.ID)
	s.log.Info("cart created", zap.String("cart_id", cart.ID))
	return cart, nil
}

type addToCartData struct {
	CartLinesAdd *cartPayload `json:"cartLinesAdd"`
}

func (s *Storefront) AddToCart(ctx context.Context, session Session, lines []structs.CartLineInput) (*structs.Cart, error) {
	cartID := session.CartID()
	if cartID == "" {
		return nil, ErrNoCart
	}

	data, err := Query[addToCartData](ctx, s.client, request(documents.AddToCartMutation, map[string]interface{}{
		"cartId": cartID,
		"lines":  lines,
	}))
	if err != nil {
		return nil, err
	}
	return reshapePayload(data.CartLinesAdd)
}

type removeFromCartData struct {
	CartLinesRemove *cartPayload `json:"cartLinesRemove"`
}

func (s *Storefront) RemoveFromCart(ctx context.Context, session Session, lineIDs []string) (*structs.Cart, error) {
	cartID := session.CartID()
	if cartID == "" {
		return nil, ErrNoCart
	}

	data, err := Query[removeFromCartData](ctx, s.client, request(documents.RemoveFromCartMutation, map[string]interface{}{
		"cartId":  cartID,
		"lineIds": lineIDs,
	}))
	if err != nil {
		return nil, err
	}
	return reshapePayload(data.CartLinesRemove)
}

type updateCartData struct {
	CartLinesUpdate *cartPayload `json:"cartLinesUpdate"`
}

func (s *Storefront) UpdateCart(ctx context.Context, session Session, lines []structs.CartLineUpdateInput) (*structs.Cart, error) {
	cartID := session.CartID()
	if cartID == "" {
		return nil, ErrNoCart
	}

	data, err := Query[updateCartData](ctx, s.client, request(documents.EditCartItemsMutation, map[string]interface{}{
		"cartId": cartID,
		"lines":  lines,
	}))
	if err != nil {
		return nil, err
	}
	return reshapePayload(data.CartLinesUpdate)
}

func reshapePayload(p *cartPayload) (*structs.Cart, error) {
	if p == nil {
		return nil, ErrNoCartProvided
	}
	return ReshapeCart(p.Cart)
}
