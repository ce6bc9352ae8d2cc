package controllers

import (
	"net/http"
)

// CartCookie holds the Shopify cart id between requests.
const CartCookie = "cartId"

// cookieSession adapts the request cookie to shopify.Session. A new id is
// visible to later calls on the same request.
type cookieSession struct {
	w  http.ResponseWriter
	id string
}

func newCookieSession(w http.ResponseWriter, r *http.Request) *cookieSession {
	s := &cookieSession{w: w}
	if c, err := r.Cookie(CartCookie); err == nil {
		s.id = c.Value
	}
	return s
}

func (s *cookieSession) CartID() string {
	return s.id
}

func (s *cookieSession) SetCartID(id string) {
	s.id = id
	http.SetCookie(s.w, &http.Cookie{
		Name:     CartCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
