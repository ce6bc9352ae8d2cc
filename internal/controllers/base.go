package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"shopify-storefront/internal/middleware"
	"shopify-storefront/internal/shopify"
	"shopify-storefront/structs"
)

// Storefront is the data access the routes are served from.
type Storefront interface {
	GetCollection(ctx context.Context, handle string) (*structs.Collection, error)
	GetCollectionProducts(ctx context.Context, handle string, reverse bool, sortKey string) ([]structs.Product, error)
	GetCollections(ctx context.Context) ([]structs.Collection, error)
	GetMenu(ctx context.Context, handle string) ([]structs.Menu, error)
	GetPage(ctx context.Context, handle string) (*structs.Page, error)
	GetPages(ctx context.Context) ([]structs.Page, error)
	GetProduct(ctx context.Context, handle string) (*structs.Product, error)
	GetProductRecommendations(ctx context.Context, productID string) ([]structs.Product, error)
	GetProducts(ctx context.Context, query string, reverse bool, sortKey string) ([]structs.Product, error)

	GetCart(ctx context.Context, session shopify.Session) (*structs.Cart, error)
	CreateCart(ctx context.Context, session shopify.Session) (*structs.Cart, error)
	AddToCart(ctx context.Context, session shopify.Session, lines []structs.CartLineInput) (*structs.Cart, error)
	RemoveFromCart(ctx context.Context, session shopify.Session, lineIDs []string) (*structs.Cart, error)
	UpdateCart(ctx context.Context, session shopify.Session, lines []structs.CartLineUpdateInput) (*structs.Cart, error)
}

// Log interface for logging
type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// BaseController serves the storefront JSON API and the revalidation webhook.
type BaseController struct {
	store   Storefront
	webhook http.Handler
	healthy func(context.Context) bool
	log     Log
}

// NewBaseController creates a new BaseController instance. healthy may be nil.
func NewBaseController(store Storefront, webhook http.Handler, healthy func(context.Context) bool, log Log) *BaseController {
	if healthy == nil {
		healthy = func(context.Context) bool { return true }
	}
	return &BaseController{
		store:   store,
		webhook: webhook,
		healthy: healthy,
		log:     log,
	}
}

// Route sets up the routes for the BaseController
func (h *BaseController) Route() *mux.Router {
	r := mux.NewRouter()
	for _, mw := range middleware.Standard(h.log) {
		r.Use(mw)
	}

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/api/revalidate", h.webhook).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/collections", h.getCollections).Methods(http.MethodGet)
	api.HandleFunc("/collections/{handle}", h.getCollection).Methods(http.MethodGet)
	api.HandleFunc("/collections/{handle}/products", h.getCollectionProducts).Methods(http.MethodGet)
	api.HandleFunc("/products", h.getProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{handle}", h.getProduct).Methods(http.MethodGet)
	api.HandleFunc("/recommendations", h.getRecommendations).Methods(http.MethodGet)
	api.HandleFunc("/menus/{handle}", h.getMenu).Methods(http.MethodGet)
	api.HandleFunc("/pages", h.getPages).Methods(http.MethodGet)
	api.HandleFunc("/pages/{handle}", h.getPage).Methods(http.MethodGet)

	api.HandleFunc("/cart", h.getCart).Methods(http.MethodGet)
	api.HandleFunc("/cart", h.createCart).Methods(http.MethodPost)
	api.HandleFunc("/cart/lines", h.addToCart).Methods(http.MethodPost)
	api.HandleFunc("/cart/lines", h.updateCart).Methods(http.MethodPatch)
	api.HandleFunc("/cart/lines", h.removeFromCart).Methods(http.MethodDelete)

	return r
}

func (h *BaseController) health(w http.ResponseWriter, r *http.Request) {
	if !h.healthy(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *BaseController) getCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.store.GetCollections(r.Context())
	h.respond(w, r, collections, err)
}

func (h *BaseController) getCollection(w http.ResponseWriter, r *http.Request) {
	collection, err := h.store.GetCollection(r.Context(), mux.Vars(r)["handle"])
	if err == nil && collection == nil {
		h.notFound(w, "collection")
		return
	}
	h.respond(w, r, collection, err)
}

func (h *BaseController) getCollectionProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.store.GetCollectionProducts(r.Context(), mux.Vars(r)["handle"], parseBool(q.Get("reverse")), q.Get("sortKey"))
	h.respond(w, r, products, err)
}

func (h *BaseController) getProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.store.GetProducts(r.Context(), q.Get("q"), parseBool(q.Get("reverse")), q.Get("sortKey"))
	h.respond(w, r, products, err)
}

func (h *BaseController) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.store.GetProduct(r.Context(), mux.Vars(r)["handle"])
	if err == nil && product == nil {
		h.notFound(w, "product")
		return
	}
	h.respond(w, r, product, err)
}

func (h *BaseController) getRecommendations(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("productId")
	if productID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}
	products, err := h.store.GetProductRecommendations(r.Context(), productID)
	h.respond(w, r, products, err)
}

func (h *BaseController) getMenu(w http.ResponseWriter, r *http.Request) {
	menu, err := h.store.GetMenu(r.Context(), mux.Vars(r)["handle"])
	h.respond(w, r, menu, err)
}

func (h *BaseController) getPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.store.GetPages(r.Context())
	h.respond(w, r, pages, err)
}

func (h *BaseController) getPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.store.GetPage(r.Context(), mux.Vars(r)["handle"])
	if err == nil && page == nil {
		h.notFound(w, "page")
		return
	}
	h.respond(w, r, page, err)
}

func (h *BaseController) getCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.store.GetCart(r.Context(), newCookieSession(w, r))
	if err == nil && cart == nil {
		h.notFound(w, "cart")
		return
	}
	h.respond(w, r, cart, err)
}

func (h *BaseController) createCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.store.CreateCart(r.Context(), newCookieSession(w, r))
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	writeJSON(w, http.StatusCreated, cart)
}

type addLinesBody struct {
	Lines []structs.CartLineInput `json:"lines"`
}

func (h *BaseController) addToCart(w http.ResponseWriter, r *http.Request) {
	var body addLinesBody
	if err := decodeBody(r, &body); err != nil || len(body.Lines) == 0 {
		writeError(w, http.StatusBadRequest, "lines are required")
		return
	}

	session := newCookieSession(w, r)
	if session.CartID() == "" {
		if _, err := h.store.CreateCart(r.Context(), session); err != nil {
			h.respond(w, r, nil, err)
			return
		}
	}

	cart, err := h.store.AddToCart(r.Context(), session, body.Lines)
	h.respond(w, r, cart, err)
}

type updateLinesBody struct {
	Lines []structs.CartLineUpdateInput `json:"lines"`
}

func (h *BaseController) updateCart(w http.ResponseWriter, r *http.Request) {
	var body updateLinesBody
	if err := decodeBody(r, &body); err != nil || len(body.Lines) == 0 {
		writeError(w, http.StatusBadRequest, "lines are required")
		return
	}

	cart, err := h.store.UpdateCart(r.Context(), newCookieSession(w, r), body.Lines)
	h.respond(w, r, cart, err)
}

type removeLinesBody struct {
	LineIDs []string `json:"lineIds"`
}

func (h *BaseController) removeFromCart(w http.ResponseWriter, r *http.Request) {
	var body removeLinesBody
	if err := decodeBody(r, &body); err != nil || len(body.LineIDs) == 0 {
		writeError(w, http.StatusBadRequest, "lineIds are required")
		return
	}

	cart, err := h.store.RemoveFromCart(r.Context(), newCookieSession(w, r), body.LineIDs)
	h.respond(w, r, cart, err)
}

func (h *BaseController) notFound(w http.ResponseWriter, what string) {
	writeError(w, http.StatusNotFound, what+" not found")
}

// respond writes v as JSON, or maps err onto a status code.
func (h *BaseController) respond(w http.ResponseWriter, r *http.Request, v interface{}, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, v)
		return
	}

	var upstream *shopify.UpstreamError
	var transport *shopify.TransportError
	switch {
	case errors.Is(err, shopify.ErrNoCart):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &upstream), errors.As(err, &transport), errors.Is(err, shopify.ErrNoCartProvided):
		h.log.Error("storefront request failed", zap.String("uri", r.RequestURI), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.log.Error("storefront request failed", zap.String("uri", r.RequestURI), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return errors.Wrap(json.NewDecoder(r.Body).Decode(v), "decoding request body")
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
