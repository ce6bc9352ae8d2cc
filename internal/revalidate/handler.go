// Package revalidate receives Shopify webhooks and evicts cached reads for
// the resources they report as changed.
package revalidate

import (
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shopify-storefront/internal/cache"
)

const (
	TopicHeader     = "X-Shopify-Topic"
	WebhookIDHeader = "X-Shopify-Webhook-Id"
	SecretParam     = "secret"
)

var (
	collectionTopics = []string{"collections/create", "collections/delete", "collections/update"}
	productTopics    = []string{"products/create", "products/delete", "products/update"}
)

type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// Handler answers every delivery with 200 except a bad secret, which gets
// 401; Shopify keeps retrying anything else.
type Handler struct {
	secret      string
	invalidator cache.Invalidator
	log         Log
	now         func() time.Time
}

func NewHandler(secret string, invalidator cache.Invalidator, log Log) *Handler {
	return &Handler{
		secret:      secret,
		invalidator: invalidator,
		log:         log,
		now:         time.Now,
	}
}

type response struct {
	Status      int   `json:"status"`
	Revalidated bool  `json:"revalidated,omitempty"`
	Now         int64 `json:"now,omitempty"`
}

// TagsForTopic maps a webhook topic to the cache tags it invalidates.
func TagsForTopic(topic string) []string {
	var tags []string
	if slices.Contains(collectionTopics, topic) {
		tags = append(tags, cache.TagCollections)
	}
	if slices.Contains(productTopics, topic) {
		tags = append(tags, cache.TagProducts)
	}
	return tags
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topic := r.Header.Get(TopicHeader)
	if topic == "" {
		topic = "unknown"
	}
	webhookID := r.Header.Get(WebhookIDHeader)
	if webhookID == "" {
		webhookID = uuid.NewString()
	}
	fields := []zap.Field{zap.String("topic", topic), zap.String("webhook_id", webhookID)}

	secret := r.URL.Query().Get(SecretParam)
	if secret == "" || secret != h.secret {
		h.log.Error("invalid revalidation secret", fields...)
		writeJSON(w, http.StatusUnauthorized, response{Status: http.StatusUnauthorized})
		return
	}

	tags := TagsForTopic(topic)
	if len(tags) == 0 {
		writeJSON(w, http.StatusOK, response{Status: http.StatusOK})
		return
	}

	if err := h.invalidator.Invalidate(r.Context(), tags...); err != nil {
		h.log.Error("revalidation failed", append(fields, zap.Strings("tags", tags), zap.Error(err))...)
		writeJSON(w, http.StatusOK, response{Status: http.StatusOK})
		return
	}

	h.log.Info("revalidated", append(fields, zap.Strings("tags", tags))...)
	writeJSON(w, http.StatusOK, response{
		Status:      http.StatusOK,
		Revalidated: true,
		Now:         h.now().UnixMilli(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
