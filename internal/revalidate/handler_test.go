package revalidate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify-storefront/internal/cache"
	"shopify-storefront/internal/logger"
)

type recordingInvalidator struct {
	tags [][]string
	err  error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, tags ...string) error {
	r.tags = append(r.tags, tags)
	return r.err
}

func deliver(t *testing.T, h http.Handler, secret, topic string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	target := "/api/revalidate"
	if secret != "" {
		target += "?secret=" + secret
	}
	req := httptest.NewRequest(http.MethodPost, target, nil)
	if topic != "" {
		req.Header.Set("x-shopify-topic", topic)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func newHandler(inv cache.Invalidator) *Handler {
	h := NewHandler("s3cret", inv, logger.Nop())
	h.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return h
}

func TestRejectsWrongSecret(t *testing.T) {
	inv := &recordingInvalidator{}
	h := newHandler(inv)

	for _, secret := range []string{"", "wrong"} {
		rec, body := deliver(t, h, secret, "products/update")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.EqualValues(t, 401, body["status"])
	}
	assert.Empty(t, inv.tags)
}

func TestEmptyConfiguredSecretRejectsEverything(t *testing.T) {
	inv := &recordingInvalidator{}
	h := NewHandler("", inv, logger.Nop())

	rec, _ := deliver(t, h, "", "products/update")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, inv.tags)
}

func TestProductTopicInvalidatesProducts(t *testing.T) {
	inv := &recordingInvalidator{}

	rec, body := deliver(t, newHandler(inv), "s3cret", "products/update")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [][]string{{cache.TagProducts}}, inv.tags)
	assert.EqualValues(t, 200, body["status"])
	assert.Equal(t, true, body["revalidated"])
	assert.EqualValues(t, 1700000000000, body["now"])
}

func TestCollectionTopicInvalidatesCollections(t *testing.T) {
	inv := &recordingInvalidator{}

	rec, _ := deliver(t, newHandler(inv), "s3cret", "collections/delete")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [][]string{{cache.TagCollections}}, inv.tags)
}

func TestUnknownTopicAccepted(t *testing.T) {
	inv := &recordingInvalidator{}

	for _, topic := range []string{"orders/create", ""} {
		rec, body := deliver(t, newHandler(inv), "s3cret", topic)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 200, body["status"])
		assert.NotContains(t, body, "revalidated")
	}
	assert.Empty(t, inv.tags)
}

func TestInvalidationFailureStillOK(t *testing.T) {
	inv := &recordingInvalidator{err: errors.New("db down")}

	rec, body := deliver(t, newHandler(inv), "s3cret", "products/delete")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, body, "revalidated")
}

func TestInvalidatesRealCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	require.NoError(t, c.Set(ctx, "getProduct", []byte("{}"), []string{cache.TagProducts}, cache.Days))
	require.NoError(t, c.Set(ctx, "getMenu", []byte("[]"), []string{cache.TagCollections}, cache.Days))

	deliver(t, newHandler(c), "s3cret", "products/create")

	_, ok, _ := c.Get(ctx, "getProduct")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "getMenu")
	assert.True(t, ok)
}

func TestTagsForTopic(t *testing.T) {
	assert.Equal(t, []string{cache.TagCollections}, TagsForTopic("collections/create"))
	assert.Equal(t, []string{cache.TagProducts}, TagsForTopic("products/delete"))
	assert.Nil(t, TagsForTopic("orders/create"))
}
