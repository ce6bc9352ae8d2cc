package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify-storefront/internal/config"
	"shopify-storefront/internal/logger"
	"shopify-storefront/internal/shopify"
)

const productBody = `{"data":{"product":{
	"id": "gid://shopify/Product/1",
	"handle": "tee",
	"title": "Tee",
	"tags": [],
	"variants": {"edges": []},
	"images": {"edges": []}
}}}`

func options(t *testing.T, args ...string) *config.Options {
	t.Helper()
	for _, key := range []string{"DATABASE_URI", "SHOPIFY_REVALIDATION_SECRET", "SHOPIFY_STORE_DOMAIN", "SHOPIFY_STOREFRONT_ACCESS_TOKEN"} {
		t.Setenv(key, "")
	}
	o := config.NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return o
}

func TestHandlerServesCachedProductsAndRevalidates(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "tok", r.Header.Get(shopify.AccessTokenHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(productBody))
	}))
	t.Cleanup(upstream.Close)

	opts := options(t, "--domain", upstream.URL, "--token", "tok", "--revalidation-secret", "s3cret")
	handler, closers, err := NewHandler(context.Background(), opts, logger.Nop())
	require.NoError(t, err)
	assert.Empty(t, closers)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	getProduct := func() {
		res, err := http.Get(srv.URL + "/api/products/tee")
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		assert.Equal(t, "Tee", body["title"])
	}

	getProduct()
	getProduct()
	assert.EqualValues(t, 1, calls.Load())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/revalidate?secret=s3cret", nil)
	require.NoError(t, err)
	req.Header.Set("X-Shopify-Topic", "products/update")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	getProduct()
	assert.EqualValues(t, 2, calls.Load())
}

func TestHealthWithMemoryCache(t *testing.T) {
	opts := options(t, "--domain", "shop.example.com", "--token", "tok")
	handler, _, err := NewHandler(context.Background(), opts, logger.Nop())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServeRequiresCredentials(t *testing.T) {
	server, err := NewServer(context.Background(), options(t))
	require.NoError(t, err)

	err = server.Serve()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHOPIFY_STORE_DOMAIN")
	assert.Contains(t, err.Error(), "SHOPIFY_STOREFRONT_ACCESS_TOKEN")
}

func TestNewServerRejectsBadLevel(t *testing.T) {
	_, err := NewServer(context.Background(), options(t, "-l", "loud"))
	assert.Error(t, err)
}

func TestShutdownBeforeServe(t *testing.T) {
	opts := options(t, "--domain", "shop.example.com", "--token", "tok", "-a", "127.0.0.1:0", "-l", "error")
	server, err := NewServer(context.Background(), opts)
	require.NoError(t, err)

	server.Shutdown(time.Second)

	done := make(chan error, 1)
	go func() { done <- server.Serve() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve kept listening after Shutdown")
	}
}

func TestShutdownStopsRunningServer(t *testing.T) {
	opts := options(t, "--domain", "shop.example.com", "--token", "tok", "-a", "127.0.0.1:0", "-l", "error")
	server, err := NewServer(context.Background(), opts)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- server.Serve() }()
	time.Sleep(50 * time.Millisecond)
	server.Shutdown(time.Second)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}
