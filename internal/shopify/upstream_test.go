package shopify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"shopify-storefront/internal/cache"
	"shopify-storefront/internal/logger"
)

var operationName = regexp.MustCompile(`(?:query|mutation)\s+(\w+)`)

type recordedRequest struct {
	Operation string
	Variables map[string]interface{}
	Header    http.Header
}

// fakeUpstream answers Storefront API calls with canned bodies keyed by
// operation name.
type fakeUpstream struct {
	t      *testing.T
	mx     sync.Mutex
	bodies map[string]string
	calls  []recordedRequest
	server *httptest.Server
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{t: t, bodies: make(map[string]string)}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeUpstream) respond(operation, body string) {
	f.mx.Lock()
	defer f.mx.Unlock()
	f.bodies[operation] = body
}

func (f *fakeUpstream) serve(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Query     string                 `json:"query"`
		Variables map[string]interface{} `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		f.t.Errorf("decoding upstream request: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	op := ""
	if m := operationName.FindStringSubmatch(payload.Query); m != nil {
		op = m[1]
	}

	f.mx.Lock()
	f.calls = append(f.calls, recordedRequest{Operation: op, Variables: payload.Variables, Header: r.Header.Clone()})
	body, ok := f.bodies[op]
	f.mx.Unlock()

	if !ok {
		f.t.Errorf("unexpected operation %q", op)
		http.Error(w, "unexpected operation", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (f *fakeUpstream) requests() []recordedRequest {
	f.mx.Lock()
	defer f.mx.Unlock()
	return append([]recordedRequest(nil), f.calls...)
}

func (f *fakeUpstream) count(operation string) int {
	n := 0
	for _, c := range f.requests() {
		if c.Operation == operation {
			n++
		}
	}
	return n
}

// client returns a Client pointed at the fake server. The domain is the
// server URL, so the version segment is part of the path it ignores.
func (f *fakeUpstream) client() *Client {
	return NewClient(f.server.URL, "2025-07", "test-token", logger.Nop())
}

func (f *fakeUpstream) storefront(domain string) *Storefront {
	return NewStorefront(f.client(), cache.NewLoader(cache.NewMemoryCache(), logger.Nop()), domain, logger.Nop())
}

type memorySession struct {
	id string
}

func (s *memorySession) CartID() string {
	return s.id
}

func (s *memorySession) SetCartID(id string) {
	s.id = id
}
