package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/stash/internal/shared"
)

// CallbackResult is what a single redirect to the callback path produced.
type CallbackResult struct {
	Code string
	Err  error
}

// CallbackHandler captures the authorization code from the provider's redirect.
//
// Only the first request to the callback path is considered; later ones are rejected.
type CallbackHandler struct {
	path    string
	results chan CallbackResult
	once    sync.Once
	mu      sync.Mutex
	hit     bool
}

// NewCallbackHandler creates a handler for the redirect URI's path.
func NewCallbackHandler(path string) *CallbackHandler {
	if path == "" {
		path = "/"
	}
	return &CallbackHandler{
		path:    path,
		results: make(chan CallbackResult, 1),
	}
}

// Path returns the callback path the handler accepts.
func (h *CallbackHandler) Path() string {
	return h.path
}

// ServeHTTP reads the code (or the provider's error) from the query string and publishes it.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != h.path {
		http.NotFound(w, r)
		return
	}

	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	query := r.URL.Query()
	if errParam := query.Get("error"); errParam != "" {
		h.Send(CallbackResult{Err: fmt.Errorf("%w: provider returned %q", shared.ErrAuthFailed, errParam)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.Send(CallbackResult{Err: fmt.Errorf("%w: no code parameter in %q", shared.ErrMalformedRedirect, r.URL.RawQuery)})
		http.Error(w, "Missing code parameter", http.StatusBadRequest)
		return
	}

	h.Send(CallbackResult{Code: code})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

// Send publishes the result (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result returns the channel that receives exactly one result and is then closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.results
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>Authorization Received</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Authorization received</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`
