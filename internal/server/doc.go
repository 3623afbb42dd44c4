// Package server provides the HTTP pieces behind the local redirect listener.
//
// # Router Infrastructure
//
// [BasicRouter] uses [http.ServeMux] internally with method filtering. A route registered for GET
// answers other methods with 405, so a form POST to the redirect URI never settles the callback.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// # Callback Handler
//
// [CallbackHandler] serves the path of the registered redirect URI. It pulls the authorization code out of the
// query string, publishes a single [CallbackResult] on its channel and answers later requests with 400.
// Requests for other paths (browsers ask for /favicon.ico) are 404s and never settle the result.
//
// The handler does not exchange the code: that is left to the caller so the token request is the same
// whether the code arrived here or was pasted into the terminal.
package server
