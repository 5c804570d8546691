package httputil

import "net/http"

// Request methods
const (
	Get     = "GET"
	Post    = "POST"
	Put     = "PUT"
	Patch   = "PATCH"
	Delete  = "DELETE"
	Options = "OPTIONS"
)

// SupportedMethods wraps a handler rejecting any request whose method is not
// in the provided list with 405 and an Allow header.
func SupportedMethods(h http.Handler, methods ...string) http.Handler {
	allow := ""
	for i, m := range methods {
		if i != 0 {
			allow += ", "
		}
		allow += m
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, m := range methods {
			if r.Method == m {
				h.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("Allow", allow)
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}
