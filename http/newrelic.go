package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// withTransaction records every API call as a web transaction named after its
// route pattern. A nil app leaves the handler untouched.
func withTransaction(app *newrelic.Application) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if app == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			txn := app.StartTransaction(r.Method + " " + r.URL.Path)
			defer txn.End()

			txn.SetWebRequestHTTP(r)
			w = txn.SetWebResponse(w)
			r = newrelic.RequestWithTransactionContext(r, txn)

			next.ServeHTTP(w, r)

			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				txn.SetName(r.Method + " " + rc.RoutePattern())
			}
		})
	}
}
