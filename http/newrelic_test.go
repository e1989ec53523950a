package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/newrelic/go-agent/v3/newrelic"
)

func TestWithTransaction(t *testing.T) {
	app, _ := newrelic.NewApplication(newrelic.ConfigAppName("mail-relay-test"), newrelic.ConfigEnabled(false))

	for name, a := range map[string]*newrelic.Application{"without agent": nil, "with disabled agent": app} {
		t.Run(name, func(t *testing.T) {
			var sawTxn bool
			r := chi.NewRouter()
			r.Use(withTransaction(a))
			r.Get("/requests/{reqID}", func(w http.ResponseWriter, r *http.Request) {
				sawTxn = newrelic.FromContext(r.Context()) != nil
				w.WriteHeader(http.StatusTeapot)
			})

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/requests/abc", nil))

			if rec.Code != http.StatusTeapot {
				t.Errorf("expected the wrapped handler to respond, got %d", rec.Code)
			}

			if sawTxn != (a != nil) {
				t.Errorf("expected a transaction in the request context: %v, got %v", a != nil, sawTxn)
			}
		})
	}
}
