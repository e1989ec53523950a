package http

import (
	"context"
	"net/http"
	"strings"

	"inviqa/mail-relay/log"
	"inviqa/mail-relay/request"
	"inviqa/mail-relay/request/data"

	"github.com/pkg/errors"
)

type contextKey string

const authKeyCtxKey contextKey = "authKey"

type keyFinder interface {
	FindKeyByCode(ctx context.Context, code string) (*request.AuthKey, error)
}

// requireKey resolves the bearer token to an auth key and rejects the request
// when it is missing, unknown or banned.
func requireKey(keys keyFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				log.Logger.WithField("path", r.URL.Path).Warn("request without a usable authorization header")
				writeMessage(w, http.StatusUnauthorized, "missing or malformed bearer token")
				return
			}

			k, err := keys.FindKeyByCode(r.Context(), code)
			switch {
			case errors.Is(err, request.ErrNotFound):
				writeMessage(w, http.StatusUnauthorized, "unknown API key")
				return
			case errors.Is(err, data.ErrUnavailable):
				writeMessage(w, http.StatusServiceUnavailable, "the service is temporarily unavailable")
				return
			case err != nil:
				log.Logger.WithError(err).Error("unable to look up the API key")
				writeMessage(w, http.StatusInternalServerError, "unable to verify the API key")
				return
			}

			if k.Banned() {
				log.Logger.WithField("keyId", k.Id).Info("rejected a request from a banned key")
				writeMessage(w, http.StatusForbidden, "this API key is banned: "+k.Ban.String)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authKeyCtxKey, k)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}

func authKeyFrom(ctx context.Context) *request.AuthKey {
	k, _ := ctx.Value(authKeyCtxKey).(*request.AuthKey)
	return k
}
