package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Gur1a/CheckList/internal/metrics"
	"github.com/Gur1a/CheckList/internal/obfuscate"
)

// DefaultProjectIDParam is the query key the SPA sends obfuscated project
// tokens under.
const DefaultProjectIDParam = "encryptedProjectId"

type contextKey string

const projectIDKey contextKey = "projectID"

// TokenDecoder is the slice of *obfuscate.Codec the filter needs.
type TokenDecoder interface {
	Decode(token string) (int64, error)
}

// ProjectID returns a middleware that turns an obfuscated project token in
// the query string into a plain project ID on the request context.
//
// FAIL-OPEN:
// This filter never rejects a request. A missing parameter, a malformed
// token, or even a panic inside the decoder all end the same way: the next
// handler runs without a project ID. Handlers that need one call
// ProjectIDFromContext and answer 400 themselves. That keeps routes which
// don't care about projects (auth, tags, health) unaffected by junk in the
// query string.
//
// The decoded ID only says WHICH project the client is talking about. It
// says nothing about whether the caller may touch it; services check
// membership separately.
func ProjectID(codec TokenDecoder, logger *slog.Logger, param string) func(http.Handler) http.Handler {
	if param == "" {
		param = DefaultProjectIDParam
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.URL.Query().Get(param))
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := safeDecode(codec, token)
			if err != nil {
				kind := decodeFailureKind(err)
				metrics.TokenDecodes.WithLabelValues(kind).Inc()
				logger.Warn("project identifier rejected",
					slog.String("param", param),
					slog.String("kind", kind),
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			metrics.TokenDecodes.WithLabelValues("ok").Inc()
			ctx := context.WithValue(r.Context(), projectIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProjectIDFromContext returns the project ID attached by ProjectID.
// ok is false when the request carried no usable token.
func ProjectIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(projectIDKey).(int64)
	return id, ok && id > 0
}

// WithProjectID attaches id the same way the filter does. Tests and
// internal callers use it to skip the query-string round trip.
func WithProjectID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, projectIDKey, id)
}

func safeDecode(codec TokenDecoder, token string) (id int64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			id = 0
			err = fmt.Errorf("decoder panic: %v", rec)
		}
	}()
	return codec.Decode(token)
}

func decodeFailureKind(err error) string {
	switch {
	case errors.Is(err, obfuscate.ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, obfuscate.ErrInvalidLength):
		return "invalid_length"
	case errors.Is(err, obfuscate.ErrNonDigitCore):
		return "non_digit_core"
	case errors.Is(err, obfuscate.ErrNotPositive):
		return "not_positive"
	default:
		return "unexpected"
	}
}
