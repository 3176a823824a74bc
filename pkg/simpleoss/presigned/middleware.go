package presigned

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type contextKey string

const (
	// ObjectKeyContextKey is the context key for the validated object key
	ObjectKeyContextKey contextKey = "presigned:object_key"
	// BucketContextKey is the context key for the validated bucket
	BucketContextKey contextKey = "presigned:bucket"
)

// AnonymousFunc decides whether an unsigned request may proceed.
type AnonymousFunc func(r *http.Request, bucket, key string) bool

// RouteParams extracts the bucket and object key from a "/{bucket}/*" chi route.
func RouteParams(r *http.Request) (bucket, key string) {
	return chi.URLParam(r, "bucket"), chi.URLParam(r, "*")
}

// ValidateMiddleware returns chi-compatible middleware that checks signed
// requests on "/{bucket}/*" routes. Requests without a Signature parameter are
// passed only when anonymous allows them.
//
// It must be attached with r.With so route parameters are resolved:
//
//	r.With(presigned.ValidateMiddleware(signer, nil)).Get("/{bucket}/*", h)
func ValidateMiddleware(signer *Signer, anonymous AnonymousFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bucket, key := RouteParams(r)
			if bucket == "" || key == "" {
				writeError(w, http.StatusBadRequest, "InvalidObjectName", "bucket and object key are required")
				return
			}

			if r.URL.Query().Get(ParamSignature) == "" {
				if anonymous == nil || !anonymous(r, bucket, key) {
					writeError(w, http.StatusForbidden, "AccessDenied", "You have no right to access this object.")
					return
				}
			} else if err := signer.ValidateRequest(r, bucket, key); err != nil {
				handleValidationError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), BucketContextKey, bucket)
			ctx = context.WithValue(ctx, ObjectKeyContextKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ObjectKeyFromContext returns the validated object key, or "".
func ObjectKeyFromContext(ctx context.Context) string {
	if key, ok := ctx.Value(ObjectKeyContextKey).(string); ok {
		return key
	}
	return ""
}

// BucketFromContext returns the validated bucket, or "".
func BucketFromContext(ctx context.Context) string {
	if bucket, ok := ctx.Value(BucketContextKey).(string); ok {
		return bucket
	}
	return ""
}

func handleValidationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingExpiration), errors.Is(err, ErrInvalidExpiration):
		writeError(w, http.StatusBadRequest, "InvalidArgument", err.Error())
	case errors.Is(err, ErrExpired):
		writeError(w, http.StatusForbidden, "AccessDenied", "Request has expired.")
	case errors.Is(err, ErrAccessKeyMismatch):
		writeError(w, http.StatusForbidden, "InvalidAccessKeyId", "The OSS Access Key Id you provided does not exist in our records.")
	case errors.Is(err, ErrInvalidSignature):
		writeError(w, http.StatusForbidden, "SignatureDoesNotMatch", "The request signature we calculated does not match the signature you provided.")
	default:
		slog.Error("presigned: validation error", "err", err)
		writeError(w, http.StatusForbidden, "AccessDenied", "Authentication failed")
	}
}
