package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

type requestMetaKey struct{}

// requestMeta is shared by pointer so middleware deeper in the chain can report the
// authenticated identity back to the access log
type requestMeta struct {
	id     string
	userID string
	orgID  string
}

// RequestID keeps a client supplied X-Request-ID or assigns a new one, echoes it in the response
// and stores it on the request context
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 100 {
			id = uuid.New().String()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestMetaKey{}, &requestMeta{id: id})))
	})
}

// GetRequestID returns the id assigned by RequestID, or ""
func GetRequestID(ctx context.Context) string {
	if meta := metaFrom(ctx); meta != nil {
		return meta.id
	}
	return ""
}

func metaFrom(ctx context.Context) *requestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(*requestMeta)
	return meta
}

// Recoverer turns a handler panic into a logged 500
func Recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("request_id", GetRequestID(r.Context())),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()),
					)
					respondError(w, http.StatusInternalServerError, domain.ErrorTypeInternal, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func respondError(w http.ResponseWriter, status int, errType, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   errType,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}
