package middleware

import (
	"context"
	"net/http"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/service"
)

type ctxKey string

const ThreadKey ctxKey = "thread"

// GetThread extracts the thread loaded by ThreadLoader.
func GetThread(ctx context.Context) *domain.Thread {
	t, ok := ctx.Value(ThreadKey).(*domain.Thread)
	if !ok {
		return nil
	}
	return t
}

// ThreadLoader resolves the {threadId} path value into a thread and stores it
// in the request context. Lookup failures, including malformed and unknown
// ids, are passed to onError and the wrapped handler is not called.
func ThreadLoader(threads *service.ThreadService, onError func(http.ResponseWriter, *http.Request, error)) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := service.ParseThreadID(r.PathValue("threadId"))
			if err != nil {
				onError(w, r, domain.ErrThreadNotFound)
				return
			}
			thread, err := threads.Get(r.Context(), id)
			if err != nil {
				onError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), ThreadKey, thread)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
