// Package httpapi exposes the submit endpoint and the read-side book API.
package httpapi

import (
	"context"
	"net/http"
	"time"
)

// NewRouter assembles the ServeMux with logging and recovery middleware.
// readyCheck is typically the database ping.
func NewRouter(books *BookHandler, sync *SyncHandler, readyCheck func(context.Context) error) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := readyCheck(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/sync", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sync.Submit(w, r)
	})

	mux.HandleFunc("/books", books.List)
	mux.HandleFunc("/books/", books.GetByISBN)

	return AccessLogMiddleware(RecoveryMiddleware(mux))
}
