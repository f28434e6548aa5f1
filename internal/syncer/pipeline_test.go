package syncer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booksync/internal/openlibrary"
)

// End-to-end through the real client against a stubbed upstream.
func TestPipeline_SyncsBookFromStub(t *testing.T) {
	const stub = `{
	  "9780596004651": {
	    "publishers": [{"name": "O'Reilly"}],
	    "title": "Head first Java",
	    "notes": "Your brain on Java--a learner's guide--Cover.Includes index.",
	    "number_of_pages": 619,
	    "cover": {"small": "https://covers.openlibrary.org/b/id/388761-S.jpg"},
	    "subjects": [{"name": "Java (Computer program language)"}],
	    "authors": [{"name": "Kathy Sierra"}]
	  }
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(stub))
	}))
	defer srv.Close()

	client := openlibrary.NewClient(openlibrary.Config{
		BaseURL:     srv.URL,
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
		RPS:         1000,
	})
	books := newMemBookStore()
	svc := NewService(client, books)

	outcome := svc.Handle(context.Background(), SyncRequest{ISBN: "9780596004651"})

	require.Equal(t, StatusCreated, outcome.Status)
	require.NotNil(t, outcome.Book)
	assert.NotEmpty(t, outcome.Book.ID)
	assert.Equal(t, "Head first Java", outcome.Book.Title)
	assert.Equal(t, "Kathy Sierra", outcome.Book.Author)
	assert.Equal(t, "O'Reilly", outcome.Book.Publisher)
	assert.Equal(t, 619, outcome.Book.Pages)

	// A second delivery of the same request is a no-op.
	outcome = svc.Handle(context.Background(), SyncRequest{ISBN: "9780596004651"})
	assert.Equal(t, StatusSkipped, outcome.Status)
	assert.Equal(t, ReasonAlreadyPresent, outcome.Reason)
	assert.Equal(t, 1, books.inserts)
}
