// Package openlibrary fetches book metadata from the Open Library books API
// and maps it into the normalized record, tolerating missing optional fields.
package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"booksync/internal/entity"
)

// Config carries the client knobs. Timeouts bound a single attempt; the
// retry budget spans attempts.
type Config struct {
	BaseURL        string
	UserAgent      string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxAttempts    int
	Backoff        time.Duration
	RPS            int
}

type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	maxAttempts int
	backoff     time.Duration
	limiter     *rate.Limiter
}

func NewClient(cfg Config) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 2 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		ResponseHeaderTimeout: cfg.ReadTimeout,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.ConnectTimeout + cfg.ReadTimeout,
		},
		baseURL:     cfg.BaseURL,
		userAgent:   cfg.UserAgent,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
		limiter:     rate.NewLimiter(rate.Every(time.Second/time.Duration(cfg.RPS)), 1),
	}
}

// bookPayload matches the per-ISBN object of api/books?jscmd=data.
type bookPayload struct {
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Publishers []struct {
		Name string `json:"name"`
	} `json:"publishers"`
	NumberOfPages int    `json:"number_of_pages"`
	Notes         string `json:"notes"`
	Subjects      []struct {
		Name string `json:"name"`
	} `json:"subjects"`
	Cover struct {
		Small string `json:"small"`
	} `json:"cover"`
}

// FetchByISBN issues up to MaxAttempts requests for the given ISBN. Network
// failures and 5xx responses are retried with exponential backoff; 4xx
// responses and structurally broken payloads fail immediately.
func (c *Client) FetchByISBN(ctx context.Context, isbn string) (entity.Book, error) {
	u := fmt.Sprintf("%s/api/books?jscmd=data&format=json&bibkeys=%s", c.baseURL, isbn)

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 && c.backoff > 0 {
			delay := time.Duration(1<<uint(attempt-1)) * c.backoff
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return entity.Book{}, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return entity.Book{}, err
		}

		body, err := c.getOnce(ctx, u)
		if err != nil {
			var fatal *fatalError
			if errors.As(err, &fatal) {
				return entity.Book{}, fatal.err
			}
			lastErr = err
			continue
		}

		return mapBook(isbn, body)
	}

	return entity.Book{}, fmt.Errorf("%w: after %d attempts: %v", ErrUpstream, c.maxAttempts, lastErr)
}

// fatalError marks a failure that must not consume further attempts.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

func (c *Client) getOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &fatalError{err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return nil, &fatalError{err: fmt.Errorf("%w: status code %d", ErrBookNotFound, resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// mapBook converts the raw response into the normalized record. Publisher,
// pages, notes and subjects degrade to their sentinels when absent; title,
// first author and the small cover URL are required.
func mapBook(isbn string, body []byte) (entity.Book, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return entity.Book{}, fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}

	raw, ok := envelope[isbn]
	if !ok {
		return entity.Book{}, fmt.Errorf("%w: no entry for isbn %s", ErrBookNotFound, isbn)
	}

	var payload bookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return entity.Book{}, fmt.Errorf("%w: decoding entry for isbn %s: %v", ErrUpstream, isbn, err)
	}

	if payload.Title == "" {
		return entity.Book{}, fmt.Errorf("%w: missing title for isbn %s", ErrIncompleteRecord, isbn)
	}
	if len(payload.Authors) == 0 || payload.Authors[0].Name == "" {
		return entity.Book{}, fmt.Errorf("%w: missing author for isbn %s", ErrIncompleteRecord, isbn)
	}
	if payload.Cover.Small == "" {
		return entity.Book{}, fmt.Errorf("%w: missing cover for isbn %s", ErrIncompleteRecord, isbn)
	}

	book := entity.Book{
		ISBN:         isbn,
		Title:        payload.Title,
		Author:       payload.Authors[0].Name,
		Publisher:    entity.NoPublisher,
		Pages:        payload.NumberOfPages,
		Description:  entity.NoDescription,
		Genre:        entity.NoGenre,
		ThumbnailURL: payload.Cover.Small,
	}

	if len(payload.Publishers) > 0 && payload.Publishers[0].Name != "" {
		book.Publisher = payload.Publishers[0].Name
	}
	if payload.Notes != "" {
		book.Description = payload.Notes
	}
	if len(payload.Subjects) > 0 && payload.Subjects[0].Name != "" {
		book.Genre = payload.Subjects[0].Name
	}

	return book, nil
}
