package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"booksync/internal/entity"
	"booksync/internal/store"
)

const validISBN = "1234567891234"

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchByISBN(ctx context.Context, isbn string) (entity.Book, error) {
	args := m.Called(ctx, isbn)
	return args.Get(0).(entity.Book), args.Error(1)
}

type mockBookStore struct {
	mock.Mock
}

func (m *mockBookStore) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	args := m.Called(ctx, isbn)
	return args.Bool(0), args.Error(1)
}

func (m *mockBookStore) Insert(ctx context.Context, b *entity.Book) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func TestHandle_RejectsMalformedISBN(t *testing.T) {
	fetcher := new(mockFetcher)
	books := new(mockBookStore)
	svc := NewService(fetcher, books)

	outcome := svc.Handle(context.Background(), SyncRequest{ISBN: "42"})

	assert.Equal(t, StatusRejected, outcome.Status)
	assert.Equal(t, ReasonMalformedISBN, outcome.Reason)
	assert.True(t, outcome.Ack())
	fetcher.AssertNotCalled(t, "FetchByISBN")
	books.AssertNotCalled(t, "ExistsByISBN")
	books.AssertNotCalled(t, "Insert")
}

func TestHandle_SkipsExistingBook(t *testing.T) {
	fetcher := new(mockFetcher)
	books := new(mockBookStore)
	books.On("ExistsByISBN", mock.Anything, validISBN).Return(true, nil)
	svc := NewService(fetcher, books)

	outcome := svc.Handle(context.Background(), SyncRequest{ISBN: validISBN})

	assert.Equal(t, StatusSkipped, outcome.Status)
	assert.Equal(t, ReasonAlreadyPresent, outcome.Reason)
	assert.True(t, outcome.Ack())
	fetcher.AssertNotCalled(t, "FetchByISBN")
	books.AssertNotCalled(t, "Insert")
}

func TestHandle_FailsWhenFetchFails(t *testing.T) {
	fetcher := new(mockFetcher)
	books := new(mockBookStore)
	books.On("ExistsByISBN", mock.Anything, validISBN).Return(false, nil)
	fetcher.On("FetchByISBN", mock.Anything, validISBN).
		Return(entity.Book{}, errors.New("network timeout"))
	svc := NewService(fetcher, books)

	outcome := svc.Handle(context.Background(), SyncRequest{ISBN: validISBN})

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, ReasonUpstreamFatal, outcome.Reason)
	assert.False(t, outcome.Ack())
	require.Error(t, outcome.Err)
	books.AssertNotCalled(t, "Insert")
}

func TestHandle_SkipsOnInsertConflict(t *testing.T) {
	fetcher := new(mockFetcher)
	books := new(mockBookStore)
	books.On("ExistsByISBN", mock.Anything, validISBN).Return(false, nil)
	fetcher.On("FetchByISBN", mock.Anything, validISBN).
		Return(entity.Book{ISBN: validISBN, Title: "Java book"}, nil)
	books.On("Insert", mock.Anything, mock.Anything).Return(store.ErrDuplicateISBN)
	svc := NewService(fetcher, books)

	outcome := svc.Handle(context.Background(), SyncRequest{ISBN: validISBN})

	assert.Equal(t, StatusSkipped, outcome.Status)
	assert.Equal(t, ReasonAlreadyPresent, outcome.Reason)
	assert.True(t, outcome.Ack())
}

func TestHandle_FailsOnStorageError(t *testing.T) {
	fetcher := new(mockFetcher)
	books := new(mockBookStore)
	books.On("ExistsByISBN", mock.Anything, validISBN).Return(false, nil)
	fetcher.On("FetchByISBN", mock.Anything, validISBN).
		Return(entity.Book{ISBN: validISBN, Title: "Java book"}, nil)
	books.On("Insert", mock.Anything, mock.Anything).Return(errors.New("connection closed"))
	svc := NewService(fetcher, books)

	outcome := svc.Handle(context.Background(), SyncRequest{ISBN: validISBN})

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, ReasonStorageError, outcome.Reason)
	assert.False(t, outcome.Ack())
}

func TestHandle_StoresNewBook(t *testing.T) {
	fetcher := new(mockFetcher)
	books := new(mockBookStore)
	books.On("ExistsByISBN", mock.Anything, validISBN).Return(false, nil)
	fetcher.On("FetchByISBN", mock.Anything, validISBN).
		Return(entity.Book{ISBN: validISBN, Title: "Java book"}, nil)
	books.On("Insert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			b := args.Get(1).(*entity.Book)
			b.ID = "1"
		}).
		Return(nil)
	svc := NewService(fetcher, books)

	outcome := svc.Handle(context.Background(), SyncRequest{ISBN: validISBN})

	assert.Equal(t, StatusCreated, outcome.Status)
	require.NotNil(t, outcome.Book)
	assert.Equal(t, "Java book", outcome.Book.Title)
	assert.Equal(t, validISBN, outcome.Book.ISBN)
	assert.Equal(t, "1", outcome.Book.ID)
	books.AssertExpectations(t)
}

// memBookStore enforces uniqueness the way the database unique index does.
type memBookStore struct {
	mu      sync.Mutex
	byISBN  map[string]entity.Book
	inserts int
}

func newMemBookStore() *memBookStore {
	return &memBookStore{byISBN: make(map[string]entity.Book)}
}

func (s *memBookStore) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byISBN[isbn]
	return ok, nil
}

func (s *memBookStore) Insert(ctx context.Context, b *entity.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byISBN[b.ISBN]; ok {
		return store.ErrDuplicateISBN
	}
	s.inserts++
	b.ID = "mem-1"
	s.byISBN[b.ISBN] = *b
	return nil
}

type stubFetcher struct{}

func (stubFetcher) FetchByISBN(ctx context.Context, isbn string) (entity.Book, error) {
	return entity.Book{ISBN: isbn, Title: "Java book", Author: "Kathy Sierra"}, nil
}

func TestHandle_ConcurrentDeliveriesInsertOnce(t *testing.T) {
	books := newMemBookStore()
	svc := NewService(stubFetcher{}, books)

	const deliveries = 16
	outcomes := make([]Outcome, deliveries)

	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = svc.Handle(context.Background(), SyncRequest{ISBN: validISBN})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, o := range outcomes {
		switch o.Status {
		case StatusCreated:
			created++
		case StatusSkipped:
			assert.Equal(t, ReasonAlreadyPresent, o.Reason)
		default:
			t.Fatalf("unexpected outcome %s/%s", o.Status, o.Reason)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, books.inserts)
}
