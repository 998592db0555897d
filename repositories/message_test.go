package repositories

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Append_Assigns_ID_And_Timestamp(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), 0)

	before := time.Now().UTC()
	msg, err := repo.Append("general", domain.Principal{ID: "u1", DisplayName: "Alice"}, "hi", "en")
	req.NoError(err)
	req.NotEqual([16]byte{}, [16]byte(msg.ID))
	req.False(msg.CreatedAt.Before(before))
	req.Equal(domain.ChannelID("general"), msg.Channel)
	req.Equal("Alice", msg.SenderName)
}

func Test_Page_Returns_Oldest_First(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), 0)
	alice := domain.Principal{ID: "u1", DisplayName: "Alice"}

	for i := 1; i <= 3; i++ {
		_, err := repo.Append("general", alice, fmt.Sprintf("msg %d", i), "")
		req.NoError(err)
		time.Sleep(time.Millisecond)
	}

	page, cursor, err := repo.Page("general", nil, 50)
	req.NoError(err)
	req.Len(page, 3)
	req.Equal("msg 1", page[0].Body)
	req.Equal("msg 3", page[2].Body)
	req.NotNil(cursor)
}

func Test_Page_Scopes_By_Channel(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), 0)
	alice := domain.Principal{ID: "u1", DisplayName: "Alice"}

	_, err := repo.Append("general", alice, "in general", "")
	req.NoError(err)
	_, err = repo.Append("random", alice, "in random", "")
	req.NoError(err)

	page, _, err := repo.Page("general", nil, 50)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal("in general", page[0].Body)
}

func Test_Page_Cursor_Walks_Full_History_Without_Gaps(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), 0)
	bob := domain.Principal{ID: "u2", DisplayName: "Bob"}

	total := 10
	for i := 1; i <= total; i++ {
		_, err := repo.Append("general", bob, fmt.Sprintf("msg %02d", i), "")
		req.NoError(err)
		time.Sleep(time.Millisecond)
	}

	var collected []string
	var cursor *string
	for {
		page, next, err := repo.Page("general", cursor, 3)
		req.NoError(err)
		if len(page) == 0 {
			break
		}
		// Each page itself is oldest-first.
		for i := 1; i < len(page); i++ {
			req.True(page[i-1].CreatedAt.Before(page[i].CreatedAt) ||
				(page[i-1].CreatedAt.Equal(page[i].CreatedAt) && page[i-1].ID.String() < page[i].ID.String()))
		}
		for _, m := range page {
			collected = append(collected, m.Body)
		}
		cursor = next
	}

	req.Len(collected, total)
	seen := make(map[string]struct{})
	for _, body := range collected {
		_, dup := seen[body]
		req.False(dup, "duplicate message %s across pages", body)
		seen[body] = struct{}{}
	}
	// Pages walk backwards, so the very first collected entry belongs to the
	// newest page.
	req.Equal("msg 08", collected[0])
	req.Equal("msg 01", collected[len(collected)-1])
}

func Test_Page_Clamps_Limit(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), 2)
	clara := domain.Principal{ID: "u3", DisplayName: "Clara"}

	for i := 0; i < 5; i++ {
		_, err := repo.Append("general", clara, "spam", "")
		req.NoError(err)
		time.Sleep(time.Millisecond)
	}

	page, _, err := repo.Page("general", nil, 1000)
	req.NoError(err)
	req.Len(page, 2)

	page, _, err = repo.Page("general", nil, -1)
	req.NoError(err)
	req.Len(page, 2)
}

func Test_Page_Empty_Channel(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), 0)

	page, cursor, err := repo.Page("nobody-home", nil, 50)
	req.NoError(err)
	req.Empty(page)
	req.Nil(cursor)
}

func Test_Page_Timestamp_Only_Cursor_Keeps_Older_Message(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), 0)
	alice := domain.Principal{ID: "u1", DisplayName: "Alice"}

	var all []domain.Message
	for i := 1; i <= 3; i++ {
		msg, err := repo.Append("general", alice, fmt.Sprintf("msg %d", i), "")
		req.NoError(err)
		all = append(all, msg)
		time.Sleep(time.Millisecond)
	}

	// A cursor carrying only the timestamp matches no stored key; the reverse
	// seek lands on the next older entry, which must not be skipped.
	cursor := fmt.Sprintf("%019d", all[1].CreatedAt.UnixNano())
	page, _, err := repo.Page("general", &cursor, 50)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal("msg 1", page[0].Body)
}

func Test_Concurrent_Appends_Pages_Ordered_And_Complete(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), 0)

	const writers = 8
	const perWriter = 25
	errCh := make(chan error, writers*perWriter+8)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			sender := domain.Principal{ID: fmt.Sprintf("u%d", w), DisplayName: fmt.Sprintf("writer %d", w)}
			for i := 0; i < perWriter; i++ {
				if _, err := repo.Append("general", sender, fmt.Sprintf("w%d msg %02d", w, i), ""); err != nil {
					errCh <- err
					return
				}
			}
		}(w)
	}

	// Page concurrently with the writers; whatever commits in between, each
	// page must stay internally ordered by (createdAt, id).
	stop := make(chan struct{})
	pagerDone := make(chan struct{})
	go func() {
		defer close(pagerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			page, _, err := repo.Page("general", nil, 50)
			if err != nil {
				errCh <- err
				return
			}
			for i := 1; i < len(page); i++ {
				if !keyOrdered(page[i-1], page[i]) {
					errCh <- fmt.Errorf("page out of order: %q after %q", page[i].Body, page[i-1].Body)
					return
				}
			}
		}
	}()

	wg.Wait()
	close(stop)
	<-pagerDone
	close(errCh)
	for err := range errCh {
		req.NoError(err)
	}

	// A full cursor walk after the writers finish yields every message
	// exactly once.
	counts := make(map[string]int)
	var cursor *string
	for {
		page, next, err := repo.Page("general", cursor, 7)
		req.NoError(err)
		if len(page) == 0 {
			break
		}
		for _, m := range page {
			counts[m.Body]++
		}
		cursor = next
	}
	req.Len(counts, writers*perWriter)
	for body, n := range counts {
		req.Equal(1, n, "message %q appeared %d times across pages", body, n)
	}
}

func Test_Page_Cursor_Excludes_Later_Appends(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), 0)
	alice := domain.Principal{ID: "u1", DisplayName: "Alice"}

	var all []domain.Message
	for i := 1; i <= 5; i++ {
		msg, err := repo.Append("general", alice, fmt.Sprintf("msg %d", i), "")
		req.NoError(err)
		all = append(all, msg)
		time.Sleep(time.Millisecond)
	}

	page, cursor, err := repo.Page("general", nil, 3)
	req.NoError(err)
	req.Len(page, 3)
	req.Equal("msg 3", page[0].Body)
	req.NotNil(cursor)

	// New traffic lands after the cursor was taken; resuming must only walk
	// strictly older messages.
	for i := 6; i <= 8; i++ {
		_, err := repo.Append("general", alice, fmt.Sprintf("msg %d", i), "")
		req.NoError(err)
	}

	resumed, _, err := repo.Page("general", cursor, 50)
	req.NoError(err)
	req.Len(resumed, 2)
	req.Equal("msg 1", resumed[0].Body)
	req.Equal("msg 2", resumed[1].Body)
	for _, m := range resumed {
		req.True(m.CreatedAt.Before(all[2].CreatedAt))
	}
}

func keyOrdered(a, b domain.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func Test_CursorFor_Resumes_Paging(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), 0)
	alice := domain.Principal{ID: "u1", DisplayName: "Alice"}

	var all []domain.Message
	for i := 1; i <= 4; i++ {
		msg, err := repo.Append("general", alice, fmt.Sprintf("msg %d", i), "")
		req.NoError(err)
		all = append(all, msg)
		time.Sleep(time.Millisecond)
	}

	// Resume strictly before the third message: only the two older ones remain.
	cursor := CursorFor(all[2])
	page, _, err := repo.Page("general", &cursor, 50)
	req.NoError(err)
	req.Len(page, 2)
	req.Equal("msg 1", page[0].Body)
	req.Equal("msg 2", page[1].Body)
}
