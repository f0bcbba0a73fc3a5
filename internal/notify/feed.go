// Package notify keeps the notification feed and its unread counter in
// sync with the server.
//
// The unread count is tracked as its own integer rather than derived from
// the item list: the server is the source of truth for the total (the
// client may only hold one page), and the client adjusts it
// transactionally alongside each local mutation. FetchUnreadCount is the
// reconciliation point that corrects any drift.
package notify

import (
	"context"
	"log"
	"sync"

	"github.com/ripple-social/client/internal/api"
)

// NotificationAPI is the slice of the REST client the synchronizer needs.
// All mutating calls are idempotent on retry.
type NotificationAPI interface {
	List(ctx context.Context, page, limit int, unreadOnly bool) (*api.NotificationPage, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id string) error
}

// Snapshot is a copy of the feed state, safe to retain.
type Snapshot struct {
	Items       []api.Notification
	UnreadCount int
	Page        int
	TotalPages  int
	Total       int
	Loading     bool
	Err         string
}

// HasMore reports whether another page can be fetched.
func (s Snapshot) HasMore() bool {
	return s.Page < s.TotalPages
}

// Synchronizer owns the notification list, unread counter, and pagination
// cursor. Items are newest-first with unique ids; the only mutable field
// of an item is Read. All mutation goes through the synchronizer's
// methods.
type Synchronizer struct {
	api   NotificationAPI
	cache *Cache // nil disables the durable feed cache

	mu         sync.Mutex
	items      []api.Notification
	unread     int
	page       int
	totalPages int
	total      int
	loading    bool
	err        string
	fetchSeq   uint64 // stamps dispatched fetches; stale results are discarded
}

// NewSynchronizer creates a synchronizer. cache may be nil.
func NewSynchronizer(napi NotificationAPI, cache *Cache) *Synchronizer {
	return &Synchronizer{api: napi, cache: cache}
}

// Snapshot returns a copy of the feed state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]api.Notification, len(s.items))
	copy(items, s.items)
	return Snapshot{
		Items:       items,
		UnreadCount: s.unread,
		Page:        s.page,
		TotalPages:  s.totalPages,
		Total:       s.total,
		Loading:     s.loading,
		Err:         s.err,
	}
}

// LoadCached populates the feed from the durable cache for immediate
// render, before the first fetch resolves. Cache read errors are logged
// and ignored.
func (s *Synchronizer) LoadCached() {
	if s.cache == nil {
		return
	}
	items, unread, err := s.cache.Load()
	if err != nil {
		log.Printf("notify: loading cached feed: %v", err)
		return
	}
	s.mu.Lock()
	s.items = items
	s.unread = unread
	s.mu.Unlock()
}

// FetchPage fetches one page. Page 1 replaces the list wholesale; later
// pages append in server order (the server returns newest-first and the
// client never re-sorts). Pagination metadata is replaced wholesale. On
// failure only the error field changes.
//
// Overlapping fetches are fenced: each call stamps a monotonic sequence
// and a result whose stamp has been superseded is discarded.
func (s *Synchronizer) FetchPage(ctx context.Context, page, limit int, unreadOnly bool) error {
	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	res, err := s.api.List(ctx, page, limit, unreadOnly)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.fetchSeq {
		return err
	}
	s.loading = false
	if err != nil {
		s.err = err.Error()
		return err
	}
	if page <= 1 {
		s.items = append([]api.Notification(nil), res.Items...)
	} else {
		s.items = append(s.items, res.Items...)
	}
	s.page = res.Pagination.Page
	s.totalPages = res.Pagination.TotalPages
	s.total = res.Pagination.Total
	s.persistLocked()
	return nil
}

// FetchUnreadCount overwrites the unread counter with the server's value.
// This is the reconciliation point for drift accumulated by optimistic
// local updates; the app calls it on channel (re)connect and on a fixed
// interval.
func (s *Synchronizer) FetchUnreadCount(ctx context.Context) error {
	count, err := s.api.UnreadCount(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err.Error()
		return err
	}
	s.unread = count
	s.persistLocked()
	return nil
}

// IngestRealtime folds one inbound realtime notification into the feed:
// prepend, and count it if unread. Purely local; the count may diverge
// from the server's until the next reconciliation.
func (s *Synchronizer) IngestRealtime(n api.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]api.Notification{n}, s.items...)
	if !n.Read {
		s.unread++
	}
	s.persistLocked()
}

// MarkRead optimistically flips the item to read and decrements the
// counter (floored at zero) before the network call resolves. If the
// server rejects the call the pre-mutation state is restored. The call is
// made even when the item is absent locally; it may exist beyond the
// fetched pages.
func (s *Synchronizer) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	flipped := false
	dec := 0
	if i := s.indexLocked(id); i >= 0 && !s.items[i].Read {
		s.items[i].Read = true
		flipped = true
		if s.unread > 0 {
			s.unread--
			dec = 1
		}
	}
	s.persistLocked()
	s.mu.Unlock()

	err := s.api.MarkRead(ctx, id)
	if err == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err.Error()
	if flipped {
		if i := s.indexLocked(id); i >= 0 {
			s.items[i].Read = false
		}
		s.unread += dec
		s.persistLocked()
	}
	return err
}

// MarkAllRead asks the server first and only then marks every item read
// and zeroes the counter, all or nothing. There is no optimistic phase.
func (s *Synchronizer) MarkAllRead(ctx context.Context) error {
	if err := s.api.MarkAllRead(ctx); err != nil {
		s.mu.Lock()
		s.err = err.Error()
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		s.items[i].Read = true
	}
	s.unread = 0
	s.persistLocked()
	return nil
}

// Remove deletes a notification after server confirmation, decrementing
// the counter (floored at zero) if the removed item was unread. Unlike
// MarkRead, deletion is conservative: nothing changes locally until the
// server confirms.
func (s *Synchronizer) Remove(ctx context.Context, id string) error {
	if err := s.api.Delete(ctx, id); err != nil {
		s.mu.Lock()
		s.err = err.Error()
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		wasUnread := !s.items[i].Read
		s.items = append(s.items[:i:i], s.items[i+1:]...)
		if wasUnread && s.unread > 0 {
			s.unread--
		}
	}
	s.persistLocked()
	return nil
}

// Clear wipes items, counter, and pagination state. Purely local; used on
// logout.
func (s *Synchronizer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.unread = 0
	s.page = 0
	s.totalPages = 0
	s.total = 0
	s.loading = false
	s.err = ""
	s.persistLocked()
}

func (s *Synchronizer) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked writes the durable cache. Storage errors are logged and
// swallowed; loss of persistence must not break the feed.
func (s *Synchronizer) persistLocked() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(s.items, s.unread); err != nil {
		log.Printf("notify: persisting feed cache: %v", err)
	}
}
