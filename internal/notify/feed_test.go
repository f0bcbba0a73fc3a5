package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ripple-social/client/internal/api"
)

// fakeAPI is a scriptable NotificationAPI.
type fakeAPI struct {
	mu sync.Mutex

	pages    map[int]*api.NotificationPage
	listErr  error
	listGate chan struct{} // when set, the next List blocks until closed

	count    int
	countErr error

	markReadErr error
	markAllErr  error
	deleteErr   error

	listCalls int
}

func (f *fakeAPI) List(ctx context.Context, page, limit int, unreadOnly bool) (*api.NotificationPage, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.listGate
	f.listGate = nil
	res, err := f.pages[page], f.listErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return res, err
}

func (f *fakeAPI) UnreadCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, f.countErr
}

func (f *fakeAPI) MarkRead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markReadErr
}

func (f *fakeAPI) MarkAllRead(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markAllErr
}

func (f *fakeAPI) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteErr
}

func n(id string, read bool) api.Notification {
	return api.Notification{ID: id, Type: "like", Message: "msg " + id, Read: read, CreatedAt: time.Now()}
}

func page(pg, totalPages int, items ...api.Notification) *api.NotificationPage {
	return &api.NotificationPage{
		Items:      items,
		Pagination: api.Pagination{Page: pg, Limit: len(items), Total: totalPages * len(items), TotalPages: totalPages},
	}
}

func TestFetchPageOneReplaces(t *testing.T) {
	f := &fakeAPI{pages: map[int]*api.NotificationPage{1: page(1, 1, n("a", false), n("b", true))}}
	s := NewSynchronizer(f, nil)
	s.IngestRealtime(n("stale", false))

	if err := s.FetchPage(context.Background(), 1, 20, false); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Items) != 2 || snap.Items[0].ID != "a" || snap.Items[1].ID != "b" {
		t.Errorf("items = %+v, want wholesale replacement by page 1", snap.Items)
	}
}

// Page 1 then page 2 yields page-1 items followed by page-2 items in
// server order.
func TestFetchPagesAppendInOrder(t *testing.T) {
	f := &fakeAPI{pages: map[int]*api.NotificationPage{
		1: page(1, 2, n("a", false), n("b", false)),
		2: page(2, 2, n("c", false), n("d", false)),
	}}
	s := NewSynchronizer(f, nil)

	if err := s.FetchPage(context.Background(), 1, 2, false); err != nil {
		t.Fatalf("FetchPage(1): %v", err)
	}
	if err := s.FetchPage(context.Background(), 2, 2, false); err != nil {
		t.Fatalf("FetchPage(2): %v", err)
	}

	snap := s.Snapshot()
	want := []string{"a", "b", "c", "d"}
	if len(snap.Items) != len(want) {
		t.Fatalf("items = %d, want %d", len(snap.Items), len(want))
	}
	for i, id := range want {
		if snap.Items[i].ID != id {
			t.Errorf("items[%d] = %q, want %q", i, snap.Items[i].ID, id)
		}
	}
	if snap.Page != 2 || snap.TotalPages != 2 {
		t.Errorf("pagination = %d/%d, want 2/2", snap.Page, snap.TotalPages)
	}
}

func TestFetchFailureLeavesFeedUntouched(t *testing.T) {
	f := &fakeAPI{pages: map[int]*api.NotificationPage{1: page(1, 1, n("a", false))}}
	s := NewSynchronizer(f, nil)
	if err := s.FetchPage(context.Background(), 1, 20, false); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	f.mu.Lock()
	f.listErr = &api.Error{Kind: api.KindNetwork, Message: "unreachable"}
	f.mu.Unlock()

	if err := s.FetchPage(context.Background(), 1, 20, false); err == nil {
		t.Fatal("FetchPage returned nil for failed call")
	}

	snap := s.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].ID != "a" {
		t.Errorf("items mutated by failed fetch: %+v", snap.Items)
	}
	if snap.Err == "" {
		t.Error("error field not set")
	}
}

// A fetch whose result arrives after a newer fetch was dispatched is
// discarded instead of overwriting the newer state.
func TestOverlappingFetchesAreFenced(t *testing.T) {
	gate := make(chan struct{})
	f := &fakeAPI{
		pages: map[int]*api.NotificationPage{
			1: page(1, 1, n("old", false)),
		},
		listGate: gate,
	}
	s := NewSynchronizer(f, nil)

	done := make(chan error, 1)
	go func() { done <- s.FetchPage(context.Background(), 1, 20, false) }()

	// Wait until the first fetch is in flight, then dispatch a second
	// one that resolves immediately with different content.
	waitFor(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.listCalls == 1
	})
	f.mu.Lock()
	f.pages[1] = page(1, 1, n("new", false))
	f.mu.Unlock()
	if err := s.FetchPage(context.Background(), 1, 20, false); err != nil {
		t.Fatalf("second FetchPage: %v", err)
	}

	close(gate)
	<-done

	snap := s.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].ID != "new" {
		t.Errorf("items = %+v, want the newer fetch to win", snap.Items)
	}
}

func TestFetchUnreadCountOverwrites(t *testing.T) {
	f := &fakeAPI{count: 9}
	s := NewSynchronizer(f, nil)
	// Accumulate local drift first.
	s.IngestRealtime(n("a", false))
	s.IngestRealtime(n("b", false))

	if err := s.FetchUnreadCount(context.Background()); err != nil {
		t.Fatalf("FetchUnreadCount: %v", err)
	}
	if got := s.Snapshot().UnreadCount; got != 9 {
		t.Errorf("unread = %d, want server value 9", got)
	}
}

func TestIngestRealtime(t *testing.T) {
	s := NewSynchronizer(&fakeAPI{}, nil)
	s.IngestRealtime(n("a", true))
	s.IngestRealtime(n("b", false))

	snap := s.Snapshot()
	if snap.Items[0].ID != "b" {
		t.Errorf("items[0] = %q, want newest prepended", snap.Items[0].ID)
	}
	if snap.UnreadCount != 1 {
		t.Errorf("unread = %d, want 1 (read arrivals don't count)", snap.UnreadCount)
	}
}

func TestMarkReadDecrements(t *testing.T) {
	tests := []struct {
		name       string
		items      []api.Notification
		unread     int
		target     string
		wantUnread int
	}{
		{"unread target", []api.Notification{n("a", false)}, 1, "a", 0},
		{"already read", []api.Notification{n("a", true)}, 1, "a", 1},
		{"absent", []api.Notification{n("a", false)}, 1, "zz", 1},
		{"floors at zero", []api.Notification{n("a", false)}, 0, "a", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSynchronizer(&fakeAPI{}, nil)
			s.mu.Lock()
			s.items = append([]api.Notification(nil), tt.items...)
			s.unread = tt.unread
			s.mu.Unlock()

			if err := s.MarkRead(context.Background(), tt.target); err != nil {
				t.Fatalf("MarkRead: %v", err)
			}
			if got := s.Snapshot().UnreadCount; got != tt.wantUnread {
				t.Errorf("unread = %d, want %d", got, tt.wantUnread)
			}
		})
	}
}

// MarkRead applies optimistically, and a server rejection restores the
// pre-mutation state. The legacy web client left the item marked read on
// failure; restoring is the deliberate fix chosen here.
func TestMarkReadRollsBackOnFailure(t *testing.T) {
	f := &fakeAPI{markReadErr: &api.Error{Kind: api.KindServer, Message: "boom"}}
	s := NewSynchronizer(f, nil)
	s.IngestRealtime(n("a", false))

	if err := s.MarkRead(context.Background(), "a"); err == nil {
		t.Fatal("MarkRead returned nil for rejected call")
	}

	snap := s.Snapshot()
	if snap.Items[0].Read {
		t.Error("item left marked read after server rejection")
	}
	if snap.UnreadCount != 1 {
		t.Errorf("unread = %d, want restored 1", snap.UnreadCount)
	}
	if snap.Err == "" {
		t.Error("error field not set")
	}
}

func TestMarkAllRead(t *testing.T) {
	s := NewSynchronizer(&fakeAPI{}, nil)
	s.IngestRealtime(n("a", false))
	s.IngestRealtime(n("b", false))

	if err := s.MarkAllRead(context.Background()); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}

	snap := s.Snapshot()
	if snap.UnreadCount != 0 {
		t.Errorf("unread = %d, want 0", snap.UnreadCount)
	}
	for _, item := range snap.Items {
		if !item.Read {
			t.Errorf("item %s still unread", item.ID)
		}
	}
}

// MarkAllRead has no optimistic phase: a failure changes nothing locally.
func TestMarkAllReadFailureChangesNothing(t *testing.T) {
	f := &fakeAPI{markAllErr: &api.Error{Kind: api.KindNetwork, Message: "unreachable"}}
	s := NewSynchronizer(f, nil)
	s.IngestRealtime(n("a", false))

	if err := s.MarkAllRead(context.Background()); err == nil {
		t.Fatal("MarkAllRead returned nil for failed call")
	}

	snap := s.Snapshot()
	if snap.Items[0].Read || snap.UnreadCount != 1 {
		t.Errorf("snapshot mutated by failed MarkAllRead: %+v", snap)
	}
}

func TestRemoveAfterConfirmation(t *testing.T) {
	s := NewSynchronizer(&fakeAPI{}, nil)
	s.IngestRealtime(n("a", false))
	s.IngestRealtime(n("b", true))

	if err := s.Remove(context.Background(), "a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].ID != "b" {
		t.Errorf("items = %+v, want only b", snap.Items)
	}
	if snap.UnreadCount != 0 {
		t.Errorf("unread = %d, want 0 after removing unread item", snap.UnreadCount)
	}
}

// Deletion is conservative, unlike MarkRead: nothing changes locally
// until the server confirms.
func TestRemoveFailureChangesNothing(t *testing.T) {
	f := &fakeAPI{deleteErr: &api.Error{Kind: api.KindNetwork, Message: "unreachable"}}
	s := NewSynchronizer(f, nil)
	s.IngestRealtime(n("a", false))

	if err := s.Remove(context.Background(), "a"); err == nil {
		t.Fatal("Remove returned nil for failed call")
	}

	snap := s.Snapshot()
	if len(snap.Items) != 1 || snap.UnreadCount != 1 {
		t.Errorf("snapshot mutated by failed Remove: %+v", snap)
	}
}

func TestRemoveReadItemKeepsCount(t *testing.T) {
	s := NewSynchronizer(&fakeAPI{}, nil)
	s.IngestRealtime(n("a", false))
	s.IngestRealtime(n("b", true))

	if err := s.Remove(context.Background(), "b"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := s.Snapshot().UnreadCount; got != 1 {
		t.Errorf("unread = %d, want 1 (removed item was read)", got)
	}
}

func TestClear(t *testing.T) {
	f := &fakeAPI{pages: map[int]*api.NotificationPage{1: page(1, 3, n("a", false))}}
	s := NewSynchronizer(f, nil)
	if err := s.FetchPage(context.Background(), 1, 20, false); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	s.Clear()

	snap := s.Snapshot()
	if len(snap.Items) != 0 || snap.UnreadCount != 0 || snap.Page != 0 || snap.TotalPages != 0 {
		t.Errorf("snapshot after Clear = %+v, want empty", snap)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}
