package sync_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/thuale/todoflow/internal/model"
	"github.com/thuale/todoflow/internal/sync"
	"github.com/thuale/todoflow/tests/testutil"
)

type fakeRemote struct {
	todos       []model.Todo
	completions []model.CompletionRecord
	token       string

	mu     chan struct{}
	sinces []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{mu: make(chan struct{}, 1)}
}

func (f *fakeRemote) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f.token != "" && r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.mu <- struct{}{}
		f.sinces = append(f.sinces, r.URL.Query().Get("since"))
		<-f.mu

		resp := map[string]any{
			"todos":       f.todos,
			"completions": f.completions,
			"server_time": time.Now().UTC(),
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestClientGetChanges(t *testing.T) {
	remote := newFakeRemote()
	remote.todos = []model.Todo{{ID: "t1", Title: "From remote", Status: model.TodoStatusOpen, UpdatedAt: time.Now().UTC()}}

	srv := httptest.NewServer(remote.handler())
	defer srv.Close()

	client := sync.NewClient(srv.URL, "")
	cs, err := client.GetChanges(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("GetChanges: %v", err)
	}
	if len(cs.Todos) != 1 || cs.Todos[0].ID != "t1" {
		t.Fatalf("todos = %+v", cs.Todos)
	}
	if cs.ServerTime.IsZero() {
		t.Error("server time missing")
	}
	if remote.sinces[0] != "" {
		t.Errorf("zero since should omit the parameter, got %q", remote.sinces[0])
	}
}

func TestClientUnauthorized(t *testing.T) {
	remote := newFakeRemote()
	remote.token = "secret"

	srv := httptest.NewServer(remote.handler())
	defer srv.Close()

	client := sync.NewClient(srv.URL, "wrong")
	if _, err := client.GetChanges(context.Background(), time.Time{}); err != sync.ErrUnauthorized {
		t.Fatalf("GetChanges = %v, want ErrUnauthorized", err)
	}
}

func TestPollerAppliesRemoteChanges(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	remote := newFakeRemote()
	remote.todos = []model.Todo{{
		ID: "remote-1", Title: "Synced in", Status: model.TodoStatusOpen,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}}
	remote.completions = []model.CompletionRecord{{
		TodoID: "remote-1", Date: model.NewDate(2026, time.August, 20), Completed: true,
	}}

	srv := httptest.NewServer(remote.handler())
	defer srv.Close()

	poller := sync.NewPoller(s, sync.NewClient(srv.URL, ""), time.Hour)
	poller.Start()
	defer poller.Stop()

	select {
	case r := <-poller.Results():
		if r.Error != nil {
			t.Fatalf("sync failed: %v", r.Error)
		}
		if r.NewTodoCount != 1 || r.CompletionCount != 1 {
			t.Errorf("result = %+v", r)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no sync result")
	}

	got, err := s.GetTodoByID(ctx, "remote-1")
	if err != nil {
		t.Fatalf("GetTodoByID: %v", err)
	}
	if got.Title != "Synced in" {
		t.Errorf("title = %q", got.Title)
	}

	recs, err := s.GetCompletionsForTodo(ctx, "remote-1")
	if err != nil {
		t.Fatalf("GetCompletionsForTodo: %v", err)
	}
	if len(recs) != 1 || !recs[0].Completed {
		t.Fatalf("records = %+v", recs)
	}

	// A new todo arriving over sync produces a notification.
	unread, err := s.GetUnreadNotifications(ctx)
	if err != nil {
		t.Fatalf("GetUnreadNotifications: %v", err)
	}
	if len(unread) != 1 || unread[0].TodoID != "remote-1" {
		t.Fatalf("notifications = %+v", unread)
	}
}

func TestPollerAdvancesCursor(t *testing.T) {
	s := testutil.NewTestStore(t)

	remote := newFakeRemote()
	srv := httptest.NewServer(remote.handler())
	defer srv.Close()

	poller := sync.NewPoller(s, sync.NewClient(srv.URL, ""), time.Hour)
	poller.Start()
	defer poller.Stop()

	// Initial cycle, then a manual refresh.
	for i := 0; i < 2; i++ {
		select {
		case r := <-poller.Results():
			if r.Error != nil {
				t.Fatalf("cycle %d failed: %v", i, r.Error)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("cycle %d never completed", i)
		}
		if i == 0 {
			poller.Refresh()
		}
	}

	remote.mu <- struct{}{}
	sinces := append([]string(nil), remote.sinces...)
	<-remote.mu

	if len(sinces) < 2 {
		t.Fatalf("requests = %v", sinces)
	}
	if sinces[0] != "" {
		t.Errorf("first request since = %q, want empty", sinces[0])
	}
	if sinces[1] == "" {
		t.Error("second request should carry the advanced cursor")
	}

	if status := poller.GetStatus(); status.State != sync.Idle || status.LastSync.IsZero() {
		t.Errorf("status = %+v", status)
	}
}

func TestPollerReportsAuthExpiry(t *testing.T) {
	s := testutil.NewTestStore(t)

	remote := newFakeRemote()
	remote.token = "secret"
	srv := httptest.NewServer(remote.handler())
	defer srv.Close()

	poller := sync.NewPoller(s, sync.NewClient(srv.URL, "stale"), time.Hour)
	poller.Start()
	defer poller.Stop()

	select {
	case r := <-poller.Results():
		if !r.AuthExpired {
			t.Fatalf("result = %+v, want AuthExpired", r)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no sync result")
	}

	if status := poller.GetStatus(); status.State != sync.Failed {
		t.Errorf("status = %+v, want Failed", status)
	}
}
