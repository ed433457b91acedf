package reload

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeClient struct {
	id string

	mu     sync.Mutex
	msgs   []string
	seqs   []uint64
	fail   error
	closed bool
}

func (c *fakeClient) ID() string { return c.id }

func (c *fakeClient) Send(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.msgs = append(c.msgs, string(f.Data))
	c.seqs = append(c.seqs, f.Seq)
	return nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestHubBroadcastOrder(t *testing.T) {
	hub := NewHub(HubOptions{})
	a := &fakeClient{id: "a"}
	b := &fakeClient{id: "b"}
	hub.Connect(a)
	hub.Connect(b)

	ctx := context.Background()
	hub.Broadcast(ctx, Update{Path: "one.js"})
	hub.Broadcast(ctx, Failure{Message: "bad"})
	hub.Broadcast(ctx, Update{Path: "two.js"})

	want := []string{
		`["update","one.js"]`,
		`["error","bad"]`,
		`["update","two.js"]`,
	}
	for _, c := range []*fakeClient{a, b} {
		if got := c.received(); !equalStrings(got, want) {
			t.Errorf("client %s received %v, want %v", c.id, got, want)
		}
	}
}

func TestHubReplaysErrorOnConnect(t *testing.T) {
	hub := NewHub(HubOptions{})
	hub.Broadcast(context.Background(), Failure{Message: "syntax error"})

	msg, ok := hub.LastError()
	if !ok || msg != "syntax error" {
		t.Fatalf("LastError() = %q, %v", msg, ok)
	}

	c := &fakeClient{id: "late"}
	hub.Connect(c)
	hub.Broadcast(context.Background(), Update{Path: "fixed.js"})

	want := []string{`["error","syntax error"]`, `["update","fixed.js"]`}
	if got := c.received(); !equalStrings(got, want) {
		t.Errorf("received %v, want %v", got, want)
	}
}

func TestHubUpdateClearsError(t *testing.T) {
	hub := NewHub(HubOptions{})
	ctx := context.Background()

	hub.Broadcast(ctx, Failure{Message: "first"})
	hub.Broadcast(ctx, Failure{Message: "second"})
	if msg, _ := hub.LastError(); msg != "second" {
		t.Errorf("LastError() = %q, want latest failure", msg)
	}

	// No clients connected: the error must still be cleared.
	hub.Broadcast(ctx, Update{Path: "ok.js"})
	if _, ok := hub.LastError(); ok {
		t.Error("LastError() should be cleared by an update")
	}

	c := &fakeClient{id: "c"}
	hub.Connect(c)
	if got := c.received(); len(got) != 0 {
		t.Errorf("received %v on connect, want nothing", got)
	}
}

func TestHubDropsFailedClient(t *testing.T) {
	var dropped []string
	var counts []int
	hub := NewHub(HubOptions{
		OnDrop:    func(c Client, err error) { dropped = append(dropped, c.ID()) },
		OnClients: func(n int) { counts = append(counts, n) },
	})

	good := &fakeClient{id: "good"}
	bad := &fakeClient{id: "bad", fail: errors.New("broken pipe")}
	hub.Connect(good)
	hub.Connect(bad)

	hub.Broadcast(context.Background(), Update{Path: "x.js"})

	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
	if len(dropped) != 1 || dropped[0] != "bad" {
		t.Errorf("dropped = %v, want [bad]", dropped)
	}
	if got := good.received(); len(got) != 1 {
		t.Errorf("good client received %v", got)
	}
	if want := []int{1, 2, 1}; !equalInts(counts, want) {
		t.Errorf("client counts = %v, want %v", counts, want)
	}

	// Later broadcasts only reach the survivor.
	hub.Broadcast(context.Background(), Update{Path: "y.js"})
	if got := good.received(); len(got) != 2 {
		t.Errorf("good client received %v", got)
	}
}

func TestHubConnectReplayFailureDrops(t *testing.T) {
	hub := NewHub(HubOptions{})
	hub.Broadcast(context.Background(), Failure{Message: "e"})

	c := &fakeClient{id: "c", fail: errQueueFull}
	hub.Connect(c)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

func TestHubDisconnectIdempotent(t *testing.T) {
	calls := 0
	hub := NewHub(HubOptions{OnClients: func(int) { calls++ }})
	c := &fakeClient{id: "c"}

	hub.Disconnect(c)
	if calls != 0 {
		t.Errorf("Disconnect of unknown client notified %d times", calls)
	}

	hub.Connect(c)
	hub.Disconnect(c)
	hub.Disconnect(c)
	if calls != 2 {
		t.Errorf("OnClients calls = %d, want 2", calls)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

func TestHubOnBroadcast(t *testing.T) {
	var types []string
	var counts []int
	hub := NewHub(HubOptions{
		OnBroadcast: func(r Result, n int) {
			types = append(types, TypeOf(r))
			counts = append(counts, n)
		},
	})
	hub.Connect(&fakeClient{id: "a"})

	hub.Broadcast(context.Background(), Failure{Message: "x"})
	hub.Broadcast(context.Background(), Update{Path: "y"})

	if !equalStrings(types, []string{TypeError, TypeUpdate}) {
		t.Errorf("types = %v", types)
	}
	if !equalInts(counts, []int{1, 1}) {
		t.Errorf("counts = %v", counts)
	}
}

func TestHubClose(t *testing.T) {
	hub := NewHub(HubOptions{})
	a := &fakeClient{id: "a"}
	b := &fakeClient{id: "b"}
	hub.Connect(a)
	hub.Connect(b)

	hub.Close()

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
	for _, c := range []*fakeClient{a, b} {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			t.Errorf("client %s not closed", c.id)
		}
	}
}

func TestHubConcurrentBroadcast(t *testing.T) {
	hub := NewHub(HubOptions{})
	c := &fakeClient{id: "c"}
	hub.Connect(c)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast(context.Background(), Update{Path: "x"})
		}()
	}
	wg.Wait()

	if got := len(c.received()); got != 50 {
		t.Errorf("received %d messages, want 50", got)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestHubSequence(t *testing.T) {
	hub := NewHub(HubOptions{})
	c := &fakeClient{id: "c"}
	hub.Connect(c)

	if hub.Seq() != 0 {
		t.Errorf("Seq() = %d before any broadcast", hub.Seq())
	}

	ctx := context.Background()
	hub.Broadcast(ctx, Update{Path: "a.js"})
	hub.Broadcast(ctx, Failure{Message: "bad"})
	hub.Broadcast(ctx, Update{Path: "b.js"})

	if hub.Seq() != 3 {
		t.Errorf("Seq() = %d, want 3", hub.Seq())
	}
	c.mu.Lock()
	seqs := append([]uint64(nil), c.seqs...)
	c.mu.Unlock()
	if len(seqs) != 3 || seqs[0] != 1 || seqs[1] != 2 || seqs[2] != 3 {
		t.Errorf("frame seqs = %v, want [1 2 3]", seqs)
	}
}

func TestHubConnectSince(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		broadcast []Result
		seen      uint64
		want      []string
	}{
		{
			name:      "nothing broadcast",
			broadcast: nil,
			seen:      0,
			want:      nil,
		},
		{
			name:      "error already seen",
			broadcast: []Result{Failure{Message: "SyntaxError"}},
			seen:      1,
			want:      nil,
		},
		{
			name:      "update missed after error",
			broadcast: []Result{Failure{Message: "SyntaxError"}, Update{Path: "/src/app.js"}},
			seen:      1,
			want:      []string{`["update","/src/app.js"]`},
		},
		{
			name:      "new error after update",
			broadcast: []Result{Update{Path: "a.js"}, Failure{Message: "again"}},
			seen:      1,
			want:      []string{`["error","again"]`},
		},
		{
			name:      "update already seen",
			broadcast: []Result{Update{Path: "a.js"}},
			seen:      1,
			want:      nil,
		},
		{
			name:      "seen ahead of hub replays error",
			broadcast: []Result{Failure{Message: "restarted"}},
			seen:      9,
			want:      []string{`["error","restarted"]`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub(HubOptions{})
			for _, r := range tt.broadcast {
				hub.Broadcast(ctx, r)
			}

			c := &fakeClient{id: "poll"}
			hub.ConnectSince(c, tt.seen)

			if got := c.received(); !equalStrings(got, tt.want) {
				t.Errorf("received %v, want %v", got, tt.want)
			}
			if hub.ClientCount() != 1 {
				t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
			}
		})
	}
}
