package reload

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// SeqHeader carries the sequence number of a long-poll response. The client
// echoes it back in the SinceParam query parameter of its next poll.
const (
	SeqHeader  = "X-Livedev-Seq"
	SinceParam = "since"
)

// PollHandler serves the long-poll transport. Each request registers a
// one-shot client with the hub and is answered with the first message it
// receives.
//
// A request without a since parameter comes from a freshly loaded page and is
// answered at once only if an error is outstanding. A request with since=N
// is answered at once only if the hub has broadcast past N, with the latest
// message; otherwise it is held.
type PollHandler struct {
	hub    *Hub
	logger *slog.Logger
}

// NewPollHandler creates a long-poll transport bound to hub.
func NewPollHandler(hub *Hub, logger *slog.Logger) *PollHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PollHandler{
		hub:    hub,
		logger: logger.With("component", "poll"),
	}
}

func (h *PollHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	client := &pollClient{
		id:   uuid.NewString(),
		msg:  make(chan Frame, 1),
		done: make(chan struct{}),
	}

	if raw := r.URL.Query().Get(SinceParam); raw != "" {
		seen, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "400 Bad Request "+SinceParam+"="+raw, http.StatusBadRequest)
			return
		}
		h.hub.ConnectSince(client, seen)
	} else {
		h.hub.Connect(client)
	}
	defer h.hub.Disconnect(client)

	select {
	case f := <-client.msg:
		h.write(w, client, f)
	case <-client.done:
		// A client dropped for a full queue still holds its first message.
		select {
		case f := <-client.msg:
			h.write(w, client, f)
		default:
			http.Error(w, "503 Service Unavailable", http.StatusServiceUnavailable)
		}
	case <-r.Context().Done():
		h.logger.Debug("poll abandoned", "client", client.id)
	}
}

func (h *PollHandler) write(w http.ResponseWriter, client *pollClient, f Frame) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set(SeqHeader, strconv.FormatUint(f.Seq, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(f.Data); err != nil {
		h.logger.Warn("write error", "client", client.id, "error", err)
	}
}

type pollClient struct {
	id        string
	msg       chan Frame
	done      chan struct{}
	closeOnce sync.Once
}

func (c *pollClient) ID() string {
	return c.id
}

func (c *pollClient) Send(f Frame) error {
	select {
	case c.msg <- f:
		return nil
	default:
		return errQueueFull
	}
}

func (c *pollClient) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}
