package reload

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Client is a connected browser tab as seen by the Hub.
type Client interface {
	// ID identifies the client in logs.
	ID() string

	// Send queues f for delivery. It must not block; an error means the
	// client can no longer receive messages.
	Send(f Frame) error

	// Close releases the client's connection.
	Close() error
}

var (
	errClientClosed = errors.New("reload: client closed")
	errQueueFull    = errors.New("reload: client send queue full")
)

// Frame is an encoded message and its position in the hub's broadcast
// sequence. Sequence numbers start at 1 and grow by one per broadcast.
type Frame struct {
	Seq  uint64
	Data []byte
}

// HubOptions configures a Hub.
type HubOptions struct {
	// Logger receives hub diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// OnBroadcast is called after a result has been fanned out.
	OnBroadcast func(r Result, clients int)

	// OnClients is called whenever the number of connected clients changes.
	OnClients func(n int)

	// OnDrop is called when a client is removed because a send failed.
	OnDrop func(c Client, err error)

	// TracerProvider receives a "reload.broadcast" span per broadcast.
	// Defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Hub is the single owner of the connected client set and the last
// unresolved error.
type Hub struct {
	mu        sync.Mutex
	clients   map[Client]struct{}
	last      Frame
	lastError *Frame
	lastMsg   string
	options   HubOptions
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewHub creates an empty hub.
func NewHub(options HubOptions) *Hub {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := options.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Hub{
		clients: make(map[Client]struct{}),
		options: options,
		logger:  logger.With("component", "hub"),
		tracer:  tp.Tracer("github.com/vango-dev/livedev/internal/reload"),
	}
}

// Broadcast records r and sends it to every connected client. A Failure
// becomes the remembered error; an Update clears it. Clients whose send fails
// are dropped.
func (h *Hub) Broadcast(ctx context.Context, r Result) {
	_, span := h.tracer.Start(ctx, "reload.broadcast",
		trace.WithAttributes(attribute.String("reload.type", TypeOf(r))),
	)
	defer span.End()

	data, err := Encode(r)
	if err != nil {
		h.logger.Error("encode failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	f := Frame{Seq: h.last.Seq + 1, Data: data}
	h.last = f

	switch r := r.(type) {
	case Update:
		h.lastError = nil
		h.lastMsg = ""
	case Failure:
		h.lastError = &f
		h.lastMsg = r.Message
	}

	for c := range h.clients {
		if err := c.Send(f); err != nil {
			h.dropLocked(c, err)
		}
	}

	span.SetAttributes(
		attribute.Int64("reload.seq", int64(f.Seq)),
		attribute.Int("reload.clients", len(h.clients)),
	)
	if h.options.OnBroadcast != nil {
		h.options.OnBroadcast(r, len(h.clients))
	}
}

// Connect adds c to the client set. If an error is outstanding, it is sent
// to c before any later broadcast.
func (h *Hub) Connect(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connectLocked(c, h.lastError)
}

// ConnectSince adds a client that has already seen every broadcast up to
// seen. The latest broadcast is sent to c only if it is newer; an update it
// missed is delivered that way. A seen value ahead of the hub, as after a
// server restart, is treated like Connect.
func (h *Hub) ConnectSince(c Client, seen uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case seen > h.last.Seq:
		h.connectLocked(c, h.lastError)
	case seen < h.last.Seq:
		last := h.last
		h.connectLocked(c, &last)
	default:
		h.connectLocked(c, nil)
	}
}

func (h *Hub) connectLocked(c Client, replay *Frame) {
	h.clients[c] = struct{}{}
	h.logger.Debug("client connected", "client", c.ID())

	if replay != nil {
		if err := c.Send(*replay); err != nil {
			h.dropLocked(c, err)
			return
		}
	}
	h.notifyClientsLocked()
}

// Disconnect removes c from the client set. It is a no-op if c is not
// connected.
func (h *Hub) Disconnect(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.logger.Debug("client disconnected", "client", c.ID())
	h.notifyClientsLocked()
}

// LastError returns the outstanding error message, if any.
func (h *Hub) LastError() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastMsg, h.lastError != nil
}

// Seq returns the sequence number of the latest broadcast, or 0 before the
// first one.
func (h *Hub) Seq() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last.Seq
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects and closes every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, c)
	}
	h.notifyClientsLocked()
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}

func (h *Hub) dropLocked(c Client, err error) {
	delete(h.clients, c)
	h.logger.Warn("dropping client", "client", c.ID(), "error", err)
	if h.options.OnDrop != nil {
		h.options.OnDrop(c, err)
	}
	h.notifyClientsLocked()
	go c.Close()
}

func (h *Hub) notifyClientsLocked() {
	if h.options.OnClients != nil {
		h.options.OnClients(len(h.clients))
	}
}
