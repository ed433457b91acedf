package reload

import (
	_ "embed"
	"encoding/json"
	"strings"
	"time"
)

//go:embed client.js
var clientJS string

// Transport names accepted by ScriptOptions.
const (
	TransportWebSocket = "websocket"
	TransportPoll      = "poll"
)

// Default endpoint paths.
const (
	DefaultWebSocketPath = "/__livedev/ws"
	DefaultPollPath      = "/__reload_poll"
	DefaultStatusPath    = "/__livedev/status"
)

// DefaultReconnectDelay is how long the client waits before reconnecting.
const DefaultReconnectDelay = 2500 * time.Millisecond

// ScriptOptions configures the in-page client.
type ScriptOptions struct {
	// Transport is TransportWebSocket or TransportPoll.
	Transport string

	// Path is the endpoint of the selected transport.
	Path string

	// StatusPath is probed by the long-poll client after a drop.
	StatusPath string

	// ReconnectDelay is the fixed delay between reconnect attempts.
	ReconnectDelay time.Duration
}

type scriptConfig struct {
	Transport  string `json:"transport"`
	Path       string `json:"path"`
	StatusPath string `json:"statusPath"`
	SeqHeader  string `json:"seqHeader"`
	Delay      int64  `json:"delay"`
}

// Script returns the <script> element injected into HTML pages.
func Script(opts ScriptOptions) string {
	if opts.Transport == "" {
		opts.Transport = TransportWebSocket
	}
	if opts.Path == "" {
		opts.Path = DefaultWebSocketPath
		if opts.Transport == TransportPoll {
			opts.Path = DefaultPollPath
		}
	}
	if opts.StatusPath == "" {
		opts.StatusPath = DefaultStatusPath
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}

	cfg, _ := json.Marshal(scriptConfig{
		Transport:  opts.Transport,
		Path:       opts.Path,
		StatusPath: opts.StatusPath,
		SeqHeader:  SeqHeader,
		Delay:      opts.ReconnectDelay.Milliseconds(),
	})

	js := strings.Replace(clientJS, "__LIVEDEV_CONFIG__", string(cfg), 1)
	return "<script>" + js + "</script>"
}
