// Package reload notifies connected browser tabs of build outcomes.
//
// # Protocol
//
// Every message is a JSON array of two strings:
//
//	["update", "/abs/path/to/src/app.js"]  // reload the page
//	["error", "SyntaxError: ..."]           // show the error overlay
//
// The in-page client is cached by the browser across reloads, so this shape
// must stay stable.
//
// # Hub
//
// Hub owns the set of connected clients and the last unresolved error. It is
// mutated only through Broadcast, Connect and Disconnect. A client that
// connects while an error is outstanding receives that error immediately, so
// a browser reloaded mid-failure still sees the overlay.
//
// # Transports
//
// WebSocketHandler keeps one connection per tab and pushes every message as
// it happens. PollHandler is a long-poll fallback: each request is held until
// a message is available and answered with that message.
package reload
