package netclient

import "errors"

var (
	// ErrNotJoined is returned when gameplay traffic is attempted before the
	// join handshake completes. Senders fail soft: they log and drop.
	ErrNotJoined = errors.New("netclient: not joined")

	// ErrAlreadyConnected is returned by Connect while a session is live.
	ErrAlreadyConnected = errors.New("netclient: already connected")

	// ErrHandshakeTimeout is returned when auth or join confirmation does
	// not arrive within the configured window.
	ErrHandshakeTimeout = errors.New("netclient: handshake timed out")

	// ErrClosed is returned after an explicit Close.
	ErrClosed = errors.New("netclient: closed")
)

// reconnectFailedMessage is the terminal error surfaced once the attempt cap
// is exhausted.
const reconnectFailedMessage = "Failed to reconnect"
