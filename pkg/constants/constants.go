// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Time-related constants
const (
	// DefaultTimeout is the default timeout for most operations
	DefaultTimeout = 30 * time.Second

	// DirectoryLookupTimeout bounds identity and conversation lookups
	DirectoryLookupTimeout = 5 * time.Second

	// WebSocketPingInterval is the interval for WebSocket ping/pong
	WebSocketPingInterval = 60 * time.Second

	// WebSocketWriteTimeout bounds a single WebSocket write
	WebSocketWriteTimeout = 10 * time.Second
)

// Calling constants
const (
	// DefaultAudioOnlyParticipantLimit is the conversation size above which
	// calls are forced to audio only
	DefaultAudioOnlyParticipantLimit = 4

	// DispatcherQueueSize is the buffer of the call center's serialized
	// dispatcher queue
	DispatcherQueueSize = 256
)
