// Package transport defines how the calling core exchanges signalling
// payloads with the backend. The core never blocks on network I/O: every
// operation takes a completion invoked when the result is known.
package transport

import "github.com/google/uuid"

// SendCompletion receives the HTTP status of a delivered signalling payload.
// A status of 0 means the request never reached the backend.
type SendCompletion func(httpStatus int)

// ConfigCompletion receives a call config document and the HTTP status of
// the fetch.
type ConfigCompletion func(config string, httpStatus int)

// Transport delivers outbound signalling payloads and fetches call configs.
// Implementations may invoke completions from any goroutine.
type Transport interface {
	Send(payload []byte, conversationID, userID uuid.UUID, completion SendCompletion)
	RequestCallConfig(completion ConfigCompletion)
}
