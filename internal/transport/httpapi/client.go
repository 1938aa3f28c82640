// Package httpapi implements the signalling transport against the backend
// REST API.
package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"callcenter-core/internal/transport"
	"callcenter-core/pkg/constants"
	"callcenter-core/pkg/logger"
)

// Client is a Transport posting signalling payloads and fetching call
// configs over HTTP.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

var _ transport.Transport = (*Client)(nil)

// NewClient creates a transport against the given base URL. The auth token
// is attached as a bearer token when non-empty.
func NewClient(baseURL, authToken string) *Client {
	return &Client{
		baseURL:   baseURL,
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: constants.DefaultTimeout,
		},
	}
}

// Send posts a signalling payload for a conversation. The completion
// receives the backend status, or 0 when the request failed before getting
// a response.
func (c *Client) Send(payload []byte, conversationID, userID uuid.UUID, completion transport.SendCompletion) {
	url := fmt.Sprintf("%s/conversations/%s/calls/messages", c.baseURL, conversationID)

	go func() {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			completion(0)
			return
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		req.Header.Set("X-Sender-User", userID.String())
		c.authorize(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			logger.Warn("Failed to deliver signalling payload",
				zap.String("conversation_id", conversationID.String()),
				zap.Error(err))
			completion(0)
			return
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		completion(resp.StatusCode)
	}()
}

// RequestCallConfig fetches the call config document.
func (c *Client) RequestCallConfig(completion transport.ConfigCompletion) {
	url := fmt.Sprintf("%s/calls/config", c.baseURL)

	go func() {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			completion("", 0)
			return
		}
		c.authorize(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			logger.Warn("Failed to fetch call config", zap.Error(err))
			completion("", 0)
			return
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			completion("", 0)
			return
		}

		completion(string(body), resp.StatusCode)
	}()
}

func (c *Client) authorize(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}
