package transport

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/strideworks/go-strider/internal/httpc"
)

// HTTPEcho posts frames to the robot's one-shot packet endpoint. It is a
// best-effort mirror of the streamed feed; callers log the returned error
// and move on.
type HTTPEcho struct {
	url    string
	client *http.Client
}

// NewHTTPEcho creates an echo transport for the given endpoint URL.
func NewHTTPEcho(url string) *HTTPEcho {
	return &HTTPEcho{url: url, client: httpc.Client}
}

// SendOnce posts one serialized frame.
func (e *HTTPEcho) SendOnce(frame []byte) error {
	resp, err := e.client.Post(e.url, "application/octet-stream", bytes.NewReader(frame))
	if err != nil {
		return fmt.Errorf("echo post: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("echo post: status %d", resp.StatusCode)
	}
	return nil
}
