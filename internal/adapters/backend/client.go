// Package backend provides adapters for the MedicAI backend HTTP API.
// Adapters implementing ports.UploadTransport and ports.QueryDispatcher.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"

	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
)

// DefaultBaseURL is where the backend listens in development.
const DefaultBaseURL = "http://localhost:8000"

const (
	chatPath     = "/api/ai/chat/"
	maxBodyBytes = 1 << 20
)

func normalizeBaseURL(baseURL string) string {
	if baseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// transportError wraps a failure where no response was received.
func transportError(op string, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}
	return &entities.NetworkError{Op: op, Timeout: timeout, Err: err}
}

// serverError reads an error response body and extracts its message.
func serverError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	return &entities.ServerError{
		Op:      op,
		Status:  resp.StatusCode,
		Message: decodeErrorMessage(body),
	}
}

// decodeErrorMessage understands {"error": "..."} and DRF field errors
// such as {"file": ["..."]}. Anything else yields "".
func decodeErrorMessage(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}

	if raw, ok := fields["error"]; ok {
		var msg string
		if err := json.Unmarshal(raw, &msg); err == nil {
			return msg
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		var msgs []string
		if err := json.Unmarshal(fields[k], &msgs); err == nil && len(msgs) > 0 {
			return msgs[0]
		}
	}
	return ""
}
