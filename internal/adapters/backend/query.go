package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
)

// DefaultQueryTimeout bounds a single question round trip.
const DefaultQueryTimeout = 60 * time.Second

// QueryDispatcher implements ports.QueryDispatcher against GET /api/ai/chat/.
type QueryDispatcher struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

// NewQueryDispatcher creates a new query adapter.
func NewQueryDispatcher(baseURL string, timeout time.Duration, logger *zap.Logger) *QueryDispatcher {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryDispatcher{
		baseURL: normalizeBaseURL(baseURL),
		timeout: timeout,
		client:  &http.Client{},
		logger:  logger.Named("query"),
	}
}

// queryResponse is the backend answer. Response is a pointer so a missing
// field can be told apart from an empty answer.
type queryResponse struct {
	Response *string `json:"response"`
}

// Query asks the backend one question about the uploaded report.
func (d *QueryDispatcher) Query(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	endpoint := d.baseURL + chatPath + "?" + url.Values{"query": {text}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("query failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return "", transportError("query", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		err := serverError("query", resp)
		d.logger.Warn("backend rejected query", zap.Int("status", resp.StatusCode), zap.Error(err))
		return "", err
	}

	var body queryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		if ctx.Err() != nil {
			return "", transportError("query", ctx.Err())
		}
		return "", &entities.ServerError{Op: "query", Status: resp.StatusCode}
	}
	if body.Response == nil {
		return "", &entities.ServerError{Op: "query", Status: resp.StatusCode}
	}

	d.logger.Debug("query answered",
		zap.Int("question_len", len(text)),
		zap.Int("answer_len", len(*body.Response)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return *body.Response, nil
}
