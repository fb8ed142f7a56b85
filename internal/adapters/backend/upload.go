package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
	"github.com/0xcro3dile/medicai-go/internal/domain/ports"
)

// DefaultUploadTimeout bounds a whole upload including backend processing.
const DefaultUploadTimeout = 5 * time.Minute

// UploadTransport implements ports.UploadTransport with a multipart POST.
type UploadTransport struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

// NewUploadTransport creates a new upload adapter.
func NewUploadTransport(baseURL string, timeout time.Duration, logger *zap.Logger) *UploadTransport {
	if timeout <= 0 {
		timeout = DefaultUploadTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadTransport{
		baseURL: normalizeBaseURL(baseURL),
		timeout: timeout,
		client:  &http.Client{},
		logger:  logger.Named("upload"),
	}
}

// uploadResponse is the backend success payload.
type uploadResponse struct {
	Message string `json:"message"`
}

// Upload sends the file as the "file" field of a multipart form.
// Progress is the share of the request body handed to the connection.
func (t *UploadTransport) Upload(ctx context.Context, file entities.CandidateFile) (<-chan ports.UploadEvent, error) {
	if file.Open == nil {
		return nil, fmt.Errorf("uploading %s: no content source", file.Name)
	}

	payload, contentType, err := encodeMultipart(file)
	if err != nil {
		return nil, err
	}

	stream := newEventStream()
	go t.send(ctx, file.Name, payload, contentType, stream)
	return stream.ch, nil
}

func (t *UploadTransport) send(ctx context.Context, name string, payload []byte, contentType string, stream *eventStream) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	stream.progress(0)
	body := &progressReader{r: bytes.NewReader(payload), total: int64(len(payload)), report: stream.progress}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+chatPath, body)
	if err != nil {
		stream.finish(ports.UploadEvent{Err: fmt.Errorf("creating request: %w", err)})
		return
	}
	req.ContentLength = int64(len(payload))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Warn("upload failed", zap.String("file", name), zap.Error(err))
		stream.finish(ports.UploadEvent{Err: transportError("upload", err)})
		return
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		err := serverError("upload", resp)
		t.logger.Warn("backend rejected upload", zap.String("file", name), zap.Int("status", resp.StatusCode), zap.Error(err))
		stream.finish(ports.UploadEvent{Err: err})
		return
	}

	var result uploadResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&result)

	stream.progress(100)
	t.logger.Info("report uploaded",
		zap.String("file", name),
		zap.Int("bytes", len(payload)),
		zap.String("message", result.Message),
		zap.Duration("elapsed", time.Since(start)),
	)
	stream.finish(ports.UploadEvent{Done: true})
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart builds the form body. The part carries the report's own
// Content-Type because the backend validates it.
func encodeMultipart(file entities.CandidateFile) ([]byte, string, error) {
	content, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("opening %s: %w", file.Name, err)
	}
	defer content.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	header.Set("Content-Type", file.MimeType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("creating form part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", file.Name, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// progressReader reports the rounded percentage of bytes read so far.
type progressReader struct {
	r      io.Reader
	read   int64
	total  int64
	report func(percent int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		p.report(int((p.read*100 + p.total/2) / p.total))
	}
	return n, err
}

// eventStream guarantees ordered, non-decreasing progress and a single
// terminal event. The http.Transport may still read the body after Do
// returns, so late progress after finish is dropped.
type eventStream struct {
	mu     sync.Mutex
	ch     chan ports.UploadEvent
	last   int
	closed bool
}

func newEventStream() *eventStream {
	// 0..100 plus the terminal event never block.
	return &eventStream{ch: make(chan ports.UploadEvent, 102), last: -1}
}

func (s *eventStream) progress(percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || percent <= s.last {
		return
	}
	s.last = percent
	s.ch <- ports.UploadEvent{Progress: percent}
}

func (s *eventStream) finish(ev ports.UploadEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.ch <- ev
	close(s.ch)
}
