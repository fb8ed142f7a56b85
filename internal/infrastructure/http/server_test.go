package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/medicai-go/internal/adapters/loader"
	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
	"github.com/0xcro3dile/medicai-go/internal/domain/ports"
	"github.com/0xcro3dile/medicai-go/internal/domain/usecases"
)

type mockTransport struct {
	err error
}

func (m *mockTransport) Upload(ctx context.Context, file entities.CandidateFile) (<-chan ports.UploadEvent, error) {
	ch := make(chan ports.UploadEvent, 3)
	ch <- ports.UploadEvent{Progress: 50}
	if m.err != nil {
		ch <- ports.UploadEvent{Err: m.err}
	} else {
		ch <- ports.UploadEvent{Progress: 100}
		ch <- ports.UploadEvent{Done: true}
	}
	close(ch)
	return ch, nil
}

type mockDispatcher struct {
	queryFn func(ctx context.Context, text string) (string, error)
}

func (m *mockDispatcher) Query(ctx context.Context, text string) (string, error) {
	return m.queryFn(ctx, text)
}

func newTestServer(t *testing.T, transport ports.UploadTransport, dispatcher ports.QueryDispatcher) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	intake := usecases.NewIntakeController(transport, nil)
	chat := usecases.NewChatSession(dispatcher, usecases.ChatOptions{})
	s, err := NewServer(intake, chat, loader.NewLocalLoader(), "127.0.0.1:0", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func echoDispatcher() *mockDispatcher {
	return &mockDispatcher{queryFn: func(ctx context.Context, text string) (string, error) {
		return "You asked: " + text, nil
	}}
}

func doRequest(t *testing.T, h http.Handler, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func multipartFile(t *testing.T, name, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return &buf
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, &mockTransport{}, echoDispatcher())

	rec := doRequest(t, s.Handler(), http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_SelectAndSubmit(t *testing.T) {
	s := newTestServer(t, &mockTransport{}, echoDispatcher())
	h := s.Handler()

	body, ct := multipartFile(t, "bloodwork.txt", "text/plain", []byte("HbA1c 5.6%\n"))
	rec := doRequest(t, h, http.MethodPost, "/api/intake/file", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var candidate candidateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &candidate))
	assert.Equal(t, "bloodwork.txt", candidate.Name)
	assert.Equal(t, "valid", candidate.Validation)

	rec = doRequest(t, h, http.MethodPost, "/api/intake/submit", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var submitted struct {
		Upload    uploadView `json:"upload"`
		ChatReady bool       `json:"chat_ready"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	assert.Equal(t, "succeeded", submitted.Upload.Phase)
	assert.Equal(t, 100, submitted.Upload.Percent)
	assert.True(t, submitted.ChatReady)

	rec = doRequest(t, h, http.MethodGet, "/api/state", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var state stateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Nil(t, state.Candidate)
	assert.True(t, state.ChatReady)

	staged, err := os.ReadDir(s.stageDir)
	require.NoError(t, err)
	assert.Empty(t, staged, "uploaded report is removed from the stage dir")
}

func TestServer_SelectUnsupportedFile(t *testing.T) {
	s := newTestServer(t, &mockTransport{}, echoDispatcher())
	h := s.Handler()

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	body, ct := multipartFile(t, "xray.png", "image/png", png)
	rec := doRequest(t, h, http.MethodPost, "/api/intake/file", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var candidate candidateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &candidate))
	assert.Equal(t, "invalid", candidate.Validation)
	assert.Equal(t, "Unsupported file format. Please upload a PDF, DOCX, DOC, or TXT file.", candidate.Reason)

	rec = doRequest(t, h, http.MethodPost, "/api/intake/submit", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unsupported file format. Please upload a PDF, DOCX, DOC, or TXT file.", decodeError(t, rec))
}

func TestServer_SubmitWithoutFile(t *testing.T) {
	s := newTestServer(t, &mockTransport{}, echoDispatcher())

	rec := doRequest(t, s.Handler(), http.MethodPost, "/api/intake/submit", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please select a file before uploading", decodeError(t, rec))
}

func TestServer_SubmitFailureReturnsServerMessage(t *testing.T) {
	transport := &mockTransport{err: &entities.ServerError{Op: "upload", Status: 400, Message: "No file provided"}}
	s := newTestServer(t, transport, echoDispatcher())
	h := s.Handler()

	body, ct := multipartFile(t, "report.txt", "text/plain", []byte("ok"))
	require.Equal(t, http.StatusOK, doRequest(t, h, http.MethodPost, "/api/intake/file", body, ct).Code)

	rec := doRequest(t, h, http.MethodPost, "/api/intake/submit", nil, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "No file provided", decodeError(t, rec))

	var state stateView
	require.NoError(t, json.Unmarshal(doRequest(t, h, http.MethodGet, "/api/state", nil, "").Body.Bytes(), &state))
	assert.Equal(t, "failed", state.Upload.Phase)
	require.NotNil(t, state.Candidate, "candidate is kept for retry")
}

func TestServer_Clear(t *testing.T) {
	s := newTestServer(t, &mockTransport{}, echoDispatcher())
	h := s.Handler()

	body, ct := multipartFile(t, "report.txt", "text/plain", []byte("ok"))
	require.Equal(t, http.StatusOK, doRequest(t, h, http.MethodPost, "/api/intake/file", body, ct).Code)

	rec := doRequest(t, h, http.MethodDelete, "/api/intake", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, s.intake.State().Candidate)
}

func TestServer_SendMessage(t *testing.T) {
	s := newTestServer(t, &mockTransport{}, echoDispatcher())
	h := s.Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/chat/messages", jsonBody(t, sendRequest{Text: "   "}), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please enter a question.", decodeError(t, rec))

	rec = doRequest(t, h, http.MethodPost, "/api/chat/messages", jsonBody(t, sendRequest{Text: "What is the diagnosis?"}), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reply messageView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "assistant", reply.Sender)
	assert.Equal(t, "You asked: What is the diagnosis?", reply.Content)

	rec = doRequest(t, h, http.MethodGet, "/api/chat/messages", nil, "")
	var log []messageView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &log))
	require.Len(t, log, 2)
	assert.Equal(t, "user", log[0].Sender)
}

func TestServer_SendFailureUsesFallback(t *testing.T) {
	dispatcher := &mockDispatcher{queryFn: func(ctx context.Context, text string) (string, error) {
		return "", &entities.NetworkError{Op: "query", Err: context.DeadlineExceeded, Timeout: true}
	}}
	s := newTestServer(t, &mockTransport{}, dispatcher)

	rec := doRequest(t, s.Handler(), http.MethodPost, "/api/chat/messages", jsonBody(t, sendRequest{Text: "Is this serious?"}), "application/json")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "An error occurred while querying AI.", decodeError(t, rec))
	assert.Len(t, s.chat.Messages(), 1)
}

func TestServer_SendWhilePendingConflicts(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	dispatcher := &mockDispatcher{queryFn: func(ctx context.Context, text string) (string, error) {
		close(started)
		<-release
		return "done", nil
	}}
	s := newTestServer(t, &mockTransport{}, dispatcher)
	h := s.Handler()

	done := make(chan int, 1)
	go func() {
		done <- doRequest(t, h, http.MethodPost, "/api/chat/messages", jsonBody(t, sendRequest{Text: "first"}), "application/json").Code
	}()
	<-started

	rec := doRequest(t, h, http.MethodPost, "/api/chat/messages", jsonBody(t, sendRequest{Text: "second"}), "application/json")
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestServer_CORSPreflight(t *testing.T) {
	s := newTestServer(t, &mockTransport{}, echoDispatcher())

	rec := doRequest(t, s.Handler(), http.MethodOptions, "/api/chat/messages", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_EventStream(t *testing.T) {
	s := newTestServer(t, &mockTransport{}, echoDispatcher())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
				events <- name
			}
		}
	}()

	post, err := http.Post(srv.URL+"/api/chat/messages", "application/json", jsonBody(t, sendRequest{Text: "Any follow-up needed?"}))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusOK, post.StatusCode)

	for i := 0; i < 2; i++ {
		select {
		case name := <-events:
			assert.Equal(t, EventMessage, name)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for message events")
		}
	}
}

func TestServer_StalledEventStreamDoesNotBlockSession(t *testing.T) {
	s := newTestServer(t, &mockTransport{}, echoDispatcher())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := s.events.subscribe(ctx) // never drained or acked
	require.NoError(t, err)

	body, ct := multipartFile(t, "report.txt", "text/plain", []byte("ferritin 8 ng/mL"))
	require.Equal(t, http.StatusOK, doRequest(t, s.Handler(), http.MethodPost, "/api/intake/file", body, ct).Code)

	done := make(chan error, 1)
	go func() {
		if err := s.intake.Submit(context.Background()); err != nil {
			done <- err
			return
		}
		for i := 0; i < 3; i++ {
			if _, err := s.chat.Send(context.Background(), fmt.Sprintf("question %d", i)); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session blocked behind a stalled event stream")
	}
	assert.False(t, s.chat.State().Pending)
	assert.Len(t, s.chat.Messages(), 6)
	assert.True(t, s.intake.State().ChatReady)
}
