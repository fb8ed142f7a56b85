package http

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
)

// maxStagedBytes caps what the bridge accepts; validation rejects anything over 5MB anyway.
const maxStagedBytes int64 = 32 << 20

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, newStateView(s.intake.State(), s.chat.State(), s.chat.Messages()))
}

func (s *Server) handleMessages(c *gin.Context) {
	c.JSON(http.StatusOK, newMessageViews(s.chat.Messages()))
}

// handleSelectFile stages a browser-picked file and makes it the candidate.
func (s *Server) handleSelectFile(c *gin.Context) {
	if c.Request.ContentLength > maxStagedBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": entities.DisplayReason(entities.ReasonTooLarge)})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxStagedBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": entities.DisplayReason(entities.ReasonTooLarge)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": entities.MsgNoFileSelected})
		return
	}

	path, err := s.stage(c, fh)
	if err != nil {
		s.logger.Error("staging upload failed", zap.String("file", fh.Filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": entities.MsgUploadFailed})
		return
	}

	file, err := s.loader.Load(c.Request.Context(), path)
	if err != nil {
		os.Remove(path)
		s.logger.Error("loading staged file failed", zap.String("file", fh.Filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": entities.MsgUploadFailed})
		return
	}
	file.Name = filepath.Base(fh.Filename)
	if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		file.MimeType = ct
	}

	state, err := s.intake.SelectFile(file)
	if err != nil {
		os.Remove(path)
		s.respondError(c, err, "")
		return
	}
	s.replaceStaged(path)

	c.JSON(http.StatusOK, newCandidateView(file.FileMeta, state))
}

func (s *Server) handleSubmit(c *gin.Context) {
	if err := s.intake.Submit(c.Request.Context()); err != nil {
		s.respondError(c, err, entities.MsgUploadFailed)
		return
	}

	state := s.intake.State()
	c.JSON(http.StatusOK, gin.H{
		"upload":     newUploadView(state.Upload),
		"chat_ready": state.ChatReady,
	})
}

func (s *Server) handleClear(c *gin.Context) {
	if err := s.intake.Clear(); err != nil {
		s.respondError(c, err, "")
		return
	}
	c.Status(http.StatusNoContent)
}

type sendRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSend(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	reply, err := s.chat.Send(c.Request.Context(), req.Text)
	if err != nil {
		s.respondError(c, err, entities.MsgQueryFailed)
		return
	}
	c.JSON(http.StatusOK, newMessageView(reply))
}

// handleEvents streams session notifications as server-sent events.
func (s *Server) handleEvents(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	ctx := c.Request.Context()
	messages, err := s.events.subscribe(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			msg.Ack()

			_, err := fmt.Fprintf(c.Writer, "id: %s\nevent: %s\ndata: %s\n\n",
				msg.Metadata.Get(metaSeq), msg.Metadata.Get(metaEvent), msg.Payload)
			if err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// respondError maps session errors to status codes.
func (s *Server) respondError(c *gin.Context, err error, fallback string) {
	var (
		validationErr *entities.ValidationError
		serverErr     *entities.ServerError
		networkErr    *entities.NetworkError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entities.ErrNoFileSelected),
		errors.Is(err, entities.ErrEmptyInput),
		errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.Is(err, entities.ErrUploadInProgress),
		errors.Is(err, entities.ErrRequestInFlight):
		status = http.StatusConflict
	case errors.As(err, &serverErr), errors.As(err, &networkErr):
		status = http.StatusBadGateway
	}

	msg := entities.UserMessage(err, fallback)
	if msg == "" {
		msg = err.Error()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg})
}

func (s *Server) stage(c *gin.Context, fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	path := filepath.Join(s.stageDir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(fh, path); err != nil {
		return "", err
	}
	return path, nil
}

// replaceStaged keeps only the file backing the current candidate.
// An empty path drops it, as after a successful upload.
func (s *Server) replaceStaged(path string) {
	s.stageMu.Lock()
	prev := s.staged
	s.staged = path
	s.stageMu.Unlock()

	if prev != "" && prev != path {
		os.Remove(prev)
	}
}
