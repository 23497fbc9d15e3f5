package session

import (
	"context"
	"errors"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/formcoach/internal/feedback"
	"github.com/2beens/formcoach/internal/streaming"
)

// cameraSource feeds camera frames to the streaming client.
type cameraSource struct {
	session *Session
}

func (c *cameraSource) Capture(ctx context.Context) ([]byte, error) {
	frame, err := c.session.camera.Capture(ctx)
	if errors.Is(err, io.EOF) {
		c.session.markFinished(nil)
		return nil, nil
	}
	return frame, err
}

// remoteHandler applies what the analysis service sends back to the session.
type remoteHandler struct {
	session *Session
}

func (h *remoteHandler) HandleImage(msg streaming.ImageMessage) {
	s := h.session
	s.mutex.Lock()
	s.imagesReceived++
	s.mutex.Unlock()

	if s.params.OnImage != nil {
		s.params.OnImage(msg.Data)
	}
}

func (h *remoteHandler) HandleFeedback(msg streaming.FeedbackMessage) {
	h.session.applyRemoteFeedback(msg)
}

func (h *remoteHandler) HandleTerminalError(err error) {
	s := h.session
	log.Errorf("session %s: analysis connection lost: %s", s.id, err)
	s.feedback.Append(feedback.Message{
		Text:      "Connection to the analysis service lost: " + err.Error(),
		Source:    feedback.SourceSystem,
		Timestamp: s.clock.Now(),
	})
	s.markFinished(err)
}
