package streaming

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedPayload = errors.New("malformed payload")

type MessageType int

const (
	MessageText MessageType = iota + 1
	MessageBinary
)

// Message is an inbound message from the analysis service.
type Message interface {
	messageType() MessageType
}

// ImageMessage is a processed, annotated frame.
type ImageMessage struct {
	Data []byte
}

func (ImageMessage) messageType() MessageType { return MessageBinary }

// FeedbackMessage carries the analysis of one or more frames. Counter
// fields are nil when the service did not send them.
type FeedbackMessage struct {
	Feedback      []string
	Count         *int
	IsCorrect     *bool
	CorrectReps   *int
	IncorrectReps *int
}

func (FeedbackMessage) messageType() MessageType { return MessageText }

type feedbackWire struct {
	Feedback      json.RawMessage `json:"feedback"`
	Count         *int            `json:"count"`
	IsCorrect     *bool           `json:"is_correct"`
	CorrectReps   *int            `json:"correct_reps"`
	IncorrectReps *int            `json:"incorrect_reps"`
}

// DecodeMessage turns a raw websocket message into a Message.
// Text payloads that are not a JSON object with at least one known field
// yield ErrMalformedPayload.
func DecodeMessage(typ MessageType, data []byte) (Message, error) {
	switch typ {
	case MessageBinary:
		return ImageMessage{Data: data}, nil
	case MessageText:
		return decodeFeedback(data)
	default:
		return nil, fmt.Errorf("%w: unknown message type %d", ErrMalformedPayload, typ)
	}
}

func decodeFeedback(data []byte) (FeedbackMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return FeedbackMessage{}, fmt.Errorf("%w: not a json object", ErrMalformedPayload)
	}

	var wire feedbackWire
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return FeedbackMessage{}, fmt.Errorf("%w: %s", ErrMalformedPayload, err)
	}

	msg := FeedbackMessage{
		Count:         wire.Count,
		IsCorrect:     wire.IsCorrect,
		CorrectReps:   wire.CorrectReps,
		IncorrectReps: wire.IncorrectReps,
	}

	feedback, err := decodeFeedbackField(wire.Feedback)
	if err != nil {
		return FeedbackMessage{}, err
	}
	msg.Feedback = feedback

	if wire.Feedback == nil && msg.Count == nil && msg.IsCorrect == nil &&
		msg.CorrectReps == nil && msg.IncorrectReps == nil {
		return FeedbackMessage{}, fmt.Errorf("%w: no known fields", ErrMalformedPayload)
	}

	return msg, nil
}

// feedback is sent either as a single string or as a list of strings
func decodeFeedbackField(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil, nil
		}
		return []string{single}, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: feedback is neither a string nor a list of strings", ErrMalformedPayload)
	}
	return list, nil
}
