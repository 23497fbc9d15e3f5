package streaming

import "fmt"

type Status int

const (
	StatusClosed Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusClosed:
		return "closed"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ConnectionState is a snapshot of the connection as seen by subscribers.
type ConnectionState struct {
	Status           Status `json:"status"`
	ReconnectAttempt int    `json:"reconnectAttempt"`
	LastError        string `json:"lastError,omitempty"`
	// Terminal is set once the retry ceiling is exhausted.
	Terminal bool `json:"terminal"`
}
