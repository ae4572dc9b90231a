package websocket

import (
	"time"

	"github.com/askwhyharsh/fogofearth/internal/location"
)

const (
	MessageTypePointRevealed    = "point_revealed"
	MessageTypeSharedImported   = "shared_imported"
	MessageTypeTransferProgress = "transfer_progress"
	MessageTypeFogReset         = "fog_reset"
	MessageTypePing             = "ping"
	MessageTypePong             = "pong"
	MessageTypeError            = "error"
)

// Message tells map views which layer changed so they can redraw.
type Message struct {
	Type         string             `json:"type"`
	Timestamp    int64              `json:"timestamp"`
	Point        *location.GeoPoint `json:"point,omitempty"`
	PrimaryCount int                `json:"primary_count,omitempty"`
	SharedCount  int                `json:"shared_count,omitempty"`
	TransferID   string             `json:"transfer_id,omitempty"`
	Have         int                `json:"have,omitempty"`
	Total        int                `json:"total,omitempty"`
	Content      string             `json:"content,omitempty"`
	ErrorCode    string             `json:"code,omitempty"`
}

type IncomingMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

func NewErrorMessage(errMsg, code string) *Message {
	return &Message{
		Type:      MessageTypeError,
		Content:   errMsg,
		ErrorCode: code,
		Timestamp: time.Now().Unix(),
	}
}
