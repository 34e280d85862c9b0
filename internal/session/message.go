package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType classifies an inter-agent message.
type MessageType string

const (
	MessageRequest      MessageType = "request"
	MessageResponse     MessageType = "response"
	MessageNotification MessageType = "notification"
	MessageError        MessageType = "error"
)

// Recipients is one or more agent IDs. It encodes a single recipient as a
// bare string and accepts either form when decoding.
type Recipients []string

// To builds a recipient list.
func To(agents ...string) Recipients {
	return Recipients(agents)
}

func (r Recipients) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	if len(r) == 1 {
		return json.Marshal(r[0])
	}
	return json.Marshal([]string(r))
}

func (r *Recipients) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*r = Recipients{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("recipients must be a string or an array of strings: %w", err)
	}
	*r = Recipients(many)
	return nil
}

// Message is one entry in the context history.
type Message struct {
	ID        string      `json:"id"`
	From      string      `json:"from"`
	To        Recipients  `json:"to"`
	Type      MessageType `json:"type"`
	Content   any         `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// Handler receives messages addressed to the agent it was registered for.
type Handler func(Message)
