package queue

import "encoding/json"

// KindNotificationEmail marks an email fan-out job.
const KindNotificationEmail = "notification.email"

// Message is the payload sent to downstream queue consumers. Exactly one of
// RecipientUserID and RecipientRole is set.
type Message struct {
	Kind            string `json:"kind"`
	NotificationID  int64  `json:"notificationId,omitempty"`
	RecipientUserID string `json:"recipientUserId,omitempty"`
	RecipientRole   string `json:"recipientRole,omitempty"`
	Title           string `json:"title"`
	Body            string `json:"body"`
	Route           string `json:"route,omitempty"`
	RequestID       string `json:"requestId,omitempty"`
	EnqueuedAt      string `json:"enqueuedAt"`
	Version         int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
