package queue

import "encoding/json"

// Message is the payload handed to the worker process for one analysis.
type Message struct {
	AnalysisID string `json:"analysis_id"`
	RequestID  string `json:"request_id"`
	EnqueuedAt string `json:"enqueued_at"`
	Version    int    `json:"version"`
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
