package events

import "encoding/json"

// Event defines a type that can yield itself as JSON bytes.
type Event interface {
	Yield() []byte
}

// StatusChange is emitted after a status transition commits. Entity is
// "order" or "orderItem".
type StatusChange struct {
	Entity         string `json:"entity"`
	ID             int64  `json:"id"`
	OrderID        int64  `json:"order_id"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	Timestamp      string `json:"timestamp"`
	Username       string `json:"username"`
}

// Yield satisfies the Event interface.
func (s StatusChange) Yield() []byte {
	b, _ := json.Marshal(s)
	return b
}
