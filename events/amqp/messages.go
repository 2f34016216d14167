package amqp

import (
	"encoding/json"
	"time"

	"github.com/warp/vacation-engine/vacation"
)

// RoutingKeyConsumed routes consumption messages. The payroll queue is
// declared under the same name.
const RoutingKeyConsumed = "vacation.consumed"

// ConsumptionMessage is the wire form of vacation.ConsumptionEvent.
// Day quantities are decimal strings so consumers never see float rounding.
type ConsumptionMessage struct {
	UserID      string              `json:"user_id"`
	Year        int                 `json:"year"`
	Requested   string              `json:"requested"`
	Allocations []AllocationMessage `json:"allocations"`
	Timestamp   time.Time           `json:"timestamp"`
}

type AllocationMessage struct {
	BucketID string `json:"bucket_id"`
	Year     int    `json:"year"`
	Days     string `json:"days"`
}

// NewConsumptionMessage converts an engine event.
func NewConsumptionMessage(event vacation.ConsumptionEvent) *ConsumptionMessage {
	msg := &ConsumptionMessage{
		UserID:      string(event.UserID),
		Year:        event.Year,
		Requested:   event.Requested.String(),
		Allocations: make([]AllocationMessage, 0, len(event.Allocations)),
		Timestamp:   event.At,
	}
	for _, a := range event.Allocations {
		msg.Allocations = append(msg.Allocations, AllocationMessage{
			BucketID: string(a.BucketID),
			Year:     a.Year,
			Days:     a.Days.String(),
		})
	}
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *ConsumptionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ConsumptionMessageFromJSON decodes a message body.
func ConsumptionMessageFromJSON(data []byte) (*ConsumptionMessage, error) {
	var msg ConsumptionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
