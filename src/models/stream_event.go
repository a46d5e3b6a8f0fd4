package models

// Reserved stream event names. Every other event name is an instrument.
const (
	EventConnected = "connected"
	EventError     = "error"
)

// MStreamEvent is one framed message on a stream connection.
type MStreamEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// MErrorPayload is the body of an "error" event.
type MErrorPayload struct {
	Message    string `json:"message"`
	Status     int    `json:"status"`
	Instrument string `json:"instrument,omitempty"`
	ReopensAt  int64  `json:"reopens_at,omitempty"` // epoch ms, set for market-closed errors
}

// MConnectedPayload is the body of the "connected" event.
type MConnectedPayload struct {
	ID string `json:"id"`
}
