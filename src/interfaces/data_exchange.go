package interfaces

import "candle-stream/src/models"

// -----------------------------------------------------------------------------
// IEventSink receives the events produced by one stream pipeline.
// -----------------------------------------------------------------------------

type IEventSink interface {

	// Send delivers one event. An error means the connection is gone and the
	// pipeline should stop.
	Send(event models.MStreamEvent) error
}
