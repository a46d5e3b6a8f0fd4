package server

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	datasource "candle-stream/src/data_source"
	"candle-stream/src/helpers"
	"candle-stream/src/interfaces"
	"candle-stream/src/models"

	"github.com/gin-gonic/gin"
)

var errServerStopping = errors.New("server is shutting down")

// streamParams are the query parameters shared by /realtime and /ws.
type streamParams struct {
	Instruments []string // known instruments, in request order
	Unknown     []string
	Delay       time.Duration
	Period      int64
}

// -----------------------------------------------------------------------------

// parseStreamParams reads instruments, delay and period. Missing delay or
// period fall back to the configured defaults. Unknown instruments do not
// fail the request; they are reported as error events once the stream opens.
func (s *StreamServer) parseStreamParams(c *gin.Context) (streamParams, error) {
	var p streamParams

	names := datasource.SplitCSV(c.Query("instruments"))
	if len(names) == 0 {
		return p, helpers.NewValidationError("instruments is required")
	}
	for _, name := range names {
		if _, err := s.Registry.Lookup(name); err != nil {
			p.Unknown = append(p.Unknown, name)
			continue
		}
		p.Instruments = append(p.Instruments, name)
	}

	delay, err := positiveParam(c, "delay", s.Config.Stream.DelaySeconds)
	if err != nil {
		return p, err
	}
	period, err := positiveParam(c, "period", s.Config.Stream.PeriodSeconds)
	if err != nil {
		return p, err
	}

	p.Delay = time.Duration(delay) * time.Second
	p.Period = int64(period)
	return p, nil
}

func positiveParam(c *gin.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, helpers.NewValidationError("%s must be a positive number of seconds", name)
	}
	return v, nil
}

// -----------------------------------------------------------------------------

// openPipeline creates, registers and starts the pipeline of one connection.
func (s *StreamServer) openPipeline(ctx context.Context, id string, params streamParams) (*Pipeline, error) {
	p := s.newPipeline(id, params.Instruments, params.Delay, params.Period)
	p.Start(ctx)
	if !s.hub.Register(p) {
		p.Stop()
		return nil, errServerStopping
	}
	s.Logger.Info("Stream %s opened for %v (delay %s, period %ds)", id, params.Instruments, params.Delay, params.Period)
	return p, nil
}

// -----------------------------------------------------------------------------

func (s *StreamServer) closePipeline(p *Pipeline) {
	p.Stop()
	s.hub.Unregister(p.ID)
	s.Logger.Info("Stream %s closed", p.ID)
}

// -----------------------------------------------------------------------------

// pump forwards pipeline events to the sink until the context ends, the
// pipeline stops, or the sink fails. A nil heartbeat channel disables beats.
func (s *StreamServer) pump(ctx context.Context, p *Pipeline, sink interfaces.IEventSink, heartbeat <-chan time.Time, beat func() error) {
	for {
		select {
		case <-ctx.Done():
			return

		case events, ok := <-p.Events():
			if !ok {
				return
			}
			for _, ev := range events {
				if err := sink.Send(ev); err != nil {
					s.Logger.Debug("Stream %s send failed: %v", p.ID, err)
					return
				}
			}

		case <-heartbeat:
			if err := beat(); err != nil {
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

// greet sends the connected event followed by one error per unknown instrument.
func greet(sink interfaces.IEventSink, id string, unknown []string) error {
	if err := sink.Send(models.MStreamEvent{
		Event: models.EventConnected,
		Data:  models.MConnectedPayload{ID: id},
	}); err != nil {
		return err
	}
	for _, name := range unknown {
		if err := sink.Send(ErrorEvent(name, helpers.NewUnknownInstrumentError(name))); err != nil {
			return err
		}
	}
	return nil
}
