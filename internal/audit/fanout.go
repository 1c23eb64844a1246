package audit

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Fanout delivers each event to every emitter. Delivery is best effort:
// failures are logged and never reported back to the settled call.
type Fanout struct {
	emitters []Emitter
	logger   *logrus.Logger
}

func NewFanout(logger *logrus.Logger, emitters ...Emitter) *Fanout {
	if logger == nil {
		logger = logrus.New()
	}
	out := make([]Emitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return &Fanout{emitters: out, logger: logger}
}

func (f *Fanout) Emit(ctx context.Context, ev *Event) error {
	for _, e := range f.emitters {
		if err := e.Emit(ctx, ev); err != nil {
			f.logger.WithError(err).WithFields(logrus.Fields{
				"event_id":   ev.ID,
				"event_type": ev.Type,
				"order_id":   ev.OrderID,
			}).Warn("failed to emit audit event")
		}
	}
	return nil
}

// Recorder keeps emitted events in memory.
type Recorder struct {
	Events []*Event
}

func (r *Recorder) Emit(_ context.Context, ev *Event) error {
	r.Events = append(r.Events, ev)
	return nil
}
