// Package logsink logs every emitted event through obslog, at a level keyed
// by the event kind.
package logsink

import (
	"context"

	"barwatch/internal/obslog"
	"barwatch/internal/sink"
)

type Sink struct {
	log *obslog.Logger
}

func New(log *obslog.Logger) *Sink {
	return &Sink{log: log}
}

func (s *Sink) Emit(ctx context.Context, ev sink.Event) {
	if ev.Kind == sink.Error {
		s.log.Warnf("%s [%s]: %+v", ev.Kind, ev.Symbol, ev.Payload)
		return
	}
	s.log.Infof("%s [%s]: %+v", ev.Kind, ev.Symbol, ev.Payload)
}
