package nest

import (
	"context"
	"time"
)

// Event describes one dispatched request. It is delivered to the Observer
// after the response is produced.
type Event struct {
	Method string
	// Route is the matched path template, or "" when routing failed.
	Route   string
	Version string
	Status  int
	// Kind is the failure kind. It is meaningful only when Err is non-nil.
	Kind     Kind
	Err      error
	Duration time.Duration
}

// Observer receives an Event for every dispatched request. It is called
// synchronously and must be safe for concurrent use.
type Observer func(ev Event)

func chainObservers(obs []Observer) Observer {
	switch len(obs) {
	case 0:
		return nil
	case 1:
		return obs[0]
	}
	return func(ev Event) {
		for _, o := range obs {
			o(ev)
		}
	}
}

// SpanStarter is a tracing hook for creating a span per dispatched request.
// The returned function ends the span, recording err when non-nil.
type SpanStarter interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(err error))
}
