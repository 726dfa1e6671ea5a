package entity

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/mapdrive/internal/entity"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	frames      metric.Int64Counter
	steps       metric.Int64Counter
	transitions metric.Int64Counter
	superseded  metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	m := meter()
	var (
		out metrics
		err error
	)

	out.frames, err = m.Int64Counter("entity.frames",
		metric.WithDescription("Rendered frames seen by the controller"))
	if err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}
	out.steps, err = m.Int64Counter("entity.physics.steps",
		metric.WithDescription("Fixed physics steps executed"))
	if err != nil {
		return nil, fmt.Errorf("creating steps counter: %w", err)
	}
	out.transitions, err = m.Int64Counter("entity.transitions",
		metric.WithDescription("Completed movement state transitions"))
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}
	out.superseded, err = m.Int64Counter("entity.transitions.superseded",
		metric.WithDescription("Transitions abandoned for a newer one"))
	if err != nil {
		return nil, fmt.Errorf("creating superseded counter: %w", err)
	}
	return &out, nil
}
