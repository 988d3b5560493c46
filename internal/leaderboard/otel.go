package leaderboard

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/sloperunner/engine/internal/leaderboard"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
