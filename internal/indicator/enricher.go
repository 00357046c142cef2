package indicator

import (
	"maps"

	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"go.uber.org/zap"
)

// Enricher fills derived indicator values and the market regime into snapshots
// that carry raw candles only.
type Enricher struct {
	registry IndicatorRegistry
	logger   *logger.Logger
}

// NewEnricher creates an enricher over the given registry.
func NewEnricher(registry IndicatorRegistry, log *logger.Logger) *Enricher {
	return &Enricher{
		registry: registry,
		logger:   log.Named("indicator"),
	}
}

// Enrich returns a copy of the snapshot with every computable indicator added.
// Values already present on the snapshot win. Indicators without enough history are skipped.
func (e *Enricher) Enrich(snapshot types.MarketSnapshot) types.MarketSnapshot {
	candles := make([]types.Candle, 0, len(snapshot.History)+1)
	candles = append(candles, snapshot.History...)
	candles = append(candles, snapshot.Candle)

	values := make(map[string]float64)

	for _, name := range e.registry.ListIndicators() {
		ind, err := e.registry.GetIndicator(name)
		if err != nil {
			continue
		}

		out, err := ind.Values(candles)
		if err != nil {
			if !errors.IsInsufficientDataError(err) {
				e.logger.Warn("indicator computation failed",
					zap.String("indicator", name),
					zap.String("symbol", snapshot.Symbol),
					zap.Error(err),
				)
			}

			continue
		}

		maps.Copy(values, out)
	}

	maps.Copy(values, snapshot.Indicators)

	enriched := snapshot
	enriched.Indicators = values

	if enriched.Regime == "" || enriched.Regime == types.MarketRegimeUnknown {
		enriched.Regime = DetectRegime(candles).Regime
	}

	return enriched
}
