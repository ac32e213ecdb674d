package metrics

import (
	"sync"

	"github.com/rs/zerolog"
)

// ModelPrice is the per-token cost for one provider+model pair, in USD.
type ModelPrice struct {
	InputPerToken  float64
	OutputPerToken float64
}

// PricingTable computes call cost from a provider+model keyed price list
// (original_source's ai_metrics_service.CostCalculator). Missing entries
// cost 0 and log a warning rather than failing the monitor scope — a
// pricing gap must never block metrics recording.
type PricingTable struct {
	log zerolog.Logger

	mu     sync.RWMutex
	prices map[string]ModelPrice
}

func priceKey(provider, model string) string { return provider + "/" + model }

// NewPricingTable builds a table from an initial price list.
func NewPricingTable(log zerolog.Logger, initial map[string]ModelPrice) *PricingTable {
	prices := make(map[string]ModelPrice, len(initial))
	for k, v := range initial {
		prices[k] = v
	}
	return &PricingTable{log: log, prices: prices}
}

// Set installs or replaces the price for provider+model.
func (t *PricingTable) Set(provider, model string, price ModelPrice) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prices[priceKey(provider, model)] = price
}

// Cost computes total USD cost for a completed call. Returns 0 and logs a
// warning if no price is configured for provider+model.
func (t *PricingTable) Cost(provider, model string, promptTokens, completionTokens int) float64 {
	t.mu.RLock()
	price, ok := t.prices[priceKey(provider, model)]
	t.mu.RUnlock()
	if !ok {
		t.log.Warn().Str("provider", provider).Str("model", model).Msg("no pricing configured; cost recorded as 0")
		return 0
	}
	return float64(promptTokens)*price.InputPerToken + float64(completionTokens)*price.OutputPerToken
}
