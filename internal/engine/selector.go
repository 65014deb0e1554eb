package engine

import "context"

// ChooseBest picks the configured provider with the lowest marginal cost for
// the requested duration. Ties resolve to the first provider in configured
// iteration order. Returns ErrNoProviderConfigured when every provider is
// filtered out.
func (e *Engine) ChooseBest(ctx context.Context, durationSeconds int) (string, error) {
	best := ""
	bestCost := 0.0

	for _, cfg := range e.configs {
		ok, err := e.IsConfigured(ctx, cfg)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}

		cost, err := e.ledger.Estimate(ctx, cfg, durationSeconds)
		if err != nil {
			return "", err
		}
		if best == "" || cost < bestCost {
			best = cfg.ID
			bestCost = cost
		}
	}

	if best == "" {
		return "", ErrNoProviderConfigured
	}
	return best, nil
}
