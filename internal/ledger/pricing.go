package ledger

// Pricing contains per-1M-token rates for a model.
type Pricing struct {
	InputPerMillion  float64 // cost per 1M input tokens
	OutputPerMillion float64 // cost per 1M output tokens
}

// DefaultPricing contains rates for known Claude models. Rates are
// configuration, not algorithm: overriding them must not change how the
// cost is computed.
var DefaultPricing = map[string]Pricing{
	"claude-opus-4-5-20251101":   {InputPerMillion: 15.00, OutputPerMillion: 75.00},
	"claude-sonnet-4-5-20250929": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-sonnet-4-20250514":   {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-haiku-4-5-20251001":  {InputPerMillion: 1.00, OutputPerMillion: 5.00},
	"claude-3-5-haiku-20241022":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
}

// PricingFor returns the pricing for a model, falling back to zero rates for
// unknown models so an unpriced call never fabricates spend.
func PricingFor(model string) Pricing {
	if p, ok := DefaultPricing[model]; ok {
		return p
	}
	return Pricing{}
}

// Cost computes the billed cost for the given token counts. The formula is
// deterministic and linear; displayed estimates depend on it reproducing the
// same value for the same inputs every time.
func (p Pricing) Cost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * p.InputPerMillion
	outputCost := float64(outputTokens) / 1_000_000 * p.OutputPerMillion
	return inputCost + outputCost
}
