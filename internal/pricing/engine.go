package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/maiway/commerce-ai-platform/internal/observability/metrics"
	"github.com/maiway/commerce-ai-platform/internal/products"
	"github.com/maiway/commerce-ai-platform/pkg/logging"
)

// DefaultFloorRatio keeps any committed price at or above half the
// product's minimum price, whatever the model proposes.
const DefaultFloorRatio = 0.5

// PricingStore reads and commits product prices.
type PricingStore interface {
	PricingFor(ctx context.Context, productID string) (*products.Pricing, error)
	UpdatePrice(ctx context.Context, productID string, price float64) error
}

// Analyzer is the single-shot side of the AI gateway.
type Analyzer interface {
	QuickAnalysis(ctx context.Context, prompt string) (string, error)
}

// Engine adjusts catalog prices based on demand.
type Engine struct {
	demand     DemandSource
	store      PricingStore
	analyzer   Analyzer
	floorRatio float64
	logger     *logging.Logger
	metrics    *metrics.AutomationMetrics
}

type EngineConfig struct {
	Demand     DemandSource
	Store      PricingStore
	Analyzer   Analyzer
	FloorRatio float64
	Logger     *logging.Logger
	Metrics    *metrics.AutomationMetrics
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Demand == nil {
		panic("pricing: demand source required")
	}
	if cfg.Store == nil {
		panic("pricing: pricing store required")
	}
	if cfg.Analyzer == nil {
		panic("pricing: analyzer required")
	}
	ratio := cfg.FloorRatio
	if ratio <= 0 {
		ratio = DefaultFloorRatio
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		demand:     cfg.Demand,
		store:      cfg.Store,
		analyzer:   cfg.Analyzer,
		floorRatio: ratio,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// AdjustPricesForDemand runs one pricing pass: demand snapshot, AI price
// map, per-product commit. Failure of one entry never aborts the rest.
func (e *Engine) AdjustPricesForDemand(ctx context.Context) {
	snapshot, err := e.demand.Snapshot(ctx)
	if err != nil {
		e.logger.Error("failed to load demand snapshot", "error", err)
		return
	}
	if len(snapshot) == 0 {
		e.logger.Info("no demand data, skipping pricing pass")
		return
	}

	priceMap := e.proposedPrices(ctx, snapshot)

	updated := 0
	for productID, raw := range priceMap {
		if e.applyPrice(ctx, productID, raw) {
			updated++
		}
	}
	e.logger.Info("pricing pass completed", "proposed", len(priceMap), "updated", updated)
}

// proposedPrices asks the gateway for a price map and falls back to a
// single default entry when the backend fails or returns junk. The
// fallback is a safety net, not a pricing strategy.
func (e *Engine) proposedPrices(ctx context.Context, snapshot map[string]string) map[string]any {
	reply, err := e.analyzer.QuickAnalysis(ctx, pricingPrompt(snapshot))
	if err != nil {
		e.logger.Warn("price analysis unavailable, using default entry", "error", err)
		e.metrics.ObserveAIFallback("pricing", "transport")
		return map[string]any{"default_product": "150.0"}
	}

	var priceMap map[string]any
	if err := json.Unmarshal([]byte(reply), &priceMap); err != nil {
		e.logger.Warn("price analysis returned invalid JSON, using default entry")
		e.metrics.ObserveAIFallback("pricing", "malformed")
		return map[string]any{"default_product": "150.0"}
	}
	return priceMap
}

// applyPrice coerces, floors and commits one proposed price. Returns
// true when a price was committed.
func (e *Engine) applyPrice(ctx context.Context, productID string, raw any) bool {
	price, err := coercePrice(raw)
	if err != nil {
		e.logger.Warn("skipping uncoercible price", "product_id", productID, "value", fmt.Sprint(raw))
		return false
	}

	pricing, err := e.store.PricingFor(ctx, productID)
	if err != nil {
		if errors.Is(err, products.ErrNotFound) {
			e.logger.Warn("skipping price for unknown product", "product_id", productID)
		} else {
			e.logger.Error("failed to load pricing", "product_id", productID, "error", err)
		}
		return false
	}

	floor := pricing.MinPrice * e.floorRatio
	if price < floor {
		e.logger.Info("clamping proposed price to floor",
			"product_id", productID, "proposed", price, "floor", floor)
		price = floor
	}

	if err := e.store.UpdatePrice(ctx, productID, price); err != nil {
		e.logger.Error("failed to commit price", "product_id", productID, "error", err)
		return false
	}
	e.logger.Info("price updated", "product_id", productID, "price", price)
	return true
}

func pricingPrompt(snapshot map[string]string) string {
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("Current demand trend: {")
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: {\"demand\": %q}", id, snapshot[id])
	}
	b.WriteString("}. For each product, return ONLY a JSON object with product_id as key and optimal_price as value. ")
	b.WriteString(`Example: {"product_abc": 120.0, "product_xyz": 180.0}`)
	return b.String()
}

// coercePrice accepts the number and string shapes models actually emit.
func coercePrice(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("pricing: unsupported price type %T", raw)
	}
}
