package engine

import (
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"lmsr-amm/internal/api"
	"lmsr-amm/internal/config"
	"lmsr-amm/internal/market"
	"lmsr-amm/internal/store"
	"lmsr-amm/pkg/fixed"
	"lmsr-amm/pkg/types"
)

// Clock supplies the current time for resolve_at comparisons. Injected so
// tests can drive the lifecycle deterministically; production uses
// SystemClock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall-clock Clock.
func SystemClock() Clock { return systemClock{} }

// ownerPattern constrains trader identifiers: they key position files on
// disk, so they must be short and filename-safe.
var ownerPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Engine is the hosting runtime around the pure operation functions. It
// owns storage, the clock, and per-market serialization: every operation
// that touches a market runs under that market's mutex, so the operation
// functions always see exclusive state.
type Engine struct {
	cfg    config.Config
	store  *store.Store
	clock  Clock
	logger *slog.Logger
	events chan api.StreamEvent

	mu    sync.Mutex             // guards locks
	locks map[string]*sync.Mutex // per-market serialization
}

// New creates an engine over the given store and clock.
func New(cfg config.Config, st *store.Store, clock Clock, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		store:  st,
		clock:  clock,
		logger: logger.With("component", "engine"),
		events: make(chan api.StreamEvent, 100),
		locks:  make(map[string]*sync.Mutex),
	}
}

// StreamEvents returns the channel of events for the WebSocket hub.
func (e *Engine) StreamEvents() <-chan api.StreamEvent {
	return e.events
}

// InitializeMarket creates a new market. A zero b selects the configured
// default liquidity. The market must run for at least the configured
// minimum duration before resolve_at.
func (e *Engine) InitializeMarket(b fixed.Value, resolveAt time.Time) (*market.Market, error) {
	now := e.clock.Now()
	if b == 0 {
		var err error
		b, err = e.cfg.Market.DefaultB()
		if err != nil {
			return nil, err
		}
	}
	if resolveAt.Sub(now) < e.cfg.Market.MinDuration {
		return nil, fmt.Errorf("market must run at least %s: %w", e.cfg.Market.MinDuration, types.ErrInvalidParameter)
	}

	m, err := market.New(uuid.NewString(), b, now, resolveAt)
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveMarket(m); err != nil {
		return nil, err
	}

	e.logger.Info("market initialized",
		"market", m.ID,
		"liquidity", m.Liquidity.String(),
		"resolve_at", m.ResolveAt,
	)
	e.emit(api.StreamEvent{Type: "market", Timestamp: now, MarketID: m.ID, Data: api.NewMarketEvent(m)})
	return m, nil
}

// Buy purchases shares for owner, creating the position on first trade.
func (e *Engine) Buy(marketID, owner string, outcome types.Outcome, amount, maxCost fixed.Value) (*types.TradeReceipt, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	unlock := e.lockMarket(marketID)
	defer unlock()

	m, err := e.loadMarket(marketID)
	if err != nil {
		return nil, err
	}
	pos, err := e.store.LoadPosition(marketID, owner)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		pos = market.NewPosition(marketID, owner)
	}
	if pos.Owner != owner {
		return nil, fmt.Errorf("position owned by %s: %w", pos.Owner, types.ErrUnauthorized)
	}

	receipt, err := ExecuteBuy(m, pos, outcome, amount, maxCost, e.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := e.persistTrade(m, pos); err != nil {
		return nil, err
	}

	e.logger.Info("buy executed",
		"market", m.ID, "owner", owner, "outcome", outcome.String(),
		"amount", amount.String(), "cost", receipt.Cost.String(),
		"price_a", receipt.PriceA.String(),
	)
	e.emit(api.StreamEvent{Type: "trade", Timestamp: receipt.TradedAt, MarketID: m.ID, Data: api.NewTradeEvent(receipt)})
	return receipt, nil
}

// Sell sells shares owner already holds back to the market.
func (e *Engine) Sell(marketID, owner string, outcome types.Outcome, amount, minProceeds fixed.Value) (*types.TradeReceipt, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	unlock := e.lockMarket(marketID)
	defer unlock()

	m, err := e.loadMarket(marketID)
	if err != nil {
		return nil, err
	}
	pos, err := e.store.LoadPosition(marketID, owner)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, fmt.Errorf("owner %s holds no position: %w", owner, types.ErrInsufficientShares)
	}
	if pos.Owner != owner {
		return nil, fmt.Errorf("position owned by %s: %w", pos.Owner, types.ErrUnauthorized)
	}

	receipt, err := ExecuteSell(m, pos, outcome, amount, minProceeds, e.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := e.persistTrade(m, pos); err != nil {
		return nil, err
	}

	e.logger.Info("sell executed",
		"market", m.ID, "owner", owner, "outcome", outcome.String(),
		"amount", amount.String(), "proceeds", receipt.Cost.String(),
		"price_a", receipt.PriceA.String(),
	)
	e.emit(api.StreamEvent{Type: "trade", Timestamp: receipt.TradedAt, MarketID: m.ID, Data: api.NewTradeEvent(receipt)})
	return receipt, nil
}

// Resolve transitions a market past resolve_at to its winning outcome.
func (e *Engine) Resolve(marketID string) (types.Outcome, error) {
	unlock := e.lockMarket(marketID)
	defer unlock()

	m, err := e.loadMarket(marketID)
	if err != nil {
		return 0, err
	}
	winner, err := ResolveMarket(m, e.clock.Now())
	if err != nil {
		return 0, err
	}
	if err := e.store.SaveMarket(m); err != nil {
		return 0, err
	}

	e.logger.Info("market resolved", "market", m.ID, "winner", winner.String(), "reserve", m.Reserve.String())
	e.emit(api.StreamEvent{Type: "resolution", Timestamp: e.clock.Now(), MarketID: m.ID, Data: api.NewResolutionEvent(m, winner)})
	return winner, nil
}

// Redeem pays out owner's winning shares at 1:1 and voids the losing side.
// An owner with no position (or an already-redeemed one) gets a zero-payout
// receipt, not an error. Once every position in the market has been
// redeemed, the market is marked Settled.
func (e *Engine) Redeem(marketID, owner string) (*types.RedemptionReceipt, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	unlock := e.lockMarket(marketID)
	defer unlock()

	m, err := e.loadMarket(marketID)
	if err != nil {
		return nil, err
	}
	pos, err := e.store.LoadPosition(marketID, owner)
	if err != nil {
		return nil, err
	}
	existed := pos != nil
	if pos == nil {
		pos = market.NewPosition(marketID, owner)
	}

	receipt, err := RedeemPosition(m, pos, e.clock.Now())
	if err != nil {
		return nil, err
	}
	if existed {
		if err := e.persistTrade(m, pos); err != nil {
			return nil, err
		}
	}

	e.logger.Info("position redeemed",
		"market", m.ID, "owner", owner,
		"payout", receipt.Payout.String(), "voided", receipt.Voided.String(),
	)
	e.emit(api.StreamEvent{Type: "redemption", Timestamp: receipt.RedeemedAt, MarketID: m.ID, Data: api.NewRedemptionEvent(receipt)})

	if err := e.maybeSettle(m); err != nil {
		return nil, err
	}
	return receipt, nil
}

// Quote returns the market with its current instantaneous prices.
func (e *Engine) Quote(marketID string) (*market.Market, [2]fixed.Value, error) {
	unlock := e.lockMarket(marketID)
	defer unlock()

	var prices [2]fixed.Value
	m, err := e.loadMarket(marketID)
	if err != nil {
		return nil, prices, err
	}
	prices, err = m.Prices()
	if err != nil {
		return nil, prices, err
	}
	return m, prices, nil
}

// GetMarket loads one market record.
func (e *Engine) GetMarket(marketID string) (*market.Market, error) {
	unlock := e.lockMarket(marketID)
	defer unlock()
	return e.loadMarket(marketID)
}

// ListMarkets loads all market records.
func (e *Engine) ListMarkets() ([]*market.Market, error) {
	return e.store.ListMarkets()
}

// maybeSettle marks a resolved market Settled once no position holds
// shares. Observational bookkeeping only.
func (e *Engine) maybeSettle(m *market.Market) error {
	if m.Status != types.StatusResolved {
		return nil
	}
	positions, err := e.store.ListPositions(m.ID)
	if err != nil {
		return err
	}
	for _, p := range positions {
		if !p.IsEmpty() {
			return nil
		}
	}
	if err := MarkSettled(m); err != nil {
		return err
	}
	if err := e.store.SaveMarket(m); err != nil {
		return err
	}
	e.logger.Info("market settled", "market", m.ID, "residual_reserve", m.Reserve.String())
	return nil
}

// persistTrade writes the committed market and position records. The
// market (reserve and quantities) is written first: if the process dies
// between the two writes the books stay solvent and the position write is
// the one that is lost.
func (e *Engine) persistTrade(m *market.Market, pos *market.Position) error {
	if err := e.store.SaveMarket(m); err != nil {
		return err
	}
	return e.store.SavePosition(pos)
}

func (e *Engine) loadMarket(id string) (*market.Market, error) {
	m, err := e.store.LoadMarket(id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("market %s: %w", id, types.ErrMarketNotFound)
	}
	return m, nil
}

// lockMarket serializes operations per market and returns the unlock func.
func (e *Engine) lockMarket(id string) func() {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// emit sends an event to the stream without blocking; a full channel drops
// the event (the stream is observational, trades never wait on it).
func (e *Engine) emit(evt api.StreamEvent) {
	select {
	case e.events <- evt:
	default:
		e.logger.Warn("event channel full, dropping event", "type", evt.Type, "market", evt.MarketID)
	}
}

func checkOwner(owner string) error {
	if owner == "" {
		return fmt.Errorf("missing owner identity: %w", types.ErrUnauthorized)
	}
	if !ownerPattern.MatchString(owner) {
		return fmt.Errorf("owner %q is not a valid identifier: %w", owner, types.ErrInvalidParameter)
	}
	return nil
}
