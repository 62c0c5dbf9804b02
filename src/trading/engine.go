package trading

import (
	"context"
	"fmt"
	"time"

	"demotrader/src/model"
	"demotrader/src/price"
	"demotrader/src/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// QuoteProvider is the part of the price oracle the engine needs.
type QuoteProvider interface {
	CurrentQuote(ctx context.Context, symbol string) (price.Quote, error)
}

// Engine owns the order and position lifecycle. Every mutation of positions, trades and
// balances goes through it and runs as one transaction under a per-account lock.
type Engine struct {
	db          *gorm.DB
	cfg         Config
	prices      QuoteProvider
	instruments *repository.InstrumentRepository
	positions   *repository.PositionRepository
	trades      *repository.TradeRepository
	users       *repository.GormUserRepository
	locks       *accountLocker
	now         func() time.Time
	log         *logger.Entry
}

func NewEngine(db *gorm.DB, cfg Config, prices QuoteProvider) *Engine {
	return &Engine{
		db:          db,
		cfg:         cfg,
		prices:      prices,
		instruments: repository.NewInstrumentRepositoryWithDB(db),
		positions:   repository.NewPositionRepositoryWithDB(db),
		trades:      repository.NewTradeRepositoryWithDB(db),
		users:       repository.NewUserRepositoryWithDB(db),
		locks:       newAccountLocker(),
		now:         time.Now,
		log:         logger.WithField("component", "trading.Engine"),
	}
}

// WithClock replaces the time source, for tests and replays.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

type OrderRequest struct {
	UserID       uint             `json:"-"`
	InstrumentID uint             `json:"instrument_id"`
	Direction    model.Direction  `json:"direction"`
	OrderType    model.OrderType  `json:"order_type"`
	Volume       decimal.Decimal  `json:"volume"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	StopLoss     *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit   *decimal.Decimal `json:"take_profit,omitempty"`
	Comment      string           `json:"comment,omitempty"`
}

type OrderResult struct {
	Position *model.Position `json:"position,omitempty"`
	Trade    *model.Trade    `json:"trade"`
}

type CloseResult struct {
	Position *model.Position `json:"position"`
	Profit   decimal.Decimal `json:"profit"`
}

// StopLevels carries the optional stop_loss/take_profit update. Nil fields are left alone.
type StopLevels struct {
	StopLoss   *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit *decimal.Decimal `json:"take_profit,omitempty"`
}

func (e *Engine) utcNow() time.Time {
	return e.now().UTC()
}

func (e *Engine) validateShape(req OrderRequest) error {
	if req.UserID == 0 {
		return fmt.Errorf("%w: user is required", ErrInvalidOrder)
	}
	if req.InstrumentID == 0 {
		return fmt.Errorf("%w: instrument is required", ErrInvalidOrder)
	}
	if !req.Direction.Valid() {
		return fmt.Errorf("%w: direction must be buy or sell, got %q", ErrInvalidOrder, req.Direction)
	}
	if !req.OrderType.Valid() {
		return fmt.Errorf("%w: order type must be market, limit or stop, got %q", ErrInvalidOrder, req.OrderType)
	}
	if !req.Volume.IsPositive() {
		return fmt.Errorf("%w: volume must be positive", ErrInvalidOrder)
	}
	for name, level := range map[string]*decimal.Decimal{"stop_loss": req.StopLoss, "take_profit": req.TakeProfit} {
		if level != nil && !level.IsPositive() {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidOrder, name)
		}
	}
	return nil
}

func (e *Engine) checkVolume(inst *model.Instrument, volume decimal.Decimal) error {
	if volume.LessThan(inst.MinLot) || volume.GreaterThan(inst.MaxLot) {
		return fmt.Errorf("%w: %s must be between %s and %s", ErrInvalidVolume, volume, inst.MinLot, inst.MaxLot)
	}
	if e.cfg.EnforceLotStep && inst.LotStep.IsPositive() && !volume.Mod(inst.LotStep).IsZero() {
		return fmt.Errorf("%w: %s is not a multiple of %s", ErrInvalidVolume, volume, inst.LotStep)
	}
	return nil
}

// checkPendingPrice applies the limit/stop placement rules against the current quote.
func checkPendingPrice(orderType model.OrderType, direction model.Direction, requested decimal.Decimal, q price.Quote) error {
	var ok bool
	switch {
	case orderType == model.OrderTypeLimit && direction == model.DirectionBuy:
		ok = requested.LessThan(q.Ask)
	case orderType == model.OrderTypeLimit && direction == model.DirectionSell:
		ok = requested.GreaterThan(q.Bid)
	case orderType == model.OrderTypeStop && direction == model.DirectionBuy:
		ok = requested.GreaterThan(q.Ask)
	case orderType == model.OrderTypeStop && direction == model.DirectionSell:
		ok = requested.LessThan(q.Bid)
	}
	if !ok {
		return fmt.Errorf("%w: %s %s at %s against bid %s / ask %s",
			ErrInvalidOrderPrice, orderType, direction, requested, q.Bid, q.Ask)
	}
	return nil
}

// PlaceOrder opens a market position or rests a pending limit/stop order.
func (e *Engine) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	if err := e.validateShape(req); err != nil {
		return nil, err
	}

	inst, err := e.instruments.FindByID(ctx, req.InstrumentID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, fmt.Errorf("%w: instrument %d", ErrNotFound, req.InstrumentID)
	}

	now := e.utcNow()
	if !inst.IsTradable(now) {
		return nil, fmt.Errorf("%w: %s", ErrNotTradable, inst.Symbol)
	}

	if err := e.checkVolume(inst, req.Volume); err != nil {
		return nil, err
	}

	pending := req.OrderType.IsPending()
	if pending && (req.Price == nil || !req.Price.IsPositive()) {
		return nil, ErrPriceRequired
	}

	quote, err := e.prices.CurrentQuote(ctx, inst.Symbol)
	if err != nil {
		return nil, err
	}

	fill := quote.ForOpen(req.Direction)
	if pending {
		if err := checkPendingPrice(req.OrderType, req.Direction, *req.Price, quote); err != nil {
			return nil, err
		}
		fill = *req.Price
	}

	margin := RequiredMargin(inst, req.Volume, fill)

	log := e.log.WithFields(map[string]interface{}{
		"op":         "PlaceOrder",
		"user_id":    req.UserID,
		"symbol":     inst.Symbol,
		"direction":  req.Direction,
		"order_type": req.OrderType,
		"volume":     req.Volume.String(),
		"price":      fill.String(),
	})

	unlock := e.locks.Lock(req.UserID)
	defer unlock()

	result := &OrderResult{}
	err = e.transact(ctx, "PlaceOrder", func(tx *gorm.DB) error {
		user, err := e.users.WithDB(tx).FindByIDForUpdate(ctx, req.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("%w: user %d", ErrNotFound, req.UserID)
		}
		used, err := e.usedMargin(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if free := user.AccountBalance.Sub(used); free.LessThan(margin) {
			return fmt.Errorf("%w: required margin %s, free %s", ErrInsufficientBalance, margin.StringFixed(2), free.StringFixed(2))
		}

		if pending {
			result.Trade = e.newTrade(req, fill, decimal.Zero, now, model.TradeStatusPending, nil)
			return e.trades.WithDB(tx).Create(ctx, result.Trade)
		}

		commission := Commission(inst, req.Volume, fill, e.cfg.CommissionRate)

		position := &model.Position{
			UserID:       req.UserID,
			InstrumentID: inst.ID,
			Direction:    req.Direction,
			Volume:       req.Volume,
			OpenPrice:    fill,
			CurrentPrice: fill,
			StopLoss:     req.StopLoss,
			TakeProfit:   req.TakeProfit,
			Profit:       decimal.Zero,
			Swap:         decimal.Zero,
			Commission:   commission,
			OpenTime:     now,
			Status:       model.PositionStatusOpen,
			Comment:      req.Comment,
		}
		if err := e.positions.WithDB(tx).Create(ctx, position); err != nil {
			return err
		}

		trade := e.newTrade(req, fill, commission, now, model.TradeStatusOpen, &position.ID)
		if err := e.trades.WithDB(tx).Create(ctx, trade); err != nil {
			return err
		}

		result.Position = position
		result.Trade = trade
		return nil
	})
	if err != nil {
		log.WithError(err).Info("Order rejected")
		return nil, err
	}

	if result.Position != nil {
		result.Position.Instrument = inst
	}
	result.Trade.Instrument = inst

	log.WithField("ticket", result.Trade.Ticket).Info("Order placed")
	return result, nil
}

func (e *Engine) newTrade(
	req OrderRequest,
	openPrice, commission decimal.Decimal,
	now time.Time,
	status string,
	positionID *uint,
) *model.Trade {
	return &model.Trade{
		Ticket:       uuid.NewString(),
		UserID:       req.UserID,
		InstrumentID: req.InstrumentID,
		PositionID:   positionID,
		Direction:    req.Direction,
		OrderType:    req.OrderType,
		Volume:       req.Volume,
		OpenPrice:    openPrice,
		OpenTime:     now,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		Profit:       decimal.Zero,
		Commission:   commission,
		Swap:         decimal.Zero,
		Status:       status,
		Comment:      req.Comment,
	}
}

// ClosePosition settles an open position at the closing-side quote and credits the profit.
func (e *Engine) ClosePosition(ctx context.Context, userID, positionID uint) (*CloseResult, error) {
	position, err := e.positions.FindByIDForUser(ctx, userID, positionID)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, fmt.Errorf("%w: position %d", ErrNotFound, positionID)
	}
	if !position.IsOpen() {
		return nil, fmt.Errorf("%w: position %d", ErrAlreadyClosed, positionID)
	}

	inst, err := e.instruments.FindByID(ctx, position.InstrumentID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, fmt.Errorf("%w: instrument %d", ErrNotFound, position.InstrumentID)
	}

	quote, err := e.prices.CurrentQuote(ctx, inst.Symbol)
	if err != nil {
		return nil, err
	}

	closePrice := quote.ForClose(position.Direction)
	profit := Profit(position.Direction, position.OpenPrice, closePrice, position.Volume, inst)
	now := e.utcNow()

	unlock := e.locks.Lock(userID)
	defer unlock()

	var closed *model.Position
	err = e.transact(ctx, "ClosePosition", func(tx *gorm.DB) error {
		positions := e.positions.WithDB(tx)

		ok, err := positions.CloseIfOpen(ctx, position.ID, closePrice, profit, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: position %d", ErrAlreadyClosed, positionID)
		}

		if _, err := e.trades.WithDB(tx).CloseOpenByPosition(ctx, position.ID, closePrice, profit, now); err != nil {
			return err
		}

		rows, err := e.users.WithDB(tx).AddToBalance(ctx, userID, profit)
		if err != nil {
			return err
		}
		if rows != 1 {
			return fmt.Errorf("%w: account %d was not credited", ErrPersistenceConflict, userID)
		}

		closed, err = positions.FindByIDForUser(ctx, userID, position.ID)
		return err
	})
	if err != nil {
		e.log.WithFields(map[string]interface{}{
			"op":          "ClosePosition",
			"user_id":     userID,
			"position_id": positionID,
		}).WithError(err).Info("Close rejected")
		return nil, err
	}

	closed.Instrument = inst

	e.log.WithFields(map[string]interface{}{
		"op":          "ClosePosition",
		"user_id":     userID,
		"position_id": positionID,
		"close_price": closePrice.String(),
		"profit":      profit.String(),
	}).Info("Position closed")

	return &CloseResult{Position: closed, Profit: profit}, nil
}

// UpdatePosition changes stop_loss and/or take_profit on an open position and its open trades.
func (e *Engine) UpdatePosition(ctx context.Context, userID, positionID uint, levels StopLevels) (*model.Position, error) {
	if levels.StopLoss == nil && levels.TakeProfit == nil {
		return nil, fmt.Errorf("%w: stop_loss or take_profit is required", ErrInvalidOrder)
	}

	fields := map[string]interface{}{}
	if levels.StopLoss != nil {
		if !levels.StopLoss.IsPositive() {
			return nil, fmt.Errorf("%w: stop_loss must be positive", ErrInvalidOrder)
		}
		fields["stop_loss"] = *levels.StopLoss
	}
	if levels.TakeProfit != nil {
		if !levels.TakeProfit.IsPositive() {
			return nil, fmt.Errorf("%w: take_profit must be positive", ErrInvalidOrder)
		}
		fields["take_profit"] = *levels.TakeProfit
	}

	position, err := e.positions.FindByIDForUser(ctx, userID, positionID)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, fmt.Errorf("%w: position %d", ErrNotFound, positionID)
	}
	if !position.IsOpen() {
		return nil, fmt.Errorf("%w: position %d", ErrAlreadyClosed, positionID)
	}

	unlock := e.locks.Lock(userID)
	defer unlock()

	var updated *model.Position
	err = e.transact(ctx, "UpdatePosition", func(tx *gorm.DB) error {
		positions := e.positions.WithDB(tx)

		ok, err := positions.UpdateStopsIfOpen(ctx, position.ID, fields)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: position %d", ErrAlreadyClosed, positionID)
		}

		if err := e.trades.WithDB(tx).UpdateStopsByPosition(ctx, position.ID, fields); err != nil {
			return err
		}

		updated, err = positions.FindByIDForUser(ctx, userID, position.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CancelOrder cancels a resting pending order. No balance is touched.
func (e *Engine) CancelOrder(ctx context.Context, userID, tradeID uint) (*model.Trade, error) {
	trade, err := e.trades.FindByIDForUser(ctx, userID, tradeID)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, tradeID)
	}
	if trade.Status != model.TradeStatusPending {
		return nil, fmt.Errorf("%w: order %d is %s", ErrNotPending, tradeID, trade.Status)
	}

	unlock := e.locks.Lock(userID)
	defer unlock()

	var cancelled *model.Trade
	err = e.transact(ctx, "CancelOrder", func(tx *gorm.DB) error {
		trades := e.trades.WithDB(tx)

		ok, err := trades.CancelIfPending(ctx, trade.ID, e.utcNow())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: order %d", ErrNotPending, tradeID)
		}

		cancelled, err = trades.FindByIDForUser(ctx, userID, trade.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// usedMargin is the margin held by the user's open positions, at their open prices.
func (e *Engine) usedMargin(ctx context.Context, tx *gorm.DB, userID uint) (decimal.Decimal, error) {
	open, err := e.positions.WithDB(tx).FindOpenByUser(ctx, userID)
	if err != nil || len(open) == 0 {
		return decimal.Zero, err
	}

	ids := make([]uint, 0, len(open))
	for _, p := range open {
		ids = append(ids, p.InstrumentID)
	}
	instruments, err := e.instruments.WithDB(tx).FindByIDs(ctx, ids)
	if err != nil {
		return decimal.Zero, err
	}

	used := decimal.Zero
	for _, p := range open {
		if inst, ok := instruments[p.InstrumentID]; ok {
			used = used.Add(RequiredMargin(inst, p.Volume, p.OpenPrice))
		}
	}
	return used, nil
}

// MarkToMarket stores the closing-side price on every open position of the user.
// It returns how many positions were marked.
func (e *Engine) MarkToMarket(ctx context.Context, userID uint) (int, error) {
	open, err := e.positions.FindOpenByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(open) == 0 {
		return 0, nil
	}

	ids := make([]uint, 0, len(open))
	for _, p := range open {
		ids = append(ids, p.InstrumentID)
	}
	instruments, err := e.instruments.FindByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	quotes := make(map[uint]price.Quote, len(instruments))
	marked := 0
	for _, p := range open {
		inst, ok := instruments[p.InstrumentID]
		if !ok {
			continue
		}

		q, ok := quotes[inst.ID]
		if !ok {
			q, err = e.prices.CurrentQuote(ctx, inst.Symbol)
			if err != nil {
				return marked, err
			}
			quotes[inst.ID] = q
		}

		if err := e.positions.MarkPrice(ctx, p.ID, q.ForClose(p.Direction)); err != nil {
			return marked, err
		}
		marked++
	}

	return marked, nil
}

// MarkAll runs MarkToMarket for every account holding open positions.
func (e *Engine) MarkAll(ctx context.Context) (int, error) {
	userIDs, err := e.positions.UserIDsWithOpenPositions(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, id := range userIDs {
		n, err := e.MarkToMarket(ctx, id)
		total += n
		if err != nil {
			return total, fmt.Errorf("mark user %d: %w", id, err)
		}
	}
	return total, nil
}
