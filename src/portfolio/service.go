// Package portfolio builds read-side rollups of an account from one consistent database
// snapshot plus live quotes.
package portfolio

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"demotrader/src/model"
	"demotrader/src/price"
	"demotrader/src/repository"
	"demotrader/src/trading"
	"demotrader/src/utils"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type QuoteSource interface {
	CurrentQuotes(ctx context.Context, symbols []string) (map[string]price.Quote, error)
}

type Service struct {
	db          *gorm.DB
	cfg         Config
	prices      QuoteSource
	loc         *time.Location
	instruments *repository.InstrumentRepository
	positions   *repository.PositionRepository
	trades      *repository.TradeRepository
	users       *repository.GormUserRepository
	now         func() time.Time
	log         *logger.Entry
}

func NewService(db *gorm.DB, cfg Config, prices QuoteSource) (*Service, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("portfolio timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.HistoryPerPage <= 0 {
		cfg.HistoryPerPage = 15
	}
	if cfg.RecentTrades <= 0 {
		cfg.RecentTrades = 10
	}

	return &Service{
		db:          db,
		cfg:         cfg,
		prices:      prices,
		loc:         loc,
		instruments: repository.NewInstrumentRepositoryWithDB(db),
		positions:   repository.NewPositionRepositoryWithDB(db),
		trades:      repository.NewTradeRepositoryWithDB(db),
		users:       repository.NewUserRepositoryWithDB(db),
		now:         time.Now,
		log:         logger.WithField("component", "portfolio.Service"),
	}, nil
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type AccountSummary struct {
	Balance       decimal.Decimal `json:"balance"`
	Equity        decimal.Decimal `json:"equity"`
	Margin        decimal.Decimal `json:"margin"`
	FreeMargin    decimal.Decimal `json:"free_margin"`
	MarginLevel   decimal.Decimal `json:"margin_level"`
	ProfitToday   decimal.Decimal `json:"profit_today"`
	OpenPositions int             `json:"open_positions"`
	Currency      string          `json:"currency"`
}

// OpenPosition is a position valued at the live closing-side quote.
type OpenPosition struct {
	model.Position
	CurrentProfit decimal.Decimal `json:"current_profit"`
	TotalResult   decimal.Decimal `json:"total_result"`
}

type InstrumentSummary struct {
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Positions int             `json:"positions"`
	Volume    decimal.Decimal `json:"volume"`
	Profit    decimal.Decimal `json:"profit"`
}

type Summary struct {
	TotalPositions  int                 `json:"total_positions"`
	TotalVolume     decimal.Decimal     `json:"total_volume"`
	ProfitPositions int                 `json:"profit_positions"`
	LossPositions   int                 `json:"loss_positions"`
	TotalProfit     decimal.Decimal     `json:"total_profit"`
	TotalLoss       decimal.Decimal     `json:"total_loss"`
	Instruments     []InstrumentSummary `json:"instruments"`
}

type HistoryPage struct {
	Data        []model.Trade `json:"data"`
	CurrentPage int           `json:"current_page"`
	PerPage     int           `json:"per_page"`
	Total       int64         `json:"total"`
	LastPage    int           `json:"last_page"`
}

type Dashboard struct {
	AccountSummary     AccountSummary     `json:"account_summary"`
	Positions          []OpenPosition     `json:"positions"`
	RecentTrades       []model.Trade      `json:"recent_trades"`
	PopularInstruments []model.Instrument `json:"popular_instruments"`
}

// state is everything read in one transaction, valued afterwards.
type state struct {
	user        *model.User
	positions   []model.Position
	closedToday decimal.Decimal
	recent      []model.Trade
	popular     []model.Instrument
	quotes      map[string]price.Quote
	dayStart    time.Time
}

// startOfDay is local midnight in the configured timezone, as UTC.
func (s *Service) startOfDay() time.Time {
	return utils.StartOfDay(s.now(), s.loc).UTC()
}

// read runs fn in a read-only transaction. Postgres gets REPEATABLE READ so every query sees
// the same snapshot; sqlite transactions are already serialized.
func (s *Service) read(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var opts []*sql.TxOptions
	if s.db.Dialector.Name() == "postgres" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}
	return s.db.WithContext(ctx).Transaction(fn, opts...)
}

func (s *Service) load(ctx context.Context, userID uint, dashboard bool) (*state, error) {
	st := &state{dayStart: s.startOfDay()}

	err := s.read(ctx, func(tx *gorm.DB) error {
		user, err := s.users.WithDB(tx).FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("%w: user %d", trading.ErrNotFound, userID)
		}
		st.user = user

		if st.positions, err = s.positions.WithDB(tx).FindOpenByUser(ctx, userID); err != nil {
			return err
		}
		if err := s.attachInstruments(ctx, tx, st.positions); err != nil {
			return err
		}

		if st.closedToday, err = s.trades.WithDB(tx).SumClosedProfitSince(ctx, userID, st.dayStart); err != nil {
			return err
		}

		if dashboard {
			if st.recent, err = s.trades.WithDB(tx).Recent(ctx, userID, s.cfg.RecentTrades); err != nil {
				return err
			}
			st.popular, err = s.instruments.WithDB(tx).ListActive(ctx, repository.InstrumentFilter{PopularOnly: true})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if st.quotes, err = s.quotesFor(ctx, st.positions); err != nil {
		s.log.WithField("user_id", userID).WithError(err).Error("Failed to quote open positions")
		return nil, err
	}
	return st, nil
}

func (s *Service) attachInstruments(ctx context.Context, tx *gorm.DB, positions []model.Position) error {
	if len(positions) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(positions))
	for _, p := range positions {
		ids = append(ids, p.InstrumentID)
	}
	instruments, err := s.instruments.WithDB(tx).FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range positions {
		positions[i].Instrument = instruments[positions[i].InstrumentID]
	}
	return nil
}

// quotesFor fetches one quote per distinct symbol.
func (s *Service) quotesFor(ctx context.Context, positions []model.Position) (map[string]price.Quote, error) {
	seen := map[string]bool{}
	var symbols []string
	for _, p := range positions {
		if p.Instrument == nil || seen[p.Instrument.Symbol] {
			continue
		}
		seen[p.Instrument.Symbol] = true
		symbols = append(symbols, p.Instrument.Symbol)
	}
	if len(symbols) == 0 {
		return map[string]price.Quote{}, nil
	}
	return s.prices.CurrentQuotes(ctx, symbols)
}

// value prices a position at the live quote; without one the last marked price is used.
func value(p model.Position, quotes map[string]price.Quote) OpenPosition {
	if p.Instrument != nil {
		if q, ok := quotes[p.Instrument.Symbol]; ok {
			p.CurrentPrice = q.ForClose(p.Direction)
		}
	}

	profit := trading.PositionProfit(&p, p.Instrument)
	return OpenPosition{
		Position:      p,
		CurrentProfit: profit,
		TotalResult:   profit.Add(p.Swap).Sub(p.Commission),
	}
}

func (st *state) valued() []OpenPosition {
	out := make([]OpenPosition, 0, len(st.positions))
	for _, p := range st.positions {
		out = append(out, value(p, st.quotes))
	}
	return out
}

func (st *state) summary() AccountSummary {
	equity := st.user.AccountBalance
	margin := decimal.Zero
	profitToday := st.closedToday

	for _, op := range st.valued() {
		equity = equity.Add(op.CurrentProfit)
		if op.Instrument != nil {
			margin = margin.Add(trading.RequiredMargin(op.Instrument, op.Volume, op.OpenPrice))
		}
		if !op.OpenTime.Before(st.dayStart) {
			profitToday = profitToday.Add(op.CurrentProfit)
		}
	}

	reported := margin.Round(2)
	return AccountSummary{
		Balance:       st.user.AccountBalance,
		Equity:        equity,
		Margin:        reported,
		FreeMargin:    equity.Sub(reported),
		MarginLevel:   marginLevel(equity, margin),
		ProfitToday:   profitToday,
		OpenPositions: len(st.positions),
		Currency:      st.user.AccountCurrency,
	}
}

// marginLevel is equity/margin*100, or zero without margin in use.
func marginLevel(equity, margin decimal.Decimal) decimal.Decimal {
	if !margin.IsPositive() {
		return decimal.Zero
	}
	return equity.Div(margin).Mul(decimal.NewFromInt(100)).Round(2)
}

// Snapshot returns the account summary of one consistent read.
func (s *Service) Snapshot(ctx context.Context, userID uint) (*AccountSummary, error) {
	st, err := s.load(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	summary := st.summary()
	return &summary, nil
}

func (s *Service) Equity(ctx context.Context, userID uint) (decimal.Decimal, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return snap.Equity, nil
}

func (s *Service) Margin(ctx context.Context, userID uint) (decimal.Decimal, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return snap.Margin, nil
}

func (s *Service) MarginLevel(ctx context.Context, userID uint) (decimal.Decimal, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return snap.MarginLevel, nil
}

func (s *Service) ProfitToday(ctx context.Context, userID uint) (decimal.Decimal, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return snap.ProfitToday, nil
}

// Summary groups open positions by instrument in first-seen order.
func (s *Service) Summary(ctx context.Context, userID uint) (*Summary, error) {
	st, err := s.load(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	out := &Summary{
		TotalVolume: decimal.Zero,
		TotalProfit: decimal.Zero,
		TotalLoss:   decimal.Zero,
		Instruments: []InstrumentSummary{},
	}
	index := map[string]int{}

	for _, op := range st.valued() {
		out.TotalPositions++
		out.TotalVolume = out.TotalVolume.Add(op.Volume)

		if op.CurrentProfit.IsNegative() {
			out.LossPositions++
			out.TotalLoss = out.TotalLoss.Add(op.CurrentProfit)
		} else {
			out.ProfitPositions++
			out.TotalProfit = out.TotalProfit.Add(op.CurrentProfit)
		}

		if op.Instrument == nil {
			continue
		}
		i, ok := index[op.Instrument.Symbol]
		if !ok {
			i = len(out.Instruments)
			index[op.Instrument.Symbol] = i
			out.Instruments = append(out.Instruments, InstrumentSummary{
				Symbol: op.Instrument.Symbol,
				Name:   op.Instrument.Name,
				Volume: decimal.Zero,
				Profit: decimal.Zero,
			})
		}
		out.Instruments[i].Positions++
		out.Instruments[i].Volume = out.Instruments[i].Volume.Add(op.Volume)
		out.Instruments[i].Profit = out.Instruments[i].Profit.Add(op.CurrentProfit)
	}

	return out, nil
}

// OpenPositions lists open positions with live profit.
func (s *Service) OpenPositions(ctx context.Context, userID uint) ([]OpenPosition, error) {
	st, err := s.load(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	return st.valued(), nil
}

// Position returns one position of the user; open ones are valued live.
func (s *Service) Position(ctx context.Context, userID, positionID uint) (*OpenPosition, error) {
	p, err := s.positions.FindByIDForUser(ctx, userID, positionID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: position %d", trading.ErrNotFound, positionID)
	}
	if p.Instrument, err = s.instruments.FindByID(ctx, p.InstrumentID); err != nil {
		return nil, err
	}

	quotes := map[string]price.Quote{}
	if p.IsOpen() {
		if quotes, err = s.quotesFor(ctx, []model.Position{*p}); err != nil {
			return nil, err
		}
	}

	op := value(*p, quotes)
	if !p.IsOpen() {
		op.CurrentProfit = p.Profit
		op.TotalResult = p.Profit.Add(p.Swap).Sub(p.Commission)
	}
	return &op, nil
}

// History pages through settled trades, newest first. page starts at 1.
func (s *Service) History(ctx context.Context, userID uint, page, perPage int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = s.cfg.HistoryPerPage
	}

	rows, total, err := s.trades.History(ctx, repository.TradeHistoryOptions{
		UserID: userID,
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		return nil, err
	}

	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}

	return &HistoryPage{
		Data:        rows,
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    lastPage,
	}, nil
}

// Dashboard combines the account summary, open positions, recent trades and popular instruments.
func (s *Service) Dashboard(ctx context.Context, userID uint) (*Dashboard, error) {
	st, err := s.load(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		AccountSummary:     st.summary(),
		Positions:          st.valued(),
		RecentTrades:       st.recent,
		PopularInstruments: st.popular,
	}, nil
}
