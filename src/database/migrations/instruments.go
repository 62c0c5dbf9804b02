package migrations

import (
	_ "embed"
	"fmt"

	"demotrader/src/model"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed instruments.yaml
var instrumentCatalogYAML []byte

type instrumentCatalog struct {
	Instruments []instrumentSeed `yaml:"instruments"`
}

type instrumentSeed struct {
	Name           string               `yaml:"name"`
	Symbol         string               `yaml:"symbol"`
	Type           model.InstrumentType `yaml:"type"`
	Digits         int                  `yaml:"digits"`
	Point          decimal.Decimal      `yaml:"point"`
	PipValue       decimal.Decimal      `yaml:"pip_value"`
	ContractSize   decimal.Decimal      `yaml:"contract_size"`
	MarginRequired decimal.Decimal      `yaml:"margin_required"`
	Description    string               `yaml:"description"`
	Currency       string               `yaml:"currency"`
	QuoteCurrency  string               `yaml:"quote_currency"`
	TradingHours   model.TradingHours   `yaml:"trading_hours"`
	MinLot         decimal.Decimal      `yaml:"min_lot"`
	MaxLot         decimal.Decimal      `yaml:"max_lot"`
	LotStep        decimal.Decimal      `yaml:"lot_step"`
	SwapLong       decimal.Decimal      `yaml:"swap_long"`
	SwapShort      decimal.Decimal      `yaml:"swap_short"`
	IsPopular      bool                 `yaml:"is_popular"`
	IsActive       bool                 `yaml:"is_active"`
}

func (s instrumentSeed) toModel() model.Instrument {
	return model.Instrument{
		Name:           s.Name,
		Symbol:         s.Symbol,
		Type:           s.Type,
		Digits:         s.Digits,
		Point:          s.Point,
		PipValue:       s.PipValue,
		ContractSize:   s.ContractSize,
		MarginRequired: s.MarginRequired,
		Description:    s.Description,
		Currency:       s.Currency,
		QuoteCurrency:  s.QuoteCurrency,
		TradingHours:   s.TradingHours,
		MinLot:         s.MinLot,
		MaxLot:         s.MaxLot,
		LotStep:        s.LotStep,
		SwapLong:       s.SwapLong,
		SwapShort:      s.SwapShort,
		IsPopular:      s.IsPopular,
		IsActive:       s.IsActive,
	}
}

// LoadInstrumentCatalog parses the embedded seed catalog.
func LoadInstrumentCatalog() ([]model.Instrument, error) {
	var catalog instrumentCatalog
	if err := yaml.Unmarshal(instrumentCatalogYAML, &catalog); err != nil {
		return nil, fmt.Errorf("parse instrument catalog: %w", err)
	}

	out := make([]model.Instrument, 0, len(catalog.Instruments))
	for _, seed := range catalog.Instruments {
		if seed.Symbol == "" {
			return nil, fmt.Errorf("instrument catalog: entry %q has no symbol", seed.Name)
		}
		out = append(out, seed.toModel())
	}
	return out, nil
}

// seedInstruments inserts the catalog, leaving rows an admin already created untouched.
func seedInstruments(db *gorm.DB) error {
	instruments, err := LoadInstrumentCatalog()
	if err != nil {
		return err
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoNothing: true,
	}).Create(&instruments).Error
}
