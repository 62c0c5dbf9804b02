package trading

import (
	"fmt"
	"testing"

	"demotrader/src/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func eurusd() *model.Instrument {
	return &model.Instrument{
		Symbol:         "EURUSD",
		Point:          decimal.RequireFromString("0.00001"),
		PipValue:       decimal.RequireFromString("10"),
		ContractSize:   decimal.RequireFromString("100000"),
		MarginRequired: decimal.RequireFromString("3.33"),
	}
}

func TestProfit(t *testing.T) {
	inst := eurusd()
	d := decimal.RequireFromString

	tests := []struct {
		direction model.Direction
		open      string
		current   string
		volume    string
		want      string
	}{
		{model.DirectionBuy, "1.10000", "1.10100", "0.10", "100"},
		{model.DirectionBuy, "1.10000", "1.09900", "0.10", "-100"},
		{model.DirectionSell, "1.10000", "1.09900", "0.10", "100"},
		{model.DirectionSell, "1.10000", "1.10100", "1.00", "-1000"},
		{model.DirectionBuy, "1.10000", "1.10000", "5.00", "0"},
		{model.DirectionBuy, "1.10000", "1.10001", "0.013", "0.13"},
		{model.DirectionBuy, "1.10000", "1.10001", "0.0125", "0.13"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s_%s_%s", tt.direction, tt.open, tt.current, tt.volume), func(t *testing.T) {
			got := Profit(tt.direction, d(tt.open), d(tt.current), d(tt.volume), inst)
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}

	assert.True(t, Profit(model.DirectionBuy, d("1"), d("2"), d("1"), nil).IsZero())
}

func TestMarginAndCommission(t *testing.T) {
	inst := eurusd()
	d := decimal.RequireFromString

	margin := RequiredMargin(inst, d("0.10"), d("1.10020"))
	assert.True(t, margin.Equal(d("366.3666")), margin.String())

	commission := Commission(inst, d("0.10"), d("1.10020"), d("0.001"))
	assert.True(t, commission.Equal(d("11")), commission.String())

	assert.True(t, ContractValue(inst, d("2"), d("1.5")).Equal(d("300000")))
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryValidation, CategoryOf(fmt.Errorf("%w: volume", ErrInvalidOrder)))
	assert.Equal(t, CategoryValidation, CategoryOf(ErrPriceRequired))
	assert.Equal(t, CategoryDomainRule, CategoryOf(fmt.Errorf("%w: x", ErrInsufficientBalance)))
	assert.Equal(t, CategoryDomainRule, CategoryOf(ErrAlreadyClosed))
	assert.Equal(t, CategoryNotFound, CategoryOf(fmt.Errorf("%w: position 4", ErrNotFound)))
	assert.Equal(t, CategoryConflict, CategoryOf(ErrPersistenceConflict))
	assert.Equal(t, CategoryInternal, CategoryOf(fmt.Errorf("boom")))
}
