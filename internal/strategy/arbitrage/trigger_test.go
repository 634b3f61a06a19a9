package arbitrage_test

import (
	"testing"

	"arb_engine/internal/strategy/arbitrage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func rule(gap, amount float64) arbitrage.ThresholdRule {
	return arbitrage.ThresholdRule{
		GapThreshold: decimal.NewFromFloat(gap),
		Amount:       decimal.NewFromFloat(amount),
	}
}

func TestTriggerSelector_Select(t *testing.T) {
	entries := []arbitrage.ThresholdRule{
		rule(0.03, 0.05),
		rule(0.04, 0.1),
		rule(0.05, 0.5),
	}
	exits := []arbitrage.ThresholdRule{
		rule(-0.02, 0.5),
	}
	selector := arbitrage.NewTriggerSelector(entries, exits)

	tests := []struct {
		name           string
		gap            float64
		expectedAction arbitrage.TradeAction
		expectedAmount float64
	}{
		{
			name:           "Gap between first and second threshold -> first entry amount",
			gap:            0.035,
			expectedAction: arbitrage.ActionEnter,
			expectedAmount: 0.05,
		},
		{
			name:           "Gap between second and third threshold -> second entry amount",
			gap:            0.045,
			expectedAction: arbitrage.ActionEnter,
			expectedAmount: 0.1,
		},
		{
			name:           "Gap above all thresholds -> largest entry amount",
			gap:            0.08,
			expectedAction: arbitrage.ActionEnter,
			expectedAmount: 0.5,
		},
		{
			name:           "Gap exactly at threshold does not trigger",
			gap:            0.03,
			expectedAction: arbitrage.ActionNone,
		},
		{
			name:           "Gap below exit threshold -> exit",
			gap:            -0.03,
			expectedAction: arbitrage.ActionExit,
			expectedAmount: 0.5,
		},
		{
			name:           "Gap between exit and entry thresholds -> none",
			gap:            -0.01,
			expectedAction: arbitrage.ActionNone,
		},
		{
			name:           "Zero gap -> none",
			gap:            0,
			expectedAction: arbitrage.ActionNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, amount := selector.Select(decimal.NewFromFloat(tt.gap))
			assert.Equal(t, tt.expectedAction, action)
			if tt.expectedAction != arbitrage.ActionNone {
				assert.True(t, decimal.NewFromFloat(tt.expectedAmount).Equal(amount),
					"expected amount %v, got %s", tt.expectedAmount, amount)
			}
		})
	}
}

func TestTriggerSelector_UnsortedInput(t *testing.T) {
	// Rules given out of order must behave the same after construction
	entries := []arbitrage.ThresholdRule{
		rule(0.05, 0.5),
		rule(0.03, 0.05),
		rule(0.04, 0.1),
	}
	selector := arbitrage.NewTriggerSelector(entries, nil)

	action, amount := selector.Select(decimal.NewFromFloat(0.045))
	assert.Equal(t, arbitrage.ActionEnter, action)
	assert.True(t, decimal.NewFromFloat(0.1).Equal(amount), "got %s", amount)
}

func TestTriggerSelector_ExitOnlyWhenNoEntry(t *testing.T) {
	// An exit threshold above an entry threshold must never shadow the entry
	entries := []arbitrage.ThresholdRule{rule(0.01, 1)}
	exits := []arbitrage.ThresholdRule{rule(0.05, 2)}
	selector := arbitrage.NewTriggerSelector(entries, exits)

	action, amount := selector.Select(decimal.NewFromFloat(0.02))
	assert.Equal(t, arbitrage.ActionEnter, action)
	assert.True(t, decimal.NewFromFloat(1).Equal(amount), "got %s", amount)
}

func TestComputeGap(t *testing.T) {
	tests := []struct {
		name      string
		buyPrice  float64
		sellPrice float64
		expected  float64
		wantErr   bool
	}{
		{name: "Sell double the buy", buyPrice: 25, sellPrice: 50, expected: 1},
		{name: "Equal prices", buyPrice: 50, sellPrice: 50, expected: 0},
		{name: "Inverted market", buyPrice: 50, sellPrice: 49, expected: -0.02},
		{name: "Zero buy price", buyPrice: 0, sellPrice: 50, wantErr: true},
		{name: "Negative buy price", buyPrice: -1, sellPrice: 50, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gap, err := arbitrage.ComputeGap(decimal.NewFromFloat(tt.buyPrice), decimal.NewFromFloat(tt.sellPrice))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.True(t, decimal.NewFromFloat(tt.expected).Equal(gap),
				"expected gap %v, got %s", tt.expected, gap)
		})
	}
}
