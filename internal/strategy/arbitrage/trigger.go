package arbitrage

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TradeAction represents a decision made by the trigger selector
type TradeAction int

const (
	ActionNone TradeAction = iota
	ActionEnter
	ActionExit
)

func (a TradeAction) String() string {
	switch a {
	case ActionEnter:
		return "enter"
	case ActionExit:
		return "exit"
	default:
		return "none"
	}
}

// ThresholdRule pairs a gap threshold with the trade amount it unlocks
type ThresholdRule struct {
	GapThreshold decimal.Decimal
	Amount       decimal.Decimal
}

// TriggerSelector resolves a gap against the ordered entry and exit tables.
// Entry rules are held ascending by threshold, exit rules descending;
// configuration order is preserved among equal thresholds.
type TriggerSelector struct {
	entries []ThresholdRule
	exits   []ThresholdRule
}

// NewTriggerSelector copies and orders the rule tables
func NewTriggerSelector(entries, exits []ThresholdRule) *TriggerSelector {
	e := make([]ThresholdRule, len(entries))
	copy(e, entries)
	sort.SliceStable(e, func(i, j int) bool {
		return e[i].GapThreshold.LessThan(e[j].GapThreshold)
	})

	x := make([]ThresholdRule, len(exits))
	copy(x, exits)
	sort.SliceStable(x, func(i, j int) bool {
		return x[i].GapThreshold.GreaterThan(x[j].GapThreshold)
	})

	return &TriggerSelector{entries: e, exits: x}
}

// Select returns the action triggered by the gap and the associated amount.
// Among entry rules the largest threshold still exceeded wins. Exit rules are
// consulted only when no entry rule fires; there the most negative threshold
// still undercut wins.
func (t *TriggerSelector) Select(gap decimal.Decimal) (TradeAction, decimal.Decimal) {
	action := ActionNone
	amount := decimal.Zero

	for _, rule := range t.entries {
		if gap.GreaterThan(rule.GapThreshold) {
			action = ActionEnter
			amount = rule.Amount
		}
	}
	if action != ActionNone {
		return action, amount
	}

	for _, rule := range t.exits {
		if gap.LessThan(rule.GapThreshold) {
			action = ActionExit
			amount = rule.Amount
		}
	}
	return action, amount
}
