package backtest

import (
	"fmt"

	"github.com/shopspring/decimal"

	"blockhouse/internal/domain"
)

// Report holds the summary metrics produced by one simulation run.
type Report struct {
	InitialInvestment  decimal.Decimal `json:"initial_investment"`
	FinalValue         decimal.Decimal `json:"final_value"`
	TotalReturnPercent decimal.Decimal `json:"total_return"`
	NumberOfTrades     int             `json:"number_of_trades"`
	MaxDrawdownPercent decimal.Decimal `json:"max_drawdown"`
}

// InvalidParameterError reports a simulation parameter that violates the
// engine's contract.
type InvalidParameterError struct {
	Param  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("backtest: invalid %s: %s", e.Param, e.Reason)
}

// Run replays the series through a long-only moving-average crossover
// strategy and returns the resulting metrics.
//
// The position is Flat (no shares) or Long (shares held). While Flat, a close
// strictly below the buy-window average buys the maximum whole number of
// shares the cash affords; while Long, a close strictly above the sell-window
// average sells the entire holding. A close exactly equal to either average
// triggers nothing. Simulation starts at index max(buyWindow, sellWindow),
// the first index where both averages are guaranteed defined; a series too
// short to reach it yields a zero-trade, zero-return report.
func Run(series domain.Series, initialInvestment decimal.Decimal, buyWindow, sellWindow int) (Report, error) {
	if buyWindow <= 0 {
		return Report{}, &InvalidParameterError{Param: "buy window", Reason: "must be positive"}
	}
	if sellWindow <= 0 {
		return Report{}, &InvalidParameterError{Param: "sell window", Reason: "must be positive"}
	}
	if !initialInvestment.IsPositive() {
		return Report{}, &InvalidParameterError{Param: "initial investment", Reason: "must be positive"}
	}

	closes := series.Closes()
	buyMA := MovingAverage(closes, buyWindow)
	sellMA := MovingAverage(closes, sellWindow)

	var (
		cash        = initialInvestment
		shares      int64
		trades      int
		peak        = initialInvestment
		maxDrawdown decimal.Decimal
	)

	start := buyWindow
	if sellWindow > start {
		start = sellWindow
	}

	for i := start; i < len(closes); i++ {
		price := closes[i]

		if shares == 0 && price.LessThan(buyMA[i]) {
			// Flat -> Long: buy as many whole shares as cash affords.
			qty := cash.Div(price).Floor().IntPart()
			if qty > 0 {
				shares = qty
				cash = cash.Sub(price.Mul(decimal.NewFromInt(qty)))
				trades++
			}
		} else if shares > 0 && price.GreaterThan(sellMA[i]) {
			// Long -> Flat: liquidate the entire holding.
			cash = cash.Add(price.Mul(decimal.NewFromInt(shares)))
			shares = 0
			trades++
		}

		value := cash.Add(price.Mul(decimal.NewFromInt(shares)))
		if value.GreaterThan(peak) {
			peak = value
		}
		if drawdown := peak.Sub(value).Div(peak); drawdown.GreaterThan(maxDrawdown) {
			maxDrawdown = drawdown
		}
	}

	finalValue := cash
	if len(closes) > 0 {
		finalValue = cash.Add(closes[len(closes)-1].Mul(decimal.NewFromInt(shares)))
	}

	hundred := decimal.NewFromInt(100)
	return Report{
		InitialInvestment:  initialInvestment,
		FinalValue:         finalValue,
		TotalReturnPercent: finalValue.Sub(initialInvestment).Div(initialInvestment).Mul(hundred),
		NumberOfTrades:     trades,
		MaxDrawdownPercent: maxDrawdown.Mul(hundred),
	}, nil
}
