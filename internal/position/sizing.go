package position

import (
	"errors"
	"math"

	"basescan/internal/liquidity"
)

// DefaultRiskPerTrade is the fraction of the account risked on one setup.
const DefaultRiskPerTrade = 0.02

// DefaultStopPct places the stop this fraction below entry when none is given.
const DefaultStopPct = 0.08

// ErrInvalidStop is returned when the stop is not below the entry.
var ErrInvalidStop = errors.New("stop loss must be below entry price")

// TradeGuide is a sized plan for one breakout entry.
type TradeGuide struct {
	// Entry
	EntryPrice float64 `json:"entry_price"`
	EntryType  string  `json:"entry_type"` // "buy_stop" at resistance, "limit" otherwise

	// Exit points
	StopLoss     float64 `json:"stop_loss"`
	StopLossPct  float64 `json:"stop_loss_pct"`
	RiskPerShare float64 `json:"risk_per_share"`
	Target1      float64 `json:"target_1"` // 1R
	Target1Pct   float64 `json:"target_1_pct"`
	Target2      float64 `json:"target_2"` // 2R
	Target2Pct   float64 `json:"target_2_pct"`
	Target3      float64 `json:"target_3"` // 3R
	Target3Pct   float64 `json:"target_3_pct"`

	// Position sizing
	RiskShares      int      `json:"risk_shares"`   // before the liquidity cap
	PositionSize    int      `json:"position_size"` // Number of shares
	LiquidityCapped bool     `json:"liquidity_capped"`
	MaxLiquidShares *int     `json:"max_liquid_shares"`
	InvestAmount    float64  `json:"invest_amount"`
	RiskAmount      float64  `json:"risk_amount"` // Max loss if stop hit, costs included
	DaysToExit      *float64 `json:"days_to_exit"`

	// Risk metrics
	MaxLossPct   float64 `json:"max_loss_pct"` // % of account at risk
	BreakevenPct float64 `json:"breakeven_pct"`
}

// SuggestEntry buys a stop at base resistance when one is known and the
// latest close is still below it, otherwise a limit at the latest close.
func SuggestEntry(resistance *float64, latestClose float64) (price float64, entryType string) {
	if resistance != nil && *resistance > latestClose {
		return *resistance, "buy_stop"
	}
	return latestClose, "limit"
}

// PositionSizer calculates risk-based position sizes.
type PositionSizer struct {
	AccountBalance float64 // Total account value
	RiskPerTrade   float64 // Max risk per trade (e.g., 0.02 = 2%)
	Commission     float64 // Commission rate per side
	Slippage       float64 // Expected slippage per side
}

// NewPositionSizer creates a new position sizer with defaults
func NewPositionSizer(accountBalance float64) *PositionSizer {
	return &PositionSizer{
		AccountBalance: accountBalance,
		RiskPerTrade:   DefaultRiskPerTrade,
		Commission:     0,
		Slippage:       0.001, // 0.1% estimated
	}
}

// CalculateGuide sizes a position between entryPrice and stopLossPrice.
// When limit is non-nil the share count is capped at its MaxShares and
// days-to-exit is reported against its ADV.
func (p *PositionSizer) CalculateGuide(entryPrice, stopLossPrice float64, limit *liquidity.MaxPurchaseResult) (*TradeGuide, error) {
	riskPerShare := entryPrice - stopLossPrice
	if entryPrice <= 0 || riskPerShare <= 0 {
		return nil, ErrInvalidStop
	}

	guide := &TradeGuide{
		EntryPrice:   entryPrice,
		EntryType:    "limit",
		StopLoss:     stopLossPrice,
		StopLossPct:  round2(riskPerShare / entryPrice * 100),
		RiskPerShare: round2(riskPerShare),
	}

	// Targets based on R multiples
	guide.Target1 = round2(entryPrice + riskPerShare*1.0)
	guide.Target2 = round2(entryPrice + riskPerShare*2.0)
	guide.Target3 = round2(entryPrice + riskPerShare*3.0)
	guide.Target1Pct = round2(riskPerShare / entryPrice * 100)
	guide.Target2Pct = round2(2 * riskPerShare / entryPrice * 100)
	guide.Target3Pct = round2(3 * riskPerShare / entryPrice * 100)

	maxRiskAmount := p.AccountBalance * p.RiskPerTrade
	guide.RiskShares = int(math.Floor(maxRiskAmount / riskPerShare))
	if guide.RiskShares < 0 {
		guide.RiskShares = 0
	}
	guide.PositionSize = guide.RiskShares

	if limit != nil {
		maxShares := int(math.Floor(limit.MaxShares))
		guide.MaxLiquidShares = &maxShares
		if guide.PositionSize > maxShares {
			guide.PositionSize = maxShares
			guide.LiquidityCapped = true
		}
		if days, ok := liquidity.DaysToLiquidate(float64(guide.PositionSize), limit.ADV); ok {
			days = round2(days)
			guide.DaysToExit = &days
		}
	}

	guide.InvestAmount = round2(float64(guide.PositionSize) * entryPrice)
	risk := float64(guide.PositionSize)*riskPerShare + p.calculateTotalCosts(guide.InvestAmount)
	guide.RiskAmount = round2(risk)
	if p.AccountBalance > 0 {
		guide.MaxLossPct = round2(risk / p.AccountBalance * 100)
	}

	// Win rate needed to break even at the 2R target.
	guide.BreakevenPct = round2(1.0 / (1 + 2.0) * 100)

	return guide, nil
}

// calculateTotalCosts estimates round-trip trading costs
func (p *PositionSizer) calculateTotalCosts(investAmount float64) float64 {
	return investAmount * (p.Commission + p.Slippage) * 2
}

// RiskAssessment provides risk level assessment
type RiskAssessment struct {
	Level       string `json:"level"` // "LOW", "MEDIUM", "HIGH", "EXTREME"
	Score       int    `json:"score"` // 0-100
	Description string `json:"description"`
}

// AssessRisk grades a sized plan by stop width, account exposure and exit
// liquidity.
func AssessRisk(guide *TradeGuide) *RiskAssessment {
	score := 0

	// Factor 1: Stop loss distance
	switch {
	case guide.StopLossPct < 1.0:
		score += 30 // Very tight stop, likely noise
	case guide.StopLossPct < 2.0:
		score += 15
	case guide.StopLossPct > 10.0:
		score += 30 // Wider than a base breakout should need
	case guide.StopLossPct > 8.0:
		score += 15
	}

	// Factor 2: Portfolio risk
	if guide.MaxLossPct > 2.5 {
		score += 30
	} else if guide.MaxLossPct > 1.5 {
		score += 15
	}

	// Factor 3: Exit liquidity
	switch {
	case guide.MaxLiquidShares != nil && *guide.MaxLiquidShares == 0:
		score += 40
	case guide.DaysToExit != nil && *guide.DaysToExit > 5:
		score += 40
	case guide.DaysToExit != nil && *guide.DaysToExit > 2:
		score += 20
	}

	assessment := &RiskAssessment{Score: score}

	switch {
	case score >= 70:
		assessment.Level = "EXTREME"
		assessment.Description = "Very high risk - consider skipping this trade"
	case score >= 50:
		assessment.Level = "HIGH"
		assessment.Description = "Elevated risk - reduce position size"
	case score >= 30:
		assessment.Level = "MEDIUM"
		assessment.Description = "Moderate risk - proceed with caution"
	default:
		assessment.Level = "LOW"
		assessment.Description = "Acceptable risk - trade within plan"
	}

	return assessment
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
