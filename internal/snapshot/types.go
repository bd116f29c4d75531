// internal/snapshot/types.go
package snapshot

import (
	"time"

	"github.com/shopspring/decimal"
)

// Records in this file are fully validated. A record is never partially filled:
// optional fields are pointers and are nil when the counterpart omitted them.

// ---- ENUMS ----

type TradingMode string

const (
	TradingPaper  TradingMode = "paper"
	TradingLive   TradingMode = "live"
	TradingDryRun TradingMode = "dry-run"
)

type LoopState string

const (
	LoopOK       LoopState = "ok"
	LoopDegraded LoopState = "degraded"
	LoopHalted   LoopState = "halted"
)

type RiskLevel string

const (
	RiskGreen  RiskLevel = "green"
	RiskYellow RiskLevel = "yellow"
	RiskRed    RiskLevel = "red"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ---- STATUS ----

type Status struct {
	AsOf             time.Time
	Version          string
	Mode             TradingMode
	LoopState        LoopState
	LastTick         time.Time
	DataFreshnessSec float64
}

// ---- POSITIONS ----

type Position struct {
	Symbol        string
	Quantity      decimal.Decimal
	AvgPrice      decimal.Decimal
	UnrealizedPnL *decimal.Decimal
	OpenedAt      *time.Time
}

type Positions struct {
	AsOf      time.Time
	Positions []Position
}

// ---- ORDERS ----

type OpenOrder struct {
	ID       string
	Symbol   string
	Side     Side
	Quantity decimal.Decimal
	Type     string
	Status   string
}

type Orders struct {
	AsOf   time.Time
	Orders []OpenOrder
}

// ---- RISK ----

type Risk struct {
	AsOf                   time.Time
	Level                  RiskLevel
	ReservePct             decimal.Decimal
	MaxConcurrentPositions int
	KillSwitch             bool
	Notes                  *string
}

// ---- PERFORMANCE ----

type Performance struct {
	AsOf     time.Time
	Equity   decimal.Decimal
	DayPnL   decimal.Decimal
	TotalPnL *decimal.Decimal
}
