// internal/snapshot/decode.go
package snapshot

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Wire shapes use pointers so that a missing field is distinguishable from a zero value.
// Unknown fields are ignored: the counterpart may add fields without breaking the contract.

type statusWire struct {
	AsOf             *string  `json:"as_of_utc"`
	Version          *string  `json:"version"`
	Mode             *string  `json:"mode"`
	LoopState        *string  `json:"loop_state"`
	LastTick         *string  `json:"last_tick_utc"`
	DataFreshnessSec *float64 `json:"data_freshness_sec"`
}

type positionWire struct {
	Symbol        *string          `json:"symbol"`
	Qty           *decimal.Decimal `json:"qty"`
	AvgPrice      *decimal.Decimal `json:"avg_price"`
	UnrealizedPnL *decimal.Decimal `json:"unrealized_pnl"`
	OpenedAt      *string          `json:"opened_utc"`
}

type positionsWire struct {
	AsOf      *string         `json:"as_of_utc"`
	Positions *[]positionWire `json:"positions"`
}

type orderWire struct {
	ID     *string          `json:"id"`
	Symbol *string          `json:"symbol"`
	Side   *string          `json:"side"`
	Qty    *decimal.Decimal `json:"qty"`
	Type   *string          `json:"type"`
	Status *string          `json:"status"`
}

type ordersWire struct {
	AsOf   *string      `json:"as_of_utc"`
	Orders *[]orderWire `json:"orders"`
}

type riskWire struct {
	AsOf                   *string          `json:"as_of_utc"`
	RiskState              *string          `json:"risk_state"`
	ReservePct             *decimal.Decimal `json:"reserve_pct"`
	MaxConcurrentPositions *int             `json:"max_concurrent_positions"`
	KillSwitch             *bool            `json:"kill_switch"`
	Notes                  *string          `json:"notes"`
}

type performanceWire struct {
	AsOf     *string          `json:"as_of_utc"`
	Equity   *decimal.Decimal `json:"equity"`
	DayPnL   *decimal.Decimal `json:"day_pnl"`
	TotalPnL *decimal.Decimal `json:"total_pnl"`
}

// ------------------------------------------------------------
// DECODERS
// ------------------------------------------------------------

// DecodeStatus parses and validates status.json.
func DecodeStatus(b []byte) (Status, error) {
	var w statusWire
	if err := unmarshal(StatusFile, b, &w); err != nil {
		return Status{}, err
	}

	v := validator{artifact: StatusFile}
	out := Status{
		AsOf:      v.time("as_of_utc", w.AsOf),
		Version:   v.str("version", w.Version),
		Mode:      TradingMode(v.enum("mode", w.Mode, string(TradingPaper), string(TradingLive), string(TradingDryRun))),
		LoopState: LoopState(v.enum("loop_state", w.LoopState, string(LoopOK), string(LoopDegraded), string(LoopHalted))),
		LastTick:  v.time("last_tick_utc", w.LastTick),
	}
	if w.DataFreshnessSec == nil {
		v.missing("data_freshness_sec")
	} else if *w.DataFreshnessSec < 0 {
		v.fail("data_freshness_sec", "must be >= 0")
	} else {
		out.DataFreshnessSec = *w.DataFreshnessSec
	}

	if err := v.err(); err != nil {
		return Status{}, err
	}
	return out, nil
}

// DecodePositions parses and validates positions.json.
func DecodePositions(b []byte) (Positions, error) {
	var w positionsWire
	if err := unmarshal(PositionsFile, b, &w); err != nil {
		return Positions{}, err
	}

	v := validator{artifact: PositionsFile}
	out := Positions{AsOf: v.time("as_of_utc", w.AsOf)}

	if w.Positions == nil {
		v.missing("positions")
	} else {
		out.Positions = make([]Position, 0, len(*w.Positions))
		for i, p := range *w.Positions {
			f := func(name string) string { return fmt.Sprintf("positions[%d].%s", i, name) }
			pos := Position{
				Symbol:        v.str(f("symbol"), p.Symbol),
				Quantity:      v.dec(f("qty"), p.Qty),
				AvgPrice:      v.dec(f("avg_price"), p.AvgPrice),
				UnrealizedPnL: p.UnrealizedPnL,
			}
			if p.OpenedAt != nil {
				t := v.time(f("opened_utc"), p.OpenedAt)
				pos.OpenedAt = &t
			}
			out.Positions = append(out.Positions, pos)
		}
	}

	if err := v.err(); err != nil {
		return Positions{}, err
	}
	return out, nil
}

// DecodeOrders parses and validates orders.json.
func DecodeOrders(b []byte) (Orders, error) {
	var w ordersWire
	if err := unmarshal(OrdersFile, b, &w); err != nil {
		return Orders{}, err
	}

	v := validator{artifact: OrdersFile}
	out := Orders{AsOf: v.time("as_of_utc", w.AsOf)}

	if w.Orders == nil {
		v.missing("orders")
	} else {
		out.Orders = make([]OpenOrder, 0, len(*w.Orders))
		for i, o := range *w.Orders {
			f := func(name string) string { return fmt.Sprintf("orders[%d].%s", i, name) }
			out.Orders = append(out.Orders, OpenOrder{
				ID:       v.str(f("id"), o.ID),
				Symbol:   v.str(f("symbol"), o.Symbol),
				Side:     Side(v.enum(f("side"), o.Side, string(SideBuy), string(SideSell))),
				Quantity: v.dec(f("qty"), o.Qty),
				Type:     v.str(f("type"), o.Type),
				Status:   v.str(f("status"), o.Status),
			})
		}
	}

	if err := v.err(); err != nil {
		return Orders{}, err
	}
	return out, nil
}

// DecodeRisk parses and validates risk.json.
func DecodeRisk(b []byte) (Risk, error) {
	var w riskWire
	if err := unmarshal(RiskFile, b, &w); err != nil {
		return Risk{}, err
	}

	v := validator{artifact: RiskFile}
	out := Risk{
		AsOf:       v.time("as_of_utc", w.AsOf),
		Level:      RiskLevel(v.enum("risk_state", w.RiskState, string(RiskGreen), string(RiskYellow), string(RiskRed))),
		ReservePct: v.dec("reserve_pct", w.ReservePct),
		Notes:      w.Notes,
	}
	if w.MaxConcurrentPositions == nil {
		v.missing("max_concurrent_positions")
	} else if *w.MaxConcurrentPositions < 0 {
		v.fail("max_concurrent_positions", "must be >= 0")
	} else {
		out.MaxConcurrentPositions = *w.MaxConcurrentPositions
	}
	if w.KillSwitch == nil {
		v.missing("kill_switch")
	} else {
		out.KillSwitch = *w.KillSwitch
	}

	if err := v.err(); err != nil {
		return Risk{}, err
	}
	return out, nil
}

// DecodePerformance parses and validates performance.json.
func DecodePerformance(b []byte) (Performance, error) {
	var w performanceWire
	if err := unmarshal(PerformanceFile, b, &w); err != nil {
		return Performance{}, err
	}

	v := validator{artifact: PerformanceFile}
	out := Performance{
		AsOf:     v.time("as_of_utc", w.AsOf),
		Equity:   v.dec("equity", w.Equity),
		DayPnL:   v.dec("day_pnl", w.DayPnL),
		TotalPnL: w.TotalPnL,
	}

	if err := v.err(); err != nil {
		return Performance{}, err
	}
	return out, nil
}

// ------------------------------------------------------------
// HELPERS
// ------------------------------------------------------------

func unmarshal(artifact string, b []byte, dst any) error {
	trimmed := strings.TrimSpace(string(b))
	if !strings.HasPrefix(trimmed, "{") {
		return fmt.Errorf("%w: %s: top-level value must be a JSON object", ErrInvalid, artifact)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, artifact, err)
	}
	return nil
}

// validator collects field problems for one artifact.
// Accessors return zero values on failure; the record is discarded if any problem exists.
type validator struct {
	artifact string
	problems []string
}

func (v *validator) missing(field string) {
	v.problems = append(v.problems, fmt.Sprintf("missing required field %q", field))
}

func (v *validator) fail(field, msg string) {
	v.problems = append(v.problems, fmt.Sprintf("field %q %s", field, msg))
}

func (v *validator) str(field string, s *string) string {
	if s == nil {
		v.missing(field)
		return ""
	}
	if strings.TrimSpace(*s) == "" {
		v.fail(field, "must not be empty")
		return ""
	}
	return *s
}

func (v *validator) enum(field string, s *string, allowed ...string) string {
	if s == nil {
		v.missing(field)
		return ""
	}
	for _, a := range allowed {
		if *s == a {
			return a
		}
	}
	v.fail(field, fmt.Sprintf("has unsupported value %q (want one of %s)", *s, strings.Join(allowed, "|")))
	return ""
}

func (v *validator) time(field string, s *string) time.Time {
	if s == nil {
		v.missing(field)
		return time.Time{}
	}
	t, err := ParseTime(*s)
	if err != nil {
		v.fail(field, fmt.Sprintf("is not an ISO-8601 timestamp: %v", err))
		return time.Time{}
	}
	return t
}

func (v *validator) dec(field string, d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		v.missing(field)
		return decimal.Decimal{}
	}
	return *d
}

func (v *validator) err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s: %s", ErrInvalid, v.artifact, strings.Join(v.problems, "; "))
}

// ParseTime parses an ISO-8601 timestamp and returns it in UTC.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatTime renders t as an ISO-8601 UTC timestamp.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
