package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CaseStatus is the outcome of a solve call.
type CaseStatus int

const (
	CaseSuccessful CaseStatus = iota
	CaseUnsuccessful                 // infeasible/unbounded; result arrays not materialized
	CasePartial                      // SC loop hit max iterations without converging
	CaseTimedOut                     // best-feasible result returned under a time cap
)

func (s CaseStatus) String() string {
	switch s {
	case CaseSuccessful:
		return "successful"
	case CaseUnsuccessful:
		return "unsuccessful"
	case CasePartial:
		return "partial"
	case CaseTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Provenance records how a SolvedPlan came to be, for persistence by callers.
type Provenance struct {
	RunID        string
	Timestamp    time.Time
	CaseName     string
	SolverMessage string
	Iterations   int
}

// SolvedPlan is the read-only snapshot produced by a successful (or
// partial/timed-out) solve. It never aliases the input Plan's slices.
type SolvedPlan struct {
	Status     CaseStatus
	Provenance Provenance
	Warning    string

	ObjectiveValue decimal.Decimal

	// Balance[i][j] is the year-by-year balance series (length N_n+1; the
	// last entry is the terminal estate).
	Balance [][NumAccountTypes][]decimal.Decimal

	Deposits     [][]decimal.Decimal // [i][n]
	StdDedUsed   []decimal.Decimal   // [n]
	BracketFill  [NumTaxBrackets][]decimal.Decimal // [t][n]
	NetSpending  []decimal.Decimal   // g_n
	MedicareCost []decimal.Decimal   // m_n
	Surplus      []decimal.Decimal   // s_n
	Withdrawals  [][NumAccountTypes][]decimal.Decimal // [i][j][n]
	RothConversions [][]decimal.Decimal                // [i][n]

	OrdinaryTax   []decimal.Decimal // T_n
	LTCGTax       []decimal.Decimal // U_n
	NIIT          []decimal.Decimal // J_n
	DividendsGains []decimal.Decimal // Q_n
	MAGI          []decimal.Decimal

	PartialEstate decimal.Decimal // estate passing to non-spousal heirs at n_d, when applicable

	// Basis is g_0/xi_0, reported for ObjectiveMaxSpending.
	Basis decimal.Decimal
	// Bequest is the nominal-adjusted terminal estate, reported for ObjectiveMaxBequest.
	Bequest decimal.Decimal
}

// SweepRow is one scenario's outcome in a HistoricalSweep/MCSweep.
type SweepRow struct {
	PartialBequest decimal.Decimal
	Objective      decimal.Decimal
}

// SweepSummary aggregates a completed sweep's rows.
type SweepSummary struct {
	Rows        []SweepRow
	NumRequested int
	NumInfeasible int
	SuccessRate decimal.Decimal
	MeanObjective decimal.Decimal
	MedianObjective decimal.Decimal
	MinObjective  decimal.Decimal
	MaxObjective  decimal.Decimal
}
