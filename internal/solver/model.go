// Package solver defines the solver-neutral MILP contract the LP builder
// emits into and solver adapters consume. No Go MILP library
// appears anywhere in this module's dependency ecosystem, so the bundled
// adapter is an in-repo branch-and-bound over a bounded-variable primal
// simplex relaxation — see DESIGN.md for the rationale.
package solver

import "math"

// RowKind selects a constraint row's bound shape: fixed (fx), ranged
// (ra), lower-only (lo), upper-only (up), or unconstrained (fr).
type RowKind int

const (
	RowFX RowKind = iota // Lo == Up, Ax = Lo
	RowRA                // Lo <= Ax <= Up
	RowLO                // Ax >= Lo
	RowUP                // Ax <= Up
	RowFR                // unconstrained (ignored by the bundled solver)
)

// Row is one sparse constraint row.
type Row struct {
	Coeffs map[int]float64
	Kind   RowKind
	Lo, Up float64
	Name   string // for diagnostics only
}

// Model is the solver-neutral MILP: minimize Obj . x subject to Rows and
// per-variable [VarLo,VarUp] bounds, with Integer[j] marking binary
// columns (this domain only ever needs binary integrality, never general
// integers).
type Model struct {
	NVars   int
	VarLo   []float64
	VarUp   []float64
	Integer []bool
	Rows    []Row
	Obj     []float64 // minimize
}

// NewModel allocates a Model for nvars continuous variables, all
// defaulting to [0, +Inf) and continuous.
func NewModel(nvars int) *Model {
	m := &Model{
		NVars:   nvars,
		VarLo:   make([]float64, nvars),
		VarUp:   make([]float64, nvars),
		Integer: make([]bool, nvars),
		Obj:     make([]float64, nvars),
	}
	for i := range m.VarUp {
		m.VarUp[i] = math.Inf(1)
	}
	return m
}

// SetBinary marks variable idx as a 0/1 integer column.
func (m *Model) SetBinary(idx int) {
	m.Integer[idx] = true
	m.VarLo[idx] = 0
	m.VarUp[idx] = 1
}

// SetBounds sets variable idx's [lo,up] bounds.
func (m *Model) SetBounds(idx int, lo, up float64) {
	m.VarLo[idx] = lo
	m.VarUp[idx] = up
}

// AddFX adds an equality row: Ax = val.
func (m *Model) AddFX(name string, coeffs map[int]float64, val float64) {
	m.Rows = append(m.Rows, Row{Coeffs: coeffs, Kind: RowFX, Lo: val, Up: val, Name: name})
}

// AddRA adds a ranged row: lo <= Ax <= up.
func (m *Model) AddRA(name string, coeffs map[int]float64, lo, up float64) {
	m.Rows = append(m.Rows, Row{Coeffs: coeffs, Kind: RowRA, Lo: lo, Up: up, Name: name})
}

// AddLO adds a lower-bounded row: Ax >= lo.
func (m *Model) AddLO(name string, coeffs map[int]float64, lo float64) {
	m.Rows = append(m.Rows, Row{Coeffs: coeffs, Kind: RowLO, Lo: lo, Up: math.Inf(1), Name: name})
}

// AddUP adds an upper-bounded row: Ax <= up.
func (m *Model) AddUP(name string, coeffs map[int]float64, up float64) {
	m.Rows = append(m.Rows, Row{Coeffs: coeffs, Kind: RowUP, Lo: math.Inf(-1), Up: up, Name: name})
}

// Status is the outcome of a solve attempt.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusIterationLimit
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusIterationLimit:
		return "iteration_limit"
	default:
		return "unknown"
	}
}

// Result is what a SolverAdapter returns.
type Result struct {
	Objective float64
	X         []float64
	Status    Status
	Message   string
}

// Adapter is the single capability every solver backend implements:
// submit a MILP, get back the primal vector and status.
type Adapter interface {
	Solve(m *Model) Result
}
