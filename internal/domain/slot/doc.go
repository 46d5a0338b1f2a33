// Package slot models collection windows and the capacity ledger keyed by
// (municipality, date, window).
//
// A cell is the unit of capacity: every booking occupies exactly one cell from
// creation until its reservation is released. Ledger implementations must make
// Reserve atomic per cell so concurrent callers can never push a cell past its
// ceiling.
package slot
