// Package batch runs a consensus engine over many images.
//
// Each image is processed independently. A failing image produces an
// Outcome carrying its error and the run moves on; the caller decides
// whether failures abort anything. Outcomes are returned in input order
// whatever the number of workers, so output files are stable across runs.
package batch
