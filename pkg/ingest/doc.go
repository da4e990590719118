// Package ingest loads and validates the raw inputs of a run: the event log
// (a JSON array) and the mentor attribute export (CSV). It also keeps the
// append-only raw tables of the warehouse, so later runs can rebuild facts
// without re-reading the files.
//
// Structural problems are *errors.DataIntegrityError values and halt the run.
// Data-quality problems that do not block reconciliation, such as duplicate
// event IDs or unknown event types, are reported as warnings.
package ingest
