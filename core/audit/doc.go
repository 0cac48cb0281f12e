// Package audit implements the payroll reconciliation engine.
//
// Given two parsed datasets it normalizes raw rows into canonical employee
// records, pairs records across the datasets (exact identifier, exact name,
// then fuzzy name similarity), compares every canonical field under a
// tolerance policy, and aggregates the resulting discrepancies into a
// severity summary and an overall risk classification.
//
// # Pipeline
//
//	raw bytes -> parser -> Normalize -> Match -> Compare -> Score -> Result
//
// Run composes the whole pipeline for two byte buffers with declared formats.
//
// # Determinism
//
// Every stage is deterministic: identical inputs and configuration produce an
// identical Result, including the order of matched pairs, unmatched records,
// and discrepancies. Monetary values use exact decimal arithmetic throughout;
// binary floating point never touches a comparison.
//
// # Concurrency
//
// A Run invocation owns its working data exclusively and the returned Result
// is immutable. Callers may run any number of audits concurrently without
// external locking; the only internal concurrency is parsing the two input
// files in parallel, which has no effect on output.
package audit
