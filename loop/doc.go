// Package loop provides the variable-liveness analysis for loop conversion.
//
// The analysis traverses a function scope once and records, for every while
// and for statement, the references visible before the loop body, the
// references made inside the loop (with their access mode), the references
// of the loop condition and the writes inside the loop. On demand these
// tables are reduced to three name sets per loop: the loop-carried names
// that must be threaded through the loop as explicit state, the subset of
// them created by the loop, and the names excluded from consideration
// (comprehension and nested-loop targets, type-check arguments).
//
// Nested function definitions are scope walls: names first bound inside
// them are dropped from the enclosing analysis when the definition closes.
package loop
