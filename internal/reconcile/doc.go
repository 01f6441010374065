// Package reconcile implements the schedule reconciliation and adherence
// aggregation engine: expanding medication schedules into per-date dose
// occurrences, aligning sparse dose logs to those occurrences, and folding
// the results into day, week, and month aggregates.
//
// Every function in this package is pure computation over an in-memory
// snapshot. Nothing here touches storage, the network, or the clock, and the
// same input always yields byte-for-byte identical output.
package reconcile
