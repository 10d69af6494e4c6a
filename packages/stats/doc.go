// Package stats aggregates engine outcomes into counters and latency
// percentiles.
//
// A Recorder is registered on an engine with http.WithObserver and sees every
// terminal outcome, including requests the engine rejected synchronously.
// Latency is tracked in an HDR histogram from 1µs to 60s with three
// significant digits, matching the engine's response timeout.
//
// Thresholds express pass/fail criteria such as "p95<200ms,errors<1%" and are
// evaluated against a Summary.
package stats
