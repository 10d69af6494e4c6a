// Package output renders batch results, single responses and history.
//
// Supported formats:
//   - console: colored terminal output
//   - json: one JSON document per invocation
//   - junit: JUnit XML for CI
//
// Formats that accumulate results write them on Flush.
package output
