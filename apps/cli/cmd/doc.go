// Package cmd implements the pollhttp CLI commands using Cobra.
//
// Available commands:
//   - send: issue one request and print the response
//   - run: execute batch files, optionally re-running them on change
//   - bench: drive batch requests at a fixed rate and report latency
//   - history: show or prune recorded responses
//   - version: show version information
package cmd
