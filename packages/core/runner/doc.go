// Package runner executes pollhttp batch files through a polling engine.
//
// Every request of a batch is submitted without waiting for the previous
// one; the runner then polls the engine until all of them settled. A request
// the engine rejects for lack of a free transport stays in a backlog and is
// submitted again on a later tick. Requests marked wait run alone, so the
// values they capture are visible to everything after them.
package runner
