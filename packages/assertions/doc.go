// Package assertions checks engine responses against expectations.
//
// Subjects:
//   - status: the HTTP response code
//   - duration: milliseconds from send to completion
//   - outcome: the engine status name, e.g. "Completed" or "NoResponse"
//   - header Content-Type, header Content-Length, header Server
//   - body, body.<path>, jsonpath <path> (gjson paths, [N] also accepted)
//
// Operators: ==, !=, >, >=, <, <=, contains, !contains, startsWith,
// endsWith, matches, exists, !exists, length, includes, !includes, in, !in,
// type, schema and each. Schemas may be inline JSON or a file path resolved
// against the evaluator's base directory.
package assertions
