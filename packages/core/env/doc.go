// Package env handles variable resolution for pollhttp batch files.
//
// It provides functionality for:
//   - Loading .env files
//   - Variable interpolation using {{variable}} syntax
//   - Environment lookups with {{$NAME}}
//   - A few built-in functions: uuid(), timestamp(), timestampMs(),
//     randomInt(min,max) and base64(text)
//   - Resolving values captured from earlier responses
package env
