// Package assertions checks HTTP responses returned by the request engine.
//
// Subjects:
//   - status, duration
//   - header <Name>
//   - body, body.<path> (gjson paths, [N] accepted for array indexes)
//
// Operators include equality, numeric comparison, string matching, length,
// type checks and JSON Schema validation via gojsonschema.
package assertions
