// Package capture extracts values from HTTP responses so later steps in the
// same worker can reuse them.
//
// Values come from the JSON body (gjson paths), headers, the status code or
// the request duration. Store writes them into a worker's session values.
package capture
