// Package validate checks EDIFACT messages against MIG structure rules and
// AHB workflow conditions. Results are typed issues with stable error codes,
// a severity, and a wire location, suitable for direct JSON serialization.
package validate
