// Package condition parses AHB condition expressions ("Muss [1] ∧ ([2] ∨ [3])")
// and evaluates them over a three-valued logic where Unknown propagates
// conservatively: a rule that depends on unavailable context is neither
// satisfied nor violated.
package condition
