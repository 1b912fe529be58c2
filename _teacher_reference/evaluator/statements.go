package evaluator

// This file contains statement evaluation logic that is separate from the main evaluator.go
// The main evaluator.go handles the core dispatching, and these files contain
// the implementation details for various statement types.
