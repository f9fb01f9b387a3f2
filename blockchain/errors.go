// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "fmt"

// ErrorCode identifies a kind of error returned by block validation or
// chain admission.
type ErrorCode int

const (
	// ErrDuplicateBlock indicates the block is already known, either
	// stored or in the orphan pool.
	ErrDuplicateBlock ErrorCode = iota

	// ErrInvalidProofOfWork indicates the block's hash does not satisfy
	// the claimed difficulty target.
	ErrInvalidProofOfWork

	// ErrInvalidTimestamp indicates the block's timestamp is too far in
	// the future.
	ErrInvalidTimestamp

	// ErrInvalidStructure indicates a structural defect: empty
	// transaction list, misplaced or duplicated coinbase, or a
	// serialization mismatch between a block's claimed and computed
	// hash.
	ErrInvalidStructure

	// ErrInvalidMerkle indicates the block's merkle root does not match
	// the one computed over its transactions.
	ErrInvalidMerkle

	// ErrFatal indicates a consistency violation in the engine itself,
	// not a malformed block, but a bug. Logged loudly; never expected
	// in a correct implementation.
	ErrFatal
)

var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateBlock:     "ErrDuplicateBlock",
	ErrInvalidProofOfWork: "ErrInvalidProofOfWork",
	ErrInvalidTimestamp:   "ErrInvalidTimestamp",
	ErrInvalidStructure:   "ErrInvalidStructure",
	ErrInvalidMerkle:      "ErrInvalidMerkle",
	ErrFatal:              "ErrFatal",
}

// String returns the ErrorCode in human-readable form.
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation encountered validating a block. It
// carries both a machine-checkable ErrorCode and a human-readable
// description.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

// Error satisfies the error interface.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// IsRuleError reports whether err is a RuleError, a malformed or invalid
// block rather than a storage or engine failure.
func IsRuleError(err error) bool {
	_, ok := err.(RuleError)
	return ok
}
