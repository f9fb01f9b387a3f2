// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"

	"github.com/kaspoin/kaspoind/chainhash"
)

// ErrorCode identifies a kind of error returned by mempool verification.
type ErrorCode int

const (
	// ErrCoinbase indicates a coinbase transaction was submitted
	// outside of a block.
	ErrCoinbase ErrorCode = iota

	// ErrNonStandard indicates the transaction failed the standardness
	// predicate.
	ErrNonStandard

	// ErrMissingSource indicates a transaction input references an
	// outpoint whose source transaction is unknown. Carries the
	// missing transaction's hash.
	ErrMissingSource

	// ErrDoubleSpend indicates a transaction input conflicts with
	// another active-chain or mempool input.
	ErrDoubleSpend
)

var errorCodeStrings = map[ErrorCode]string{
	ErrCoinbase:      "ErrCoinbase",
	ErrNonStandard:   "ErrNonStandard",
	ErrMissingSource: "ErrMissingSource",
	ErrDoubleSpend:   "ErrDoubleSpend",
}

// String returns the ErrorCode in human-readable form.
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation encountered verifying a mempool
// transaction.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
	// MissingTxHash is populated when ErrorCode is ErrMissingSource.
	MissingTxHash *chainhash.Hash
}

// Error satisfies the error interface.
func (e *RuleError) Error() string {
	return e.Description
}

func ruleError(c ErrorCode, desc string) *RuleError {
	return &RuleError{ErrorCode: c, Description: desc}
}

func missingSourceError(desc string, missing *chainhash.Hash) *RuleError {
	return &RuleError{ErrorCode: ErrMissingSource, Description: desc, MissingTxHash: missing}
}
