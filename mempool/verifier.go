// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "github.com/kaspoin/kaspoind/block"

// ScriptVerifier is the pluggable script/signature verification capability
// TransactionStore relies on for mempool acceptance.
type ScriptVerifier interface {
	// VerifyInput checks that tx's input at inputIndex correctly
	// satisfies the locking script of the output it references in
	// prevTx.
	VerifyInput(tx *block.Transaction, inputIndex int, prevTx *block.Transaction) error
}

// StandardnessChecker is the pluggable "standardness" predicate: non-
// standard transactions are rejected synchronously on submission.
type StandardnessChecker interface {
	IsStandard(tx *block.Transaction) bool
}

// AcceptAllStandardnessChecker treats every non-coinbase transaction as
// standard. Useful for tests and as a conservative default.
type AcceptAllStandardnessChecker struct{}

// IsStandard always returns true.
func (AcceptAllStandardnessChecker) IsStandard(*block.Transaction) bool { return true }
