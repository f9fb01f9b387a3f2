// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/kaspanet/go-secp256k1"
	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/logs"
)

var log = logs.ScriptLog()

// Verifier implements mempool.ScriptVerifier using Schnorr signatures
// over secp256k1.
type Verifier struct{}

// NewVerifier constructs a Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// VerifyInput checks that tx's input at inputIndex carries a valid
// Schnorr signature, produced by the key committed to in prevTx's
// referenced output's locking script, over this spend.
func (v *Verifier) VerifyInput(tx *block.Transaction, inputIndex int, prevTx *block.Transaction) error {
	in := tx.MsgTx().TxIn[inputIndex]
	outIdx := in.PreviousOutpoint.Index
	if int(outIdx) >= len(prevTx.MsgTx().TxOut) {
		return errOutOfRange("previous outpoint index %d out of range for transaction %s", outIdx, prevTx.Hash())
	}
	prevPkScript := prevTx.MsgTx().TxOut[outIdx].PkScript

	signature, serializedPubKey, err := ParseSignatureScript(in.SignatureScript)
	if err != nil {
		return err
	}
	if string(serializedPubKey) != string(prevPkScript) {
		return errScript("signature script public key does not match the output's locking script")
	}

	sigHash, err := CalcSignatureHash(prevPkScript, SigHashAll, tx.MsgTx(), inputIndex)
	if err != nil {
		return err
	}

	pubKey, err := secp256k1.DeserializeSchnorrPubKey(serializedPubKey)
	if err != nil {
		return errScript("invalid public key in signature script: %s", err)
	}
	sig, err := secp256k1.DeserializeSchnorrSignature(signature)
	if err != nil {
		return errScript("invalid signature in signature script: %s", err)
	}

	secpHash := secp256k1.Hash(*sigHash)
	valid, err := pubKey.SchnorrVerify(&secpHash, sig)
	if err != nil {
		return errScript("signature verification error: %s", err)
	}
	if !valid {
		log.Debugf("Signature verification failed for input %d of transaction %s", inputIndex, tx.Hash())
		return errScript("signature verification failed for input %d", inputIndex)
	}
	return nil
}
