// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"testing"

	"github.com/kaspanet/go-secp256k1"
	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/wire"
)

// signedSpend builds prevTx (a single output locked to a fresh key) and tx
// (an input spending it, signed by that key unless tamper mutates the
// result first).
func signedSpend(t *testing.T, tamper func(sigScript []byte) []byte) (tx, prevTx *block.Transaction) {
	t.Helper()

	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %s", err)
	}
	pubKey, err := key.SchnorrPublicKey()
	if err != nil {
		t.Fatalf("SchnorrPublicKey: %s", err)
	}
	serializedPubKey, err := pubKey.SerializeCompressed()
	if err != nil {
		t.Fatalf("SerializeCompressed: %s", err)
	}

	pkScript := PayToPubKeyScript(serializedPubKey[:])
	prevMsgTx := &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutpoint: wire.Outpoint{Index: 0xffffffff},
			SignatureScript:  []byte{1},
			Sequence:         wire.MaxTxInSequenceNum,
		}},
		TxOut: []*wire.TxOut{{Value: 10, PkScript: pkScript}},
	}
	prevTx = block.NewTransaction(prevMsgTx)

	spendMsgTx := &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutpoint: wire.Outpoint{Hash: *prevTx.Hash(), Index: 0},
			Sequence:         wire.MaxTxInSequenceNum,
		}},
		TxOut: []*wire.TxOut{{Value: 9, PkScript: []byte("payee")}},
	}

	sigHash, err := CalcSignatureHash(pkScript, SigHashAll, spendMsgTx, 0)
	if err != nil {
		t.Fatalf("CalcSignatureHash: %s", err)
	}
	secpHash := secp256k1.Hash(*sigHash)
	signature, err := key.SchnorrSign(&secpHash)
	if err != nil {
		t.Fatalf("SchnorrSign: %s", err)
	}
	serializedSig := signature.Serialize()

	sigScript := SignatureScript(serializedSig[:], serializedPubKey[:])
	if tamper != nil {
		sigScript = tamper(sigScript)
	}
	spendMsgTx.TxIn[0].SignatureScript = sigScript

	tx = block.NewTransaction(spendMsgTx)
	return tx, prevTx
}

func TestVerifyInputAcceptsValidSignature(t *testing.T) {
	tx, prevTx := signedSpend(t, nil)

	v := NewVerifier()
	if err := v.VerifyInput(tx, 0, prevTx); err != nil {
		t.Fatalf("VerifyInput rejected a validly signed input: %s", err)
	}
}

func TestVerifyInputRejectsTamperedSignature(t *testing.T) {
	tx, prevTx := signedSpend(t, func(sigScript []byte) []byte {
		tampered := make([]byte, len(sigScript))
		copy(tampered, sigScript)
		// Flip the first signature byte, just past the 4-byte length
		// prefix, leaving the public key intact.
		tampered[4] ^= 0xff
		return tampered
	})

	v := NewVerifier()
	if err := v.VerifyInput(tx, 0, prevTx); err == nil {
		t.Fatalf("expected VerifyInput to reject a tampered signature")
	}
}

func TestVerifyInputRejectsMismatchedPublicKey(t *testing.T) {
	tx, prevTx := signedSpend(t, nil)

	otherKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %s", err)
	}
	otherPubKey, err := otherKey.SchnorrPublicKey()
	if err != nil {
		t.Fatalf("SchnorrPublicKey: %s", err)
	}
	serializedOtherPubKey, err := otherPubKey.SerializeCompressed()
	if err != nil {
		t.Fatalf("SerializeCompressed: %s", err)
	}

	signature, _, err := ParseSignatureScript(tx.MsgTx().TxIn[0].SignatureScript)
	if err != nil {
		t.Fatalf("ParseSignatureScript: %s", err)
	}
	tx.MsgTx().TxIn[0].SignatureScript = SignatureScript(signature, serializedOtherPubKey[:])

	v := NewVerifier()
	if err := v.VerifyInput(tx, 0, prevTx); err == nil {
		t.Fatalf("expected VerifyInput to reject a signature script naming the wrong public key")
	}
}
