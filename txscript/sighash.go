// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"

	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/kaspoin/kaspoind/wire"
)

// SigHashType represents the portion of a transaction a signature commits
// to.
type SigHashType uint32

// SigHashAll commits to every input and output of the transaction; it is
// the only hash type this package currently supports.
const SigHashAll SigHashType = 0x1

// CalcSignatureHash computes the double-SHA256 digest a signature for
// input idx of tx must commit to, given the locking script of the
// output it spends. Every other input's signature script is blanked to
// match tx as the signer originally saw it.
func CalcSignatureHash(prevPkScript []byte, hashType SigHashType, tx *wire.MsgTx, idx int) (*chainhash.Hash, error) {
	if idx < 0 || idx >= len(tx.TxIn) {
		return nil, errOutOfRange("input index %d out of range for signature hash", idx)
	}

	txCopy := wire.NewMsgTx(tx.Version)
	txCopy.LockTime = tx.LockTime
	for i, in := range tx.TxIn {
		script := []byte(nil)
		if i == idx {
			script = prevPkScript
		}
		txCopy.AddTxIn(&wire.TxIn{
			PreviousOutpoint: in.PreviousOutpoint,
			SignatureScript:  script,
			Sequence:         in.Sequence,
		})
	}
	for _, out := range tx.TxOut {
		txCopy.AddTxOut(&wire.TxOut{Value: out.Value, PkScript: out.PkScript})
	}

	var buf bytes.Buffer
	if err := txCopy.Serialize(&buf); err != nil {
		return nil, err
	}
	buf.WriteByte(byte(hashType))

	hash := chainhash.DoubleHashH(buf.Bytes())
	return &hash, nil
}
