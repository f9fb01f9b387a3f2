// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"math"

	"github.com/kaspoin/kaspoind/chainhash"
)

// MaxTxInSequenceNum is the maximum sequence number the sequence field of a
// transaction input can be.
const MaxTxInSequenceNum uint64 = 0xffffffff

// maxScriptPayload is the maximum size, in bytes, allowed for an input or
// output script, guarding deserialization against memory exhaustion.
const maxScriptPayload = 10000

// Outpoint defines a data type that is used to track previous transaction
// outputs.
type Outpoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutpoint returns a new transaction outpoint.
func NewOutpoint(hash *chainhash.Hash, index uint32) *Outpoint {
	return &Outpoint{Hash: *hash, Index: index}
}

// IsNull returns whether or not the outpoint is "null", the sentinel
// reference carried by a coinbase transaction's single input.
func (o *Outpoint) IsNull() bool {
	return o.Index == math.MaxUint32 && o.Hash == chainhash.ZeroHash
}

// TxIn defines a transaction input.
type TxIn struct {
	PreviousOutpoint Outpoint
	SignatureScript  []byte
	Sequence         uint64
}

// SerializeSize returns the number of bytes it would take to serialize the
// input.
func (t *TxIn) SerializeSize() int {
	return 32 + 4 + VarIntSerializeSize(uint64(len(t.SignatureScript))) + len(t.SignatureScript) + 8
}

// TxOut defines a transaction output.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// SerializeSize returns the number of bytes it would take to serialize the
// output.
func (t *TxOut) SerializeSize() int {
	return 8 + VarIntSerializeSize(uint64(len(t.PkScript))) + len(t.PkScript)
}

// MsgTx implements the transaction wire message and defines the canonical
// on-chain representation of a transaction.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint64
}

// NewMsgTx returns a new transaction message with no inputs or outputs.
func NewMsgTx(version int32) *MsgTx {
	return &MsgTx{Version: version}
}

// AddTxIn adds a transaction input to the message.
func (msg *MsgTx) AddTxIn(ti *TxIn) {
	msg.TxIn = append(msg.TxIn, ti)
}

// AddTxOut adds a transaction output to the message.
func (msg *MsgTx) AddTxOut(to *TxOut) {
	msg.TxOut = append(msg.TxOut, to)
}

// Command returns the protocol command string for the message.
func (msg *MsgTx) Command() string { return CmdTx }

// IsCoinBase determines whether the transaction is a coinbase transaction,
// a single input referencing a null outpoint.
func (msg *MsgTx) IsCoinBase() bool {
	return len(msg.TxIn) == 1 && msg.TxIn[0].PreviousOutpoint.IsNull()
}

// TxHash generates the double-SHA-256 hash for the transaction.
func (msg *MsgTx) TxHash() chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, msg.SerializeSize()))
	_ = msg.Serialize(buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction.
func (msg *MsgTx) SerializeSize() int {
	n := 4 + VarIntSerializeSize(uint64(len(msg.TxIn))) + VarIntSerializeSize(uint64(len(msg.TxOut))) + 8
	for _, txIn := range msg.TxIn {
		n += txIn.SerializeSize()
	}
	for _, txOut := range msg.TxOut {
		n += txOut.SerializeSize()
	}
	return n
}

// Serialize writes the transaction to w using the canonical wire encoding.
func (msg *MsgTx) Serialize(w io.Writer) error {
	var buf [8]byte

	littleEndian.PutUint32(buf[:4], uint32(msg.Version))
	if _, err := w.Write(buf[:4]); err != nil {
		return err
	}

	if err := WriteVarInt(w, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if _, err := w.Write(ti.PreviousOutpoint.Hash[:]); err != nil {
			return err
		}
		littleEndian.PutUint32(buf[:4], ti.PreviousOutpoint.Index)
		if _, err := w.Write(buf[:4]); err != nil {
			return err
		}
		if err := WriteVarBytes(w, ti.SignatureScript); err != nil {
			return err
		}
		littleEndian.PutUint64(buf[:8], ti.Sequence)
		if _, err := w.Write(buf[:8]); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		littleEndian.PutUint64(buf[:8], uint64(to.Value))
		if _, err := w.Write(buf[:8]); err != nil {
			return err
		}
		if err := WriteVarBytes(w, to.PkScript); err != nil {
			return err
		}
	}

	littleEndian.PutUint64(buf[:8], msg.LockTime)
	_, err := w.Write(buf[:8])
	return err
}

// Deserialize reads a transaction from r using the canonical wire encoding.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	var buf [8]byte

	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	msg.Version = int32(littleEndian.Uint32(buf[:4]))

	inCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	msg.TxIn = make([]*TxIn, inCount)
	for i := range msg.TxIn {
		ti := &TxIn{}
		if _, err := io.ReadFull(r, ti.PreviousOutpoint.Hash[:]); err != nil {
			return err
		}
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return err
		}
		ti.PreviousOutpoint.Index = littleEndian.Uint32(buf[:4])
		ti.SignatureScript, err = ReadVarBytes(r, maxScriptPayload, "signature script")
		if err != nil {
			return err
		}
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return err
		}
		ti.Sequence = littleEndian.Uint64(buf[:8])
		msg.TxIn[i] = ti
	}

	outCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	msg.TxOut = make([]*TxOut, outCount)
	for i := range msg.TxOut {
		to := &TxOut{}
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return err
		}
		to.Value = int64(littleEndian.Uint64(buf[:8]))
		to.PkScript, err = ReadVarBytes(r, maxScriptPayload, "public key script")
		if err != nil {
			return err
		}
		msg.TxOut[i] = to
	}

	if _, err := io.ReadFull(r, buf[:8]); err != nil {
		return err
	}
	msg.LockTime = littleEndian.Uint64(buf[:8])

	return nil
}
