// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"

	"github.com/kaspoin/kaspoind/chainhash"
)

// BlockHeaderPayload is the number of bytes a block header occupies: 4
// (version) + 32 (prev block) + 32 (merkle root) + 4 (timestamp) + 4 (bits)
// + 4 (nonce).
const BlockHeaderPayload = 4 + chainhash.HashSize + chainhash.HashSize + 4 + 4 + 4

// BlockHeader defines information about a block and is used in the block
// and headers messages.
type BlockHeader struct {
	// Version of the block.
	Version int32

	// PrevBlock is the hash of the parent block header.
	PrevBlock chainhash.Hash

	// MerkleRoot is the merkle tree reference to the hash of all
	// transactions for the block.
	MerkleRoot chainhash.Hash

	// Timestamp is the time the block was created, encoded on the wire
	// as seconds since the Unix epoch.
	Timestamp time.Time

	// Bits is the difficulty target for the block in compact form.
	Bits uint32

	// Nonce used to generate the block.
	Nonce uint32
}

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, BlockHeaderPayload))
	_ = h.Serialize(buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

// Serialize writes a block header to w in the 80-byte wire format.
func (h *BlockHeader) Serialize(w io.Writer) error {
	var buf [4]byte
	littleEndian.PutUint32(buf[:], uint32(h.Version))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.PrevBlock[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.MerkleRoot[:]); err != nil {
		return err
	}
	littleEndian.PutUint32(buf[:], uint32(h.Timestamp.Unix()))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	littleEndian.PutUint32(buf[:], h.Bits)
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	littleEndian.PutUint32(buf[:], h.Nonce)
	_, err := w.Write(buf[:])
	return err
}

// Deserialize reads a block header from r in the 80-byte wire format.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	var buf [4]byte

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	h.Version = int32(littleEndian.Uint32(buf[:]))

	if _, err := io.ReadFull(r, h.PrevBlock[:]); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, h.MerkleRoot[:]); err != nil {
		return err
	}

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	h.Timestamp = time.Unix(int64(littleEndian.Uint32(buf[:])), 0).UTC()

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	h.Bits = littleEndian.Uint32(buf[:])

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	h.Nonce = littleEndian.Uint32(buf[:])

	return nil
}

// NewBlockHeader returns a new BlockHeader using the provided previous
// block hash, merkle root hash, difficulty bits, and nonce used to generate
// the block with defaults for the remaining fields.
func NewBlockHeader(version int32, prevBlock, merkleRoot chainhash.Hash, bits, nonce uint32) *BlockHeader {
	return &BlockHeader{
		Version:    version,
		PrevBlock:  prevBlock,
		MerkleRoot: merkleRoot,
		Timestamp:  time.Now(),
		Bits:       bits,
		Nonce:      nonce,
	}
}
