// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainhash provides the 32-byte double-SHA-256 digest used
// throughout the wire protocol, the block chain, and the mempool as a
// content-addressing key.
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
	"math/big"

	"github.com/pkg/errors"
)

// HashSize is the size of the array used to store hashes.
const HashSize = 32

// MaxHashStringSize is the maximum length of a Hash hash string.
const MaxHashStringSize = HashSize * 2

// ErrHashStrSize describes an error that indicates the caller specified a
// hash string that has too many characters.
var ErrHashStrSize = errors.Errorf("max hash string length is %v bytes", MaxHashStringSize)

// Hash is used in several of the messages and block structures to
// represent the double sha256 of data.
type Hash [HashSize]byte

// ZeroHash is the Hash value of all zero bytes, used for the genesis
// block's previous block hash.
var ZeroHash Hash

// String returns the Hash as the hexadecimal string of the byte-reversed
// hash, matching the display convention inherited from the wire protocol
// (hashes are serialized little-endian but displayed big-endian).
func (hash Hash) String() string {
	var reversed Hash
	for i, b := range hash[:HashSize/2] {
		reversed[i], reversed[HashSize-1-i] = hash[HashSize-1-i], b
	}
	return hex.EncodeToString(reversed[:])
}

// Bytes returns a copy of the hash's raw bytes as a slice.
func (hash *Hash) Bytes() []byte {
	newHash := make([]byte, HashSize)
	copy(newHash, hash[:])
	return newHash
}

// SetBytes sets the bytes which represent the hash. An error is returned if
// the number of bytes passed in is not HashSize.
func (hash *Hash) SetBytes(newHash []byte) error {
	nhlen := len(newHash)
	if nhlen != HashSize {
		return errors.Errorf("invalid hash length of %v, want %v", nhlen, HashSize)
	}
	copy(hash[:], newHash)
	return nil
}

// IsEqual returns true if target is the same as the hash.
func (hash *Hash) IsEqual(target *Hash) bool {
	if hash == nil && target == nil {
		return true
	}
	if hash == nil || target == nil {
		return false
	}
	return *hash == *target
}

// NewHash returns a new Hash from a byte slice.
func NewHash(newHash []byte) (*Hash, error) {
	var sh Hash
	err := sh.SetBytes(newHash)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// NewHashFromStr creates a Hash from a hash string. The string should be
// the hexadecimal string of a byte-reversed hash, but any missing
// characters result in zero padding at the end of the hash.
func NewHashFromStr(hash string) (*Hash, error) {
	ret := new(Hash)
	err := Decode(ret, hash)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Decode decodes the byte-reversed hexadecimal string encoding of a Hash to a
// destination.
func Decode(dst *Hash, src string) error {
	if len(src) > MaxHashStringSize {
		return ErrHashStrSize
	}

	var srcBytes []byte
	if len(src)%2 == 0 {
		srcBytes = []byte(src)
	} else {
		srcBytes = make([]byte, 1+len(src))
		srcBytes[0] = '0'
		copy(srcBytes[1:], src)
	}

	var reversedHash Hash
	_, err := hex.Decode(reversedHash[HashSize-hex.DecodedLen(len(srcBytes)):], srcBytes)
	if err != nil {
		return err
	}

	for i, b := range reversedHash[:HashSize/2] {
		dst[i], dst[HashSize-1-i] = reversedHash[HashSize-1-i], b
	}
	return nil
}

// HashToBig converts a hash into a big.Int treating the bytes as a little
// endian unsigned integer, the representation used when comparing a block
// hash against a decoded difficulty target.
func HashToBig(hash *Hash) *big.Int {
	buf := *hash
	blen := len(buf)
	for i := 0; i < blen/2; i++ {
		buf[i], buf[blen-1-i] = buf[blen-1-i], buf[i]
	}
	return new(big.Int).SetBytes(buf[:])
}

// DoubleHashH computes double sha256 of the data and returns it as a Hash.
func DoubleHashH(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}

// DoubleHashB computes double sha256 of the data and returns the resulting
// bytes.
func DoubleHashB(b []byte) []byte {
	hash := DoubleHashH(b)
	return hash[:]
}
