// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the bit-exact framing and serialization of the
// peer-to-peer wire protocol: compact-size integers, the 80-byte block
// header, transactions, and the inv/block/tx/getdata/getblocks messages
// consumed by the node core.
package wire

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

var littleEndian = binary.LittleEndian

// errNonCanonicalVarInt is the format string used for non-canonically
// encoded variable length integer errors.
const errNonCanonicalVarInt = "non-canonical varint %x - discriminant %x must encode a value greater than %x"

// MaxMessagePayload is the maximum bytes a message payload can be.
const MaxMessagePayload = 32 * 1024 * 1024

// ReadVarInt reads a compact-size variable length integer from r.
func ReadVarInt(r io.Reader) (uint64, error) {
	var discriminant [1]byte
	if _, err := io.ReadFull(r, discriminant[:]); err != nil {
		return 0, err
	}

	switch discriminant[0] {
	case 0xff:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		rv := littleEndian.Uint64(buf[:])
		if rv < 0x100000000 {
			return 0, errors.Errorf(errNonCanonicalVarInt, rv, discriminant[0], uint64(0x100000000))
		}
		return rv, nil

	case 0xfe:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		rv := uint64(littleEndian.Uint32(buf[:]))
		if rv < 0x10000 {
			return 0, errors.Errorf(errNonCanonicalVarInt, rv, discriminant[0], uint64(0x10000))
		}
		return rv, nil

	case 0xfd:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		rv := uint64(littleEndian.Uint16(buf[:]))
		if rv < 0xfd {
			return 0, errors.Errorf(errNonCanonicalVarInt, rv, discriminant[0], uint64(0xfd))
		}
		return rv, nil

	default:
		return uint64(discriminant[0]), nil
	}
}

// WriteVarInt serializes val to w using the minimal number of bytes for its
// magnitude.
func WriteVarInt(w io.Writer, val uint64) error {
	if val < 0xfd {
		_, err := w.Write([]byte{byte(val)})
		return err
	}

	if val <= math.MaxUint16 {
		var buf [3]byte
		buf[0] = 0xfd
		littleEndian.PutUint16(buf[1:], uint16(val))
		_, err := w.Write(buf[:])
		return err
	}

	if val <= math.MaxUint32 {
		var buf [5]byte
		buf[0] = 0xfe
		littleEndian.PutUint32(buf[1:], uint32(val))
		_, err := w.Write(buf[:])
		return err
	}

	var buf [9]byte
	buf[0] = 0xff
	littleEndian.PutUint64(buf[1:], val)
	_, err := w.Write(buf[:])
	return err
}

// VarIntSerializeSize returns the number of bytes it would take to
// serialize val as a compact-size variable length integer.
func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= math.MaxUint16:
		return 3
	case val <= math.MaxUint32:
		return 5
	default:
		return 9
	}
}

// ReadVarBytes reads a variable length byte array prefixed with a
// compact-size length, rejecting lengths over maxAllowed to guard against
// memory-exhaustion from malformed peer input.
func ReadVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > maxAllowed {
		return nil, errors.Errorf("%s is larger than the max allowed size [count %d, max %d]",
			fieldName, count, maxAllowed)
	}

	buf := make([]byte, count)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteVarBytes serializes buf to w as a compact-size length followed by
// the bytes themselves.
func WriteVarBytes(w io.Writer, buf []byte) error {
	if err := WriteVarInt(w, uint64(len(buf))); err != nil {
		return err
	}
	_, err := w.Write(buf)
	return err
}
