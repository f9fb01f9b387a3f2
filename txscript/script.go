// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txscript implements signature-script construction and
// verification for the pay-to-pubkey locking script the engine uses: a
// scriptPubKey is a serialized compressed Schnorr public key, and a
// matching sigScript is a length-prefixed Schnorr signature followed by
// the serialized public key that produced it.
package txscript

import (
	"encoding/binary"
	"io"
)

// PayToPubKeyScript builds the locking script for a compressed Schnorr
// public key: the serialized key itself, with no further encoding.
func PayToPubKeyScript(serializedPubKey []byte) []byte {
	out := make([]byte, len(serializedPubKey))
	copy(out, serializedPubKey)
	return out
}

// SignatureScript builds the unlocking script for a signature over sigHash
// and the public key that produced it: a 4-byte length prefix followed by
// the signature, then the raw public key bytes.
func SignatureScript(signature, serializedPubKey []byte) []byte {
	out := make([]byte, 4+len(signature)+len(serializedPubKey))
	binary.LittleEndian.PutUint32(out, uint32(len(signature)))
	copy(out[4:], signature)
	copy(out[4+len(signature):], serializedPubKey)
	return out
}

// ParseSignatureScript splits a sigScript built by SignatureScript back
// into its signature and public key components.
func ParseSignatureScript(sigScript []byte) (signature, serializedPubKey []byte, err error) {
	if len(sigScript) < 4 {
		return nil, nil, io.ErrUnexpectedEOF
	}
	sigLen := int(binary.LittleEndian.Uint32(sigScript))
	if sigLen < 0 || 4+sigLen > len(sigScript) {
		return nil, nil, errScript("signature script length prefix %d exceeds script length %d", sigLen, len(sigScript))
	}
	signature = sigScript[4 : 4+sigLen]
	serializedPubKey = sigScript[4+sigLen:]
	return signature, serializedPubKey, nil
}
