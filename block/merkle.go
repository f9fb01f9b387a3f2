// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package block

import "github.com/kaspoin/kaspoind/chainhash"

// CalcMerkleRoot computes the canonical merkle root over an ordered list of
// transaction hashes: at each level, hashes are paired off left to right and
// combined with double-SHA-256; if a level has an odd number of elements,
// the last one is duplicated before pairing, rather than left to propagate
// unpaired.
func CalcMerkleRoot(txHashes []*chainhash.Hash) chainhash.Hash {
	if len(txHashes) == 0 {
		return chainhash.ZeroHash
	}

	level := make([]chainhash.Hash, len(txHashes))
	for i, h := range txHashes {
		level[i] = *h
	}

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}

		next := make([]chainhash.Hash, len(level)/2)
		for i := range next {
			var buf [chainhash.HashSize * 2]byte
			copy(buf[:chainhash.HashSize], level[2*i][:])
			copy(buf[chainhash.HashSize:], level[2*i+1][:])
			next[i] = chainhash.DoubleHashH(buf[:])
		}
		level = next
	}

	return level[0]
}
