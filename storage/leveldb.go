// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"bytes"
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/kaspoin/kaspoind/wire"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Key-space prefixes: every key is prefixed with a single byte naming
// the index it belongs to.
const (
	prefixBlock byte = iota
	prefixBlockByPrev
	prefixTx
	prefixHeightIndex
)

// LevelDBStorage persists blocks and transactions in a single goleveldb
// database, serializing writes via a mutex guarding the whole database.
// This is coarser than a per-key lock, but sufficient since every write
// path already runs on the block chain's single event-loop goroutine.
type LevelDBStorage struct {
	mu sync.Mutex
	db *leveldb.DB
}

// Open opens (creating if absent) a goleveldb database at the given path.
func Open(path string) (*LevelDBStorage, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "opening storage database")
	}
	return &LevelDBStorage{db: db}, nil
}

// Close releases the underlying database handle.
func (s *LevelDBStorage) Close() error {
	return s.db.Close()
}

func blockKey(hash *chainhash.Hash) []byte {
	return append([]byte{prefixBlock}, hash[:]...)
}

func blockByPrevKey(prev, self *chainhash.Hash) []byte {
	key := make([]byte, 0, 1+2*chainhash.HashSize)
	key = append(key, prefixBlockByPrev)
	key = append(key, prev[:]...)
	key = append(key, self[:]...)
	return key
}

func txKey(hash *chainhash.Hash) []byte {
	return append([]byte{prefixTx}, hash[:]...)
}

func heightKey(height int32) []byte {
	key := make([]byte, 5)
	key[0] = prefixHeightIndex
	binary.BigEndian.PutUint32(key[1:], uint32(height))
	return key
}

// PutBlock durably stores a block record, keyed by its hash, and maintains
// the by-prev-hash and by-height secondary indices.
func (s *LevelDBStorage) PutBlock(rec *BlockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := &bytes.Buffer{}
	if err := encodeBlockRecord(buf, rec); err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	hash := rec.Block.Hash()
	batch.Put(blockKey(hash), buf.Bytes())
	batch.Put(blockByPrevKey(rec.Block.PrevHash(), hash), nil)
	if rec.Active {
		batch.Put(heightKey(rec.Height), hash[:])
	} else if cur, err := s.db.Get(heightKey(rec.Height), nil); err == nil && bytes.Equal(cur, hash[:]) {
		batch.Delete(heightKey(rec.Height))
	}

	if err := s.db.Write(batch, nil); err != nil {
		return errors.Wrap(err, "writing block record")
	}
	return nil
}

// GetBlockByHash returns the stored block record for hash, or (nil, nil)
// if unknown.
func (s *LevelDBStorage) GetBlockByHash(hash *chainhash.Hash) (*BlockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.db.Get(blockKey(hash), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading block record")
	}
	return decodeBlockRecord(bytes.NewReader(data))
}

// GetBlocksByPrev returns every stored block whose PrevHash equals hash.
func (s *LevelDBStorage) GetBlocksByPrev(hash *chainhash.Hash) ([]*BlockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := append([]byte{prefixBlockByPrev}, hash[:]...)
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var recs []*BlockRecord
	for iter.Next() {
		key := iter.Key()
		var childHash chainhash.Hash
		copy(childHash[:], key[1+chainhash.HashSize:])

		data, err := s.db.Get(blockKey(&childHash), nil)
		if err != nil {
			return nil, errors.Wrap(err, "reading block record")
		}
		rec, err := decodeBlockRecord(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "scanning by-prev index")
	}
	return recs, nil
}

// KnowsBlock reports whether a block with the given hash is stored.
func (s *LevelDBStorage) KnowsBlock(hash *chainhash.Hash) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.db.Has(blockKey(hash), nil)
	if err != nil {
		return false, errors.Wrap(err, "checking block existence")
	}
	return ok, nil
}

// PutTx durably stores a transaction along with the reference to the
// block that confirmed it.
func (s *LevelDBStorage) PutTx(tx *block.Transaction, ref TxRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := &bytes.Buffer{}
	if err := tx.MsgTx().Serialize(buf); err != nil {
		return err
	}

	record := &bytes.Buffer{}
	record.Write(ref.BlockHash[:])
	var idxBuf [4]byte
	binary.LittleEndian.PutUint32(idxBuf[:], uint32(ref.Index))
	record.Write(idxBuf[:])
	record.Write(buf.Bytes())

	if err := s.db.Put(txKey(tx.Hash()), record.Bytes(), nil); err != nil {
		return errors.Wrap(err, "writing transaction")
	}
	return nil
}

// GetTx returns the stored transaction for hash, or (nil, nil) if unknown.
func (s *LevelDBStorage) GetTx(hash *chainhash.Hash) (*block.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.db.Get(txKey(hash), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading transaction")
	}

	if len(data) < chainhash.HashSize+4 {
		return nil, errors.New("corrupt transaction record")
	}
	msgTx := &wire.MsgTx{}
	if err := msgTx.Deserialize(bytes.NewReader(data[chainhash.HashSize+4:])); err != nil {
		return nil, errors.Wrap(err, "decoding transaction")
	}

	tx := block.NewTransaction(msgTx)
	var blockHash chainhash.Hash
	copy(blockHash[:], data[:chainhash.HashSize])
	index := int(binary.LittleEndian.Uint32(data[chainhash.HashSize : chainhash.HashSize+4]))
	tx.SetContainingBlock(&blockHash, index)
	return tx, nil
}

// ActiveChainHashAtHeight returns the hash of the active-chain block at the
// given height, used to build locators.
func (s *LevelDBStorage) ActiveChainHashAtHeight(height int32) (*chainhash.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.db.Get(heightKey(height), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading height index")
	}
	var hash chainhash.Hash
	copy(hash[:], data)
	return &hash, nil
}

// ActiveTipHeight returns the height of the current active tip, or -1 if
// no blocks are stored.
func (s *LevelDBStorage) ActiveTipHeight() (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixHeightIndex}), nil)
	defer iter.Release()

	height := int32(-1)
	for iter.Next() {
		key := iter.Key()
		h := int32(binary.BigEndian.Uint32(key[1:]))
		if h > height {
			height = h
		}
	}
	if err := iter.Error(); err != nil {
		return 0, errors.Wrap(err, "scanning height index")
	}
	return height, nil
}

func encodeBlockRecord(buf *bytes.Buffer, rec *BlockRecord) error {
	if err := rec.Block.MsgBlock().Serialize(buf); err != nil {
		return err
	}
	var hdr [9]byte
	binary.LittleEndian.PutUint32(hdr[:4], uint32(rec.Height))
	if rec.Active {
		hdr[4] = 1
	}
	binary.LittleEndian.PutUint32(hdr[5:9], uint32(len(rec.ChainWork)))
	buf.Write(hdr[:])
	buf.Write(rec.ChainWork)
	return nil
}

func decodeBlockRecord(r *bytes.Reader) (*BlockRecord, error) {
	msgBlock := &wire.MsgBlock{}
	if err := msgBlock.Deserialize(r); err != nil {
		return nil, err
	}

	var hdr [9]byte
	if _, err := r.Read(hdr[:]); err != nil {
		return nil, err
	}
	height := int32(binary.LittleEndian.Uint32(hdr[:4]))
	active := hdr[4] != 0
	workLen := binary.LittleEndian.Uint32(hdr[5:9])
	work := make([]byte, workLen)
	if _, err := r.Read(work); err != nil && workLen > 0 {
		return nil, err
	}

	b := block.NewBlock(msgBlock)
	b.SetHeight(height)
	b.SetActive(active)
	b.SetChainWork(new(big.Int).SetBytes(work))

	return &BlockRecord{Block: b, Height: height, Active: active, ChainWork: work}, nil
}
