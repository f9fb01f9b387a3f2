// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrindex maintains a durable per-address transaction and
// balance index, fed by the block chain's confirm/revoke notifications
// and the mempool's notify/cancel events.
package addrindex

import (
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/logs"
	"github.com/pkg/errors"
)

var log = logs.AddrIndexLog()

// AddressTx is a single address/transaction association, one row per
// (address, tx hash) pair a transaction's outputs pay. Inputs are not
// indexed, so every row written has IsOutput set.
type AddressTx struct {
	gorm.Model
	Address     string `gorm:"index"`
	TxHash      string `gorm:"index"`
	Value       int64
	IsOutput    bool
	Confirmed   bool
	BlockHeight int32
}

// Index is a gorm-backed store mapping addresses to the transactions
// that pay them (spends are not recorded), with a confirmed/unconfirmed
// flag maintained
// as the owning transaction moves between mempool and chain.
type Index struct {
	db *gorm.DB
}

// Open runs the embedded schema migrations against the sqlite3 database
// at path, then opens a gorm connection to it for querying.
func Open(path string) (*Index, error) {
	if err := migrateSchema(path); err != nil {
		return nil, err
	}
	db, err := gorm.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening address index database")
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database connection.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// AddUnconfirmed records tx's address touches as unconfirmed, called
// when a transaction is accepted into the mempool.
func (idx *Index) AddUnconfirmed(tx *block.Transaction) error {
	return idx.upsert(tx, false, 0)
}

// RemoveUnconfirmed deletes tx's unconfirmed rows, called when a
// transaction is evicted from the mempool without confirming.
func (idx *Index) RemoveUnconfirmed(tx *block.Transaction) error {
	h := tx.Hash().String()
	return idx.db.Where("tx_hash = ? AND confirmed = ?", h, false).Delete(&AddressTx{}).Error
}

// Confirm marks tx's rows confirmed at height, called as the
// transaction's containing block becomes active.
func (idx *Index) Confirm(tx *block.Transaction, height int32) error {
	if err := idx.RemoveUnconfirmed(tx); err != nil {
		return err
	}
	return idx.upsert(tx, true, height)
}

// Revoke deletes tx's confirmed rows, called when its containing block
// is demoted from the active chain during a reorg.
func (idx *Index) Revoke(tx *block.Transaction) error {
	h := tx.Hash().String()
	return idx.db.Where("tx_hash = ? AND confirmed = ?", h, true).Delete(&AddressTx{}).Error
}

func (idx *Index) upsert(tx *block.Transaction, confirmed bool, height int32) error {
	msgTx := tx.MsgTx()
	hash := tx.Hash().String()
	for _, out := range msgTx.TxOut {
		addr := addressOf(out.PkScript)
		if addr == "" {
			continue
		}
		row := AddressTx{
			Address:     addr,
			TxHash:      hash,
			Value:       out.Value,
			IsOutput:    true,
			Confirmed:   confirmed,
			BlockHeight: height,
		}
		if err := idx.db.Create(&row).Error; err != nil {
			return errors.Wrap(err, "indexing address output")
		}
	}
	return nil
}

// Balance sums the value of every confirmed output recorded for addr.
// It does not currently subtract spent outputs; it is an accounting
// index of observed activity, not a UTXO set.
func (idx *Index) Balance(addr string) (int64, error) {
	var total int64
	err := idx.db.Model(&AddressTx{}).
		Where("address = ? AND confirmed = ? AND is_output = ?", addr, true, true).
		Select("COALESCE(SUM(value), 0)").Row().Scan(&total)
	if err != nil {
		return 0, errors.Wrap(err, "summing address balance")
	}
	return total, nil
}

// Transactions returns the hashes of every transaction touching addr,
// most recent first.
func (idx *Index) Transactions(addr string) ([]string, error) {
	var rows []AddressTx
	if err := idx.db.Where("address = ?", addr).Order("id desc").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "listing address transactions")
	}
	hashes := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.TxHash]; ok {
			continue
		}
		seen[r.TxHash] = struct{}{}
		hashes = append(hashes, r.TxHash)
	}
	return hashes, nil
}

// addressOf extracts the pay-to-pubkey address encoded in pkScript, the
// hex of the serialized public key itself in this node's simplified
// script scheme.
func addressOf(pkScript []byte) string {
	if len(pkScript) == 0 {
		return ""
	}
	return hexEncode(pkScript)
}

func hexEncode(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}
