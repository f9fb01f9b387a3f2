// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/pkg/errors"
)

// InvType represents the allowed types of inventory vectors.
type InvType uint32

// Inventory vector types.
const (
	InvTypeError InvType = 0
	InvTypeTx    InvType = 1
	InvTypeBlock InvType = 2
)

func (t InvType) String() string {
	switch t {
	case InvTypeTx:
		return "MSG_TX"
	case InvTypeBlock:
		return "MSG_BLOCK"
	default:
		return "MSG_ERROR"
	}
}

// MaxInvPerMsg is the maximum number of inventory vectors a single inv,
// getdata, or getblocks-reply message is allowed to carry.
const MaxInvPerMsg = 50000

// InvVect defines a bitcoin-family inventory vector used to describe data,
// as specified by the Type field, that a peer requests or announces to
// have.
type InvVect struct {
	Type InvType
	Hash chainhash.Hash
}

// NewInvVect returns a new InvVect using the provided type and hash.
func NewInvVect(typ InvType, hash *chainhash.Hash) *InvVect {
	return &InvVect{Type: typ, Hash: *hash}
}

// MsgInv announces the existence of transactions or blocks the sending
// peer has to its neighbor.
type MsgInv struct {
	InvList []*InvVect
}

// AddInvVect adds an inventory vector to the message.
func (msg *MsgInv) AddInvVect(iv *InvVect) error {
	if len(msg.InvList)+1 > MaxInvPerMsg {
		return errors.Errorf("too many invvect in message [max %d]", MaxInvPerMsg)
	}
	msg.InvList = append(msg.InvList, iv)
	return nil
}

// NewMsgInv returns a new empty inv message.
func NewMsgInv() *MsgInv {
	return &MsgInv{InvList: make([]*InvVect, 0, defaultInvListAlloc)}
}

const defaultInvListAlloc = 1000

// Command returns the protocol command string for the message.
func (msg *MsgInv) Command() string { return CmdInv }

// Serialize writes the inv message to w.
func (msg *MsgInv) Serialize(w io.Writer) error {
	if err := WriteVarInt(w, uint64(len(msg.InvList))); err != nil {
		return err
	}
	for _, iv := range msg.InvList {
		var buf [4]byte
		littleEndian.PutUint32(buf[:], uint32(iv.Type))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
		if _, err := w.Write(iv.Hash[:]); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize reads an inv message from r.
func (msg *MsgInv) Deserialize(r io.Reader) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxInvPerMsg {
		return errors.Errorf("too many invvect in message [count %d, max %d]", count, MaxInvPerMsg)
	}

	msg.InvList = make([]*InvVect, count)
	for i := range msg.InvList {
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		iv := &InvVect{Type: InvType(littleEndian.Uint32(buf[:]))}
		if _, err := io.ReadFull(r, iv.Hash[:]); err != nil {
			return err
		}
		msg.InvList[i] = iv
	}
	return nil
}

// MsgGetData requests the full contents of the items described by a list of
// inventory vectors, normally in reply to an inv message.
type MsgGetData struct {
	InvList []*InvVect
}

// NewMsgGetData returns a new empty getdata message.
func NewMsgGetData() *MsgGetData {
	return &MsgGetData{InvList: make([]*InvVect, 0, defaultInvListAlloc)}
}

// AddInvVect adds an inventory vector to the message.
func (msg *MsgGetData) AddInvVect(iv *InvVect) error {
	if len(msg.InvList)+1 > MaxInvPerMsg {
		return errors.Errorf("too many invvect in message [max %d]", MaxInvPerMsg)
	}
	msg.InvList = append(msg.InvList, iv)
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgGetData) Command() string { return CmdGetData }

// Serialize writes the getdata message to w. It shares MsgInv's wire
// encoding.
func (msg *MsgGetData) Serialize(w io.Writer) error {
	return (*MsgInv)(msg).Serialize(w)
}

// Deserialize reads a getdata message from r.
func (msg *MsgGetData) Deserialize(r io.Reader) error {
	return (*MsgInv)(msg).Deserialize(r)
}

// MsgGetBlocks implements a request for a range of blocks identified via a
// block locator, an ordered list of candidate ancestor hashes used to
// identify the most recent common ancestor.
type MsgGetBlocks struct {
	HashStop      chainhash.Hash
	BlockLocators []*chainhash.Hash
}

// NewMsgGetBlocks returns a new getblocks message that conforms to the
// wire protocol.
func NewMsgGetBlocks(hashStop *chainhash.Hash) *MsgGetBlocks {
	return &MsgGetBlocks{
		HashStop:      *hashStop,
		BlockLocators: make([]*chainhash.Hash, 0, defaultInvListAlloc),
	}
}

// AddBlockLocatorHash adds a new block locator hash to the message.
func (msg *MsgGetBlocks) AddBlockLocatorHash(hash *chainhash.Hash) error {
	if len(msg.BlockLocators)+1 > MaxInvPerMsg {
		return errors.Errorf("too many block locator hashes in message [max %d]", MaxInvPerMsg)
	}
	msg.BlockLocators = append(msg.BlockLocators, hash)
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgGetBlocks) Command() string { return CmdGetBlocks }

// Serialize writes the getblocks message to w.
func (msg *MsgGetBlocks) Serialize(w io.Writer) error {
	if _, err := w.Write(msg.HashStop[:]); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(msg.BlockLocators))); err != nil {
		return err
	}
	for _, h := range msg.BlockLocators {
		if _, err := w.Write(h[:]); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize reads a getblocks message from r.
func (msg *MsgGetBlocks) Deserialize(r io.Reader) error {
	if _, err := io.ReadFull(r, msg.HashStop[:]); err != nil {
		return err
	}
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxInvPerMsg {
		return errors.Errorf("too many block locator hashes in message [count %d, max %d]", count, MaxInvPerMsg)
	}
	msg.BlockLocators = make([]*chainhash.Hash, count)
	for i := range msg.BlockLocators {
		var h chainhash.Hash
		if _, err := io.ReadFull(r, h[:]); err != nil {
			return err
		}
		msg.BlockLocators[i] = &h
	}
	return nil
}
