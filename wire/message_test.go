// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/stretchr/testify/require"
)

// roundTrip writes msg through WriteMessage and reads it back through
// ReadMessage, returning the decoded message.
func roundTrip(t *testing.T, msg Message) Message {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, msg), "WriteMessage")
	got, err := ReadMessage(&buf)
	require.NoError(t, err, "ReadMessage")
	return got
}

func TestMessageRoundTripRejectsWrongCommand(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, &MsgVerAck{}); err != nil {
		t.Fatalf("WriteMessage: %s", err)
	}
	raw := buf.Bytes()
	// Corrupt the command field so the reader hits an unhandled command.
	raw[4] = 'x'
	if _, err := ReadMessage(bytes.NewReader(raw)); err == nil {
		t.Fatalf("expected ReadMessage to reject an unrecognized command")
	}
}

func TestMessageRoundTripRejectsBadChecksum(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, &MsgPing{Nonce: 42}); err != nil {
		t.Fatalf("WriteMessage: %s", err)
	}
	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xff
	if _, err := ReadMessage(bytes.NewReader(raw)); err == nil {
		t.Fatalf("expected ReadMessage to reject a tampered payload")
	}
}

func TestVersionRoundTrip(t *testing.T) {
	want := NewMsgVersion(123, 456, "kaspoind/0.1")
	got, ok := roundTrip(t, want).(*MsgVersion)
	if !ok {
		t.Fatalf("got %T, want *MsgVersion", got)
	}
	if got.ProtocolVersion != want.ProtocolVersion || got.Nonce != want.Nonce ||
		got.LastBlockHeight != want.LastBlockHeight || got.UserAgent != want.UserAgent {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestVerAckAndPingPongRoundTrip(t *testing.T) {
	if _, ok := roundTrip(t, &MsgVerAck{}).(*MsgVerAck); !ok {
		t.Fatalf("verack round trip failed")
	}

	ping := &MsgPing{Nonce: 0xdeadbeef}
	got, ok := roundTrip(t, ping).(*MsgPing)
	if !ok || got.Nonce != ping.Nonce {
		t.Fatalf("ping round trip mismatch: got %+v", got)
	}

	pong := &MsgPong{Nonce: 0xfeedface}
	gotPong, ok := roundTrip(t, pong).(*MsgPong)
	if !ok || gotPong.Nonce != pong.Nonce {
		t.Fatalf("pong round trip mismatch: got %+v", gotPong)
	}
}

func TestTxRoundTrip(t *testing.T) {
	want := &MsgTx{
		Version: 1,
		TxIn: []*TxIn{{
			PreviousOutpoint: Outpoint{Hash: chainhash.Hash{0x01, 0x02}, Index: 3},
			SignatureScript:  []byte{0xde, 0xad},
			Sequence:         MaxTxInSequenceNum,
		}},
		TxOut: []*TxOut{{
			Value:    1234,
			PkScript: []byte("payee"),
		}},
		LockTime: 99,
	}
	got, ok := roundTrip(t, want).(*MsgTx)
	if !ok {
		t.Fatalf("got %T, want *MsgTx", got)
	}
	if got.Version != want.Version || got.LockTime != want.LockTime {
		t.Fatalf("tx header mismatch: got %+v", got)
	}
	if len(got.TxIn) != 1 || got.TxIn[0].PreviousOutpoint != want.TxIn[0].PreviousOutpoint {
		t.Fatalf("tx input mismatch: got %s, want %s", spew.Sdump(got.TxIn), spew.Sdump(want.TxIn))
	}
	if len(got.TxOut) != 1 || got.TxOut[0].Value != want.TxOut[0].Value ||
		string(got.TxOut[0].PkScript) != string(want.TxOut[0].PkScript) {
		t.Fatalf("tx output mismatch: got %s, want %s", spew.Sdump(got.TxOut), spew.Sdump(want.TxOut))
	}
	if got.TxHash() != want.TxHash() {
		t.Fatalf("deserialized tx hashes differently than the original")
	}
}

func TestBlockRoundTrip(t *testing.T) {
	tx := &MsgTx{
		Version: 1,
		TxIn: []*TxIn{{
			PreviousOutpoint: Outpoint{Index: 0xffffffff},
			SignatureScript:  []byte{1},
			Sequence:         MaxTxInSequenceNum,
		}},
		TxOut: []*TxOut{{Value: 0, PkScript: nil}},
	}
	want := &MsgBlock{
		Header: BlockHeader{
			Version:    1,
			PrevBlock:  chainhash.Hash{0xaa},
			MerkleRoot: tx.TxHash(),
			Timestamp:  time.Unix(1700000000, 0).UTC(),
			Bits:       0x207fffff,
			Nonce:      7,
		},
		Transactions: []*MsgTx{tx},
	}
	got, ok := roundTrip(t, want).(*MsgBlock)
	if !ok {
		t.Fatalf("got %T, want *MsgBlock", got)
	}
	if got.Header.BlockHash() != want.Header.BlockHash() {
		t.Fatalf("block header round trip changed the derived hash")
	}
	if len(got.Transactions) != 1 || got.Transactions[0].TxHash() != tx.TxHash() {
		t.Fatalf("block transaction round trip mismatch")
	}
}

func TestInvAndGetDataRoundTrip(t *testing.T) {
	hash := chainhash.Hash{0x11, 0x22}

	inv := NewMsgInv()
	if err := inv.AddInvVect(NewInvVect(InvTypeBlock, &hash)); err != nil {
		t.Fatalf("AddInvVect: %s", err)
	}
	got, ok := roundTrip(t, inv).(*MsgInv)
	if !ok || len(got.InvList) != 1 || got.InvList[0].Type != InvTypeBlock || got.InvList[0].Hash != hash {
		t.Fatalf("inv round trip mismatch: got %+v", got)
	}

	getData := NewMsgGetData()
	if err := getData.AddInvVect(NewInvVect(InvTypeTx, &hash)); err != nil {
		t.Fatalf("AddInvVect: %s", err)
	}
	gotGetData, ok := roundTrip(t, getData).(*MsgGetData)
	if !ok || len(gotGetData.InvList) != 1 || gotGetData.InvList[0].Type != InvTypeTx {
		t.Fatalf("getdata round trip mismatch: got %+v", gotGetData)
	}
}

func TestGetBlocksRoundTrip(t *testing.T) {
	hashStop := chainhash.Hash{0x33}
	locatorHash := chainhash.Hash{0x44}

	want := NewMsgGetBlocks(&hashStop)
	if err := want.AddBlockLocatorHash(&locatorHash); err != nil {
		t.Fatalf("AddBlockLocatorHash: %s", err)
	}
	got, ok := roundTrip(t, want).(*MsgGetBlocks)
	if !ok {
		t.Fatalf("got %T, want *MsgGetBlocks", got)
	}
	if got.HashStop != hashStop {
		t.Fatalf("hash stop mismatch: got %s, want %s", got.HashStop, hashStop)
	}
	if len(got.BlockLocators) != 1 || *got.BlockLocators[0] != locatorHash {
		t.Fatalf("block locator mismatch: got %+v", got.BlockLocators)
	}
}

func TestAddInvVectEnforcesMaxInvPerMsg(t *testing.T) {
	inv := &MsgInv{InvList: make([]*InvVect, MaxInvPerMsg)}
	if err := inv.AddInvVect(&InvVect{}); err == nil {
		t.Fatalf("expected AddInvVect to reject exceeding MaxInvPerMsg")
	}
}
