// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"io"
)

// ProtocolVersion is the version of the wire protocol this package
// implements.
const ProtocolVersion uint32 = 1

// MsgVersion announces a peer's protocol version and chain tip height as
// part of the connection handshake.
type MsgVersion struct {
	ProtocolVersion uint32
	Services        uint64
	Nonce           uint64
	LastBlockHeight int32
	UserAgent       string
}

// Command returns the protocol command string for the message.
func (msg *MsgVersion) Command() string { return CmdVersion }

// Serialize writes the version message to w.
func (msg *MsgVersion) Serialize(w io.Writer) error {
	if err := binary.Write(w, littleEndian, msg.ProtocolVersion); err != nil {
		return err
	}
	if err := binary.Write(w, littleEndian, msg.Services); err != nil {
		return err
	}
	if err := binary.Write(w, littleEndian, msg.Nonce); err != nil {
		return err
	}
	if err := binary.Write(w, littleEndian, msg.LastBlockHeight); err != nil {
		return err
	}
	return WriteVarBytes(w, []byte(msg.UserAgent))
}

// Deserialize reads a version message from r.
func (msg *MsgVersion) Deserialize(r io.Reader) error {
	if err := binary.Read(r, littleEndian, &msg.ProtocolVersion); err != nil {
		return err
	}
	if err := binary.Read(r, littleEndian, &msg.Services); err != nil {
		return err
	}
	if err := binary.Read(r, littleEndian, &msg.Nonce); err != nil {
		return err
	}
	if err := binary.Read(r, littleEndian, &msg.LastBlockHeight); err != nil {
		return err
	}
	ua, err := ReadVarBytes(r, maxScriptPayload, "user agent")
	if err != nil {
		return err
	}
	msg.UserAgent = string(ua)
	return nil
}

// NewMsgVersion returns a version message advertising height as the
// sender's current chain tip.
func NewMsgVersion(nonce uint64, height int32, userAgent string) *MsgVersion {
	return &MsgVersion{
		ProtocolVersion: ProtocolVersion,
		Nonce:           nonce,
		LastBlockHeight: height,
		UserAgent:       userAgent,
	}
}

// MsgVerAck acknowledges a peer's version message, completing the
// handshake.
type MsgVerAck struct{}

// Command returns the protocol command string for the message.
func (msg *MsgVerAck) Command() string { return CmdVerAck }

// Serialize writes nothing; MsgVerAck carries no payload.
func (msg *MsgVerAck) Serialize(w io.Writer) error { return nil }

// Deserialize reads nothing; MsgVerAck carries no payload.
func (msg *MsgVerAck) Deserialize(r io.Reader) error { return nil }

// MsgPing requests a MsgPong carrying the same nonce, used to verify a
// peer connection is still live.
type MsgPing struct {
	Nonce uint64
}

// Command returns the protocol command string for the message.
func (msg *MsgPing) Command() string { return CmdPing }

// Serialize writes the ping message to w.
func (msg *MsgPing) Serialize(w io.Writer) error {
	return binary.Write(w, littleEndian, msg.Nonce)
}

// Deserialize reads a ping message from r.
func (msg *MsgPing) Deserialize(r io.Reader) error {
	return binary.Read(r, littleEndian, &msg.Nonce)
}

// MsgPong answers a MsgPing, echoing its nonce.
type MsgPong struct {
	Nonce uint64
}

// Command returns the protocol command string for the message.
func (msg *MsgPong) Command() string { return CmdPong }

// Serialize writes the pong message to w.
func (msg *MsgPong) Serialize(w io.Writer) error {
	return binary.Write(w, littleEndian, msg.Nonce)
}

// Deserialize reads a pong message from r.
func (msg *MsgPong) Deserialize(r io.Reader) error {
	return binary.Read(r, littleEndian, &msg.Nonce)
}
