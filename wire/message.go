// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/pkg/errors"
)

// commandSize is the fixed width, in bytes, of a message's command name
// field in the wire header.
const commandSize = 12

// Commands naming every message type the node exchanges with a peer.
const (
	CmdVersion    = "version"
	CmdVerAck     = "verack"
	CmdInv        = "inv"
	CmdGetData    = "getdata"
	CmdGetBlocks  = "getblocks"
	CmdBlock      = "block"
	CmdTx         = "tx"
	CmdPing       = "ping"
	CmdPong       = "pong"
)

// Message is implemented by every wire message type.
type Message interface {
	Command() string
	Serialize(w io.Writer) error
	Deserialize(r io.Reader) error
}

// messageHeader is the fixed-size prefix preceding every message's
// payload: a magic value identifying the network, a zero-padded command
// name, the payload length, and a truncated double-SHA256 checksum of
// the payload.
type messageHeader struct {
	magic    uint32
	command  string
	length   uint32
	checksum [4]byte
}

// NetMagic identifies the network a node is participating in, guarding
// against cross-network message confusion.
type NetMagic uint32

// DefaultNetMagic is used when a caller has no network-specific value to
// supply.
const DefaultNetMagic NetMagic = 0xd9b4bef9

func writeHeader(w io.Writer, magic NetMagic, command string, payload []byte) error {
	if len(command) > commandSize {
		return errors.Errorf("command %q exceeds the %d-byte command field", command, commandSize)
	}
	var cmdBytes [commandSize]byte
	copy(cmdBytes[:], command)

	if err := binary.Write(w, littleEndian, uint32(magic)); err != nil {
		return err
	}
	if _, err := w.Write(cmdBytes[:]); err != nil {
		return err
	}
	if err := binary.Write(w, littleEndian, uint32(len(payload))); err != nil {
		return err
	}
	checksum := chainhash.DoubleHashB(payload)
	if _, err := w.Write(checksum[:4]); err != nil {
		return err
	}
	return nil
}

func readHeader(r io.Reader) (*messageHeader, error) {
	var magic uint32
	if err := binary.Read(r, littleEndian, &magic); err != nil {
		return nil, err
	}
	var cmdBytes [commandSize]byte
	if _, err := io.ReadFull(r, cmdBytes[:]); err != nil {
		return nil, err
	}
	n := 0
	for n < commandSize && cmdBytes[n] != 0 {
		n++
	}
	var length uint32
	if err := binary.Read(r, littleEndian, &length); err != nil {
		return nil, err
	}
	var checksum [4]byte
	if _, err := io.ReadFull(r, checksum[:]); err != nil {
		return nil, err
	}
	return &messageHeader{
		magic:    magic,
		command:  string(cmdBytes[:n]),
		length:   length,
		checksum: checksum,
	}, nil
}

// WriteMessage serializes msg with its wire header and writes it to w
// under the default network magic.
func WriteMessage(w io.Writer, msg Message) error {
	return WriteMessageWithMagic(w, DefaultNetMagic, msg)
}

// WriteMessageWithMagic serializes msg with its wire header, tagged with
// the given network magic, and writes it to w.
func WriteMessageWithMagic(w io.Writer, magic NetMagic, msg Message) error {
	var buf bytes.Buffer
	if err := msg.Serialize(&buf); err != nil {
		return err
	}
	payload := buf.Bytes()
	if len(payload) > MaxMessagePayload {
		return errors.Errorf("message payload of %d bytes exceeds the %d-byte limit", len(payload), MaxMessagePayload)
	}
	if err := writeHeader(w, magic, msg.Command(), payload); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadMessage reads and decodes the next wire message from r.
func ReadMessage(r io.Reader) (Message, error) {
	hdr, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if hdr.length > MaxMessagePayload {
		return nil, errors.Errorf("message payload of %d bytes exceeds the %d-byte limit", hdr.length, MaxMessagePayload)
	}
	payload := make([]byte, hdr.length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	checksum := chainhash.DoubleHashB(payload)
	if string(checksum[:4]) != string(hdr.checksum[:]) {
		return nil, errors.New("message checksum mismatch")
	}

	msg, err := makeEmptyMessage(hdr.command)
	if err != nil {
		return nil, err
	}
	if err := msg.Deserialize(bytes.NewReader(payload)); err != nil {
		return nil, err
	}
	return msg, nil
}

func makeEmptyMessage(command string) (Message, error) {
	switch command {
	case CmdVersion:
		return &MsgVersion{}, nil
	case CmdVerAck:
		return &MsgVerAck{}, nil
	case CmdInv:
		return &MsgInv{}, nil
	case CmdGetData:
		return &MsgGetData{}, nil
	case CmdGetBlocks:
		return &MsgGetBlocks{}, nil
	case CmdBlock:
		return &MsgBlock{}, nil
	case CmdTx:
		return &MsgTx{}, nil
	case CmdPing:
		return &MsgPing{}, nil
	case CmdPong:
		return &MsgPong{}, nil
	default:
		return nil, errors.Errorf("unhandled command %q", command)
	}
}
