// Package wire implements the on-wire codec for the three frame kinds the
// protocol exchanges: META, DATA and ACK_BATCH. All integer fields are
// big-endian; there is no padding between fields and the type byte always
// comes first.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// FrameKind is the one-byte type tag every frame starts with.
type FrameKind byte

const (
	KindMeta     FrameKind = 1
	KindData     FrameKind = 2
	kindReserved FrameKind = 3 // TERMINATION, not used by the core
	KindAckBatch FrameKind = 4
)

const (
	// MetaLen is the exact wire size of a META frame.
	MetaLen = 1 + 8 + 8 + 2 + 4 + 4
	// DataHeaderLen is the size of a DATA frame's header, payload excluded.
	DataHeaderLen = 1 + 8 + 4 + 2
	// AckBatchHeaderLen is the size of an ACK_BATCH frame's header, ids excluded.
	AckBatchHeaderLen = 1 + 8 + 2
	// MaxAckIDs is the largest number of chunk ids one ACK_BATCH may carry.
	MaxAckIDs = 256
	// ExtFieldLen is the wire width of META's ext field.
	ExtFieldLen = 4
)

var (
	ErrShortFrame  = errors.New("wire: frame shorter than its declared kind requires")
	ErrUnknownType = errors.New("wire: unrecognized frame type byte")
	ErrTooManyAcks = errors.New("wire: ack batch exceeds 256 ids")
)

// Meta is the first frame of a transfer: total size, chunking parameters and
// the file extension the receiver should name its output with.
type Meta struct {
	TransferID  uint64
	FileSize    uint64
	ChunkSize   uint16
	TotalChunks uint32
	Ext         [ExtFieldLen]byte
}

// Data is one numbered chunk. Payload is the slice immediately following the
// 15-byte header in the datagram; callers that scatter-gather send keep the
// header and payload as separate buffers.
type Data struct {
	TransferID    uint64
	ChunkID       uint32
	PayloadLength uint16
	Payload       []byte
}

// AckBatch acknowledges up to 256 chunk ids for one transfer in a single
// datagram. Ids carry no ordering; the receiving sender treats them as a set.
type AckBatch struct {
	TransferID uint64
	IDs        []uint32
}

// EncodeMeta emits exactly MetaLen bytes in field order.
func EncodeMeta(m Meta) []byte {
	buf := make([]byte, MetaLen)
	buf[0] = byte(KindMeta)
	binary.BigEndian.PutUint64(buf[1:9], m.TransferID)
	binary.BigEndian.PutUint64(buf[9:17], m.FileSize)
	binary.BigEndian.PutUint16(buf[17:19], m.ChunkSize)
	binary.BigEndian.PutUint32(buf[19:23], m.TotalChunks)
	copy(buf[23:27], m.Ext[:])
	return buf
}

// EncodeDataHeader emits exactly DataHeaderLen bytes; the caller appends the
// payload as a separate buffer (supports scatter-gather send).
func EncodeDataHeader(transferID uint64, chunkID uint32, payloadLength uint16) []byte {
	buf := make([]byte, DataHeaderLen)
	buf[0] = byte(KindData)
	binary.BigEndian.PutUint64(buf[1:9], transferID)
	binary.BigEndian.PutUint32(buf[9:13], chunkID)
	binary.BigEndian.PutUint16(buf[13:15], payloadLength)
	return buf
}

// EncodeAckBatch emits AckBatchHeaderLen + 4*len(ids) bytes. The caller must
// ensure len(ids) <= MaxAckIDs.
func EncodeAckBatch(transferID uint64, ids []uint32) ([]byte, error) {
	if len(ids) > MaxAckIDs {
		return nil, ErrTooManyAcks
	}
	buf := make([]byte, AckBatchHeaderLen+4*len(ids))
	buf[0] = byte(KindAckBatch)
	binary.BigEndian.PutUint64(buf[1:9], transferID)
	binary.BigEndian.PutUint16(buf[9:11], uint16(len(ids)))
	off := AckBatchHeaderLen
	for _, id := range ids {
		binary.BigEndian.PutUint32(buf[off:off+4], id)
		off += 4
	}
	return buf, nil
}

// MakeExt truncates an extension to at most 3 visible characters and
// zero-pads it so a trailing NUL always fits in the 4-byte field.
func MakeExt(ext string) [ExtFieldLen]byte {
	var out [ExtFieldLen]byte
	n := len(ext)
	if n > ExtFieldLen-1 {
		n = ExtFieldLen - 1
	}
	copy(out[:n], ext[:n])
	return out
}

// ExtString trims the NUL padding from a META ext field.
func ExtString(ext [ExtFieldLen]byte) string {
	for i, b := range ext {
		if b == 0 {
			return string(ext[:i])
		}
	}
	return string(ext[:])
}

// ParseFrame inspects buf[0] and decodes the corresponding frame. It never
// allocates beyond the frame's own fields and never validates semantic
// bounds (chunk_id < total_chunks, payload_length vs datagram length) —
// that is the engines' responsibility.
func ParseFrame(buf []byte) (interface{}, error) {
	if len(buf) < 1 {
		return nil, ErrShortFrame
	}

	switch FrameKind(buf[0]) {
	case KindMeta:
		if len(buf) < MetaLen {
			return nil, ErrShortFrame
		}
		var m Meta
		m.TransferID = binary.BigEndian.Uint64(buf[1:9])
		m.FileSize = binary.BigEndian.Uint64(buf[9:17])
		m.ChunkSize = binary.BigEndian.Uint16(buf[17:19])
		m.TotalChunks = binary.BigEndian.Uint32(buf[19:23])
		copy(m.Ext[:], buf[23:27])
		return m, nil

	case KindData:
		if len(buf) < DataHeaderLen {
			return nil, ErrShortFrame
		}
		d := Data{
			TransferID:    binary.BigEndian.Uint64(buf[1:9]),
			ChunkID:       binary.BigEndian.Uint32(buf[9:13]),
			PayloadLength: binary.BigEndian.Uint16(buf[13:15]),
		}
		d.Payload = buf[DataHeaderLen:]
		return d, nil

	case KindAckBatch:
		if len(buf) < AckBatchHeaderLen {
			return nil, ErrShortFrame
		}
		transferID := binary.BigEndian.Uint64(buf[1:9])
		count := binary.BigEndian.Uint16(buf[9:11])
		need := AckBatchHeaderLen + int(count)*4
		if len(buf) < need {
			return nil, ErrShortFrame
		}
		ids := make([]uint32, count)
		off := AckBatchHeaderLen
		for i := range ids {
			ids[i] = binary.BigEndian.Uint32(buf[off : off+4])
			off += 4
		}
		return AckBatch{TransferID: transferID, IDs: ids}, nil

	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownType, buf[0])
	}
}
