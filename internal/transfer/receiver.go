// Package transfer implements the sender and receiver engines: the
// sliding-window send/retransmit loop and the duplicate-suppressing
// receive/ack loop with batched acknowledgements.
package transfer

import (
	"fmt"
	"net"
	"time"

	"github.com/ventosilenzioso/dropline/internal/config"
	"github.com/ventosilenzioso/dropline/internal/fileio"
	"github.com/ventosilenzioso/dropline/internal/metrics"
	"github.com/ventosilenzioso/dropline/internal/wire"
	"github.com/ventosilenzioso/dropline/pkg/logger"
)

// OutputOpener creates the receiver's output file for a given extension.
// Abstracted so tests can substitute an in-memory writer; production code
// uses fileio.CreateOutput, whose failures are wrapped in
// fileio.ErrOutputOpenFailed. A test fake may return any non-nil error —
// handleMeta treats every OutputOpener error identically.
type OutputOpener func(ext string) (fileio.ChunkWriter, error)

// ReceiverState is one transfer's receiver-side bookkeeping.
type ReceiverState struct {
	TransferID    uint64
	FileSize      uint64
	ChunkSize     uint16
	TotalChunks   uint32
	Ext           string
	Received      []bool
	ReceivedCount uint32
	Output        fileio.ChunkWriter
	PendingAcks   []uint32
	LastAckFlush  time.Time
}

// Receiver drives the Discover->Transfer state machine for one run. Once
// constructed with a bound peer address it only accepts DATA from that
// address.
type Receiver struct {
	Conn         *net.UDPConn // data socket
	AckConn      *net.UDPConn // ack socket (send-only)
	AckPort      int
	AckMaxIDs    int
	AckFlushWait time.Duration
	ChosenPeer   *net.UDPAddr // nil until CHOSEN bound it
	OpenOutput   OutputOpener
	Metrics      *metrics.Receiver

	state          *ReceiverState
	lastDataSender *net.UDPAddr
}

// NewReceiver builds a Receiver with the protocol's default thresholds.
func NewReceiver(conn, ackConn *net.UDPConn, ackPort int, opener OutputOpener) *Receiver {
	return &Receiver{
		Conn:         conn,
		AckConn:      ackConn,
		AckPort:      ackPort,
		AckMaxIDs:    config.DefaultAckMaxIDs,
		AckFlushWait: config.DefaultAckFlush,
		OpenOutput:   opener,
	}
}

// Run reads datagrams from the data socket until the transfer completes
// (ReceivedCount == TotalChunks). It returns nil on a clean completion.
func (r *Receiver) Run() error {
	buf := make([]byte, 65536)
	for {
		n, addr, err := r.Conn.ReadFromUDP(buf)
		if err != nil {
			return fmt.Errorf("transfer: receiver read: %w", err)
		}
		if n == 0 {
			continue
		}

		if r.ChosenPeer != nil && !addr.IP.Equal(r.ChosenPeer.IP) {
			continue // datagram from an address other than the bound peer
		}

		done, err := r.handleDatagram(buf[:n], addr)
		if err != nil {
			logger.Warn("receiver: %v", err)
			continue
		}
		if done {
			return nil
		}
	}
}

// handleDatagram dispatches one datagram by frame kind. The bool return is
// true once the installed transfer has received every chunk.
func (r *Receiver) handleDatagram(buf []byte, from *net.UDPAddr) (bool, error) {
	frame, err := wire.ParseFrame(buf)
	if err != nil {
		return false, nil // ShortFrame/UnknownType: drop silently
	}

	switch f := frame.(type) {
	case wire.Meta:
		return r.handleMeta(f), nil

	case wire.Data:
		r.lastDataSender = from
		return r.handleData(f, len(buf))

	default:
		// ACK_BATCH or anything else arriving on the data port is dropped.
		return false, nil
	}
}

// handleMeta installs a new transfer and, when total_chunks is zero,
// completes it immediately — an empty file still gets a zero-length
// received_file.<ext> rather than no file at all.
func (r *Receiver) handleMeta(m wire.Meta) bool {
	ext := wire.ExtString(m.Ext)
	out, err := r.OpenOutput(ext)
	if err != nil {
		logger.Warn("could not open output for extension %q: %v", ext, err)
		return false // discard META, remain ready for the next one
	}

	if r.state != nil {
		logger.Warn("second META (transfer_id=%d) replacing in-progress transfer_id=%d", m.TransferID, r.state.TransferID)
	}

	r.state = &ReceiverState{
		TransferID:   m.TransferID,
		FileSize:     m.FileSize,
		ChunkSize:    m.ChunkSize,
		TotalChunks:  m.TotalChunks,
		Ext:          ext,
		Received:     make([]bool, m.TotalChunks),
		Output:       out,
		LastAckFlush: time.Now(),
	}

	if m.TotalChunks == 0 {
		if err := out.Close(); err != nil {
			logger.Warn("close empty output: %v", err)
		}
		return true
	}
	return false
}

func (r *Receiver) handleData(d wire.Data, datagramLen int) (bool, error) {
	st := r.state
	if st == nil {
		return false, nil // no META installed yet: drop
	}
	if d.TransferID != st.TransferID {
		return false, nil // TransferIdMismatch: drop
	}
	if d.ChunkID >= st.TotalChunks {
		return false, nil // OutOfRangeChunk: drop
	}
	if wire.DataHeaderLen+int(d.PayloadLength) > datagramLen {
		return false, nil // malformed: declared length exceeds datagram
	}

	if st.Received[d.ChunkID] {
		if r.Metrics != nil {
			r.Metrics.DuplicateChunks.Inc()
		}
	} else {
		offset := int64(d.ChunkID) * int64(st.ChunkSize)
		if _, err := st.Output.WriteAt(d.Payload[:d.PayloadLength], offset); err != nil {
			return false, fmt.Errorf("write chunk %d: %w", d.ChunkID, err)
		}
		st.Received[d.ChunkID] = true
		st.ReceivedCount++
		if r.Metrics != nil {
			r.Metrics.ChunksReceived.Inc()
		}
	}
	st.PendingAcks = append(st.PendingAcks, d.ChunkID)
	if r.Metrics != nil {
		r.Metrics.PendingAckQueueLen.Set(float64(len(st.PendingAcks)))
	}

	if r.shouldFlush(st) {
		r.flushAcks(st)
	}

	if st.ReceivedCount == st.TotalChunks {
		r.flushAcks(st)
		if err := st.Output.Sync(); err != nil {
			logger.Warn("sync output: %v", err)
		}
		if err := st.Output.Close(); err != nil {
			logger.Warn("close output: %v", err)
		}
		return true, nil
	}
	return false, nil
}

func (r *Receiver) shouldFlush(st *ReceiverState) bool {
	return len(st.PendingAcks) >= r.AckMaxIDs || time.Since(st.LastAckFlush) >= r.AckFlushWait
}

// flushAcks emits one ACK_BATCH containing every pending id, to the ack
// endpoint derived from the most recent DATA frame's source address. The
// address-match check on DATA already prevents a stray off-peer source
// from redirecting this once ChosenPeer is bound.
func (r *Receiver) flushAcks(st *ReceiverState) {
	if len(st.PendingAcks) == 0 || r.lastDataSender == nil {
		return
	}
	buf, err := wire.EncodeAckBatch(st.TransferID, st.PendingAcks)
	if err != nil {
		logger.Warn("encode ack batch: %v", err)
		return
	}
	dest := &net.UDPAddr{IP: r.lastDataSender.IP, Port: r.AckPort}
	if _, err := r.AckConn.WriteToUDP(buf, dest); err != nil {
		logger.Warn("send ack batch: %v", err)
	}
	if r.Metrics != nil {
		r.Metrics.AckBatchesFlushed.Inc()
		r.Metrics.PendingAckQueueLen.Set(0)
	}
	st.PendingAcks = st.PendingAcks[:0]
	st.LastAckFlush = time.Now()
}
