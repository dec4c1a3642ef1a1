package transfer

import (
	"fmt"
	"net"
	"time"

	"github.com/ventosilenzioso/dropline/internal/config"
	"github.com/ventosilenzioso/dropline/internal/fileio"
	"github.com/ventosilenzioso/dropline/internal/metrics"
	"github.com/ventosilenzioso/dropline/internal/netsock"
	"github.com/ventosilenzioso/dropline/internal/wire"
	"github.com/ventosilenzioso/dropline/pkg/logger"
)

// SenderState is one transfer's sender-side bookkeeping.
type SenderState struct {
	TransferID  uint64
	FileSize    uint64
	ChunkSize   uint16
	TotalChunks uint32
	Acked       []bool
	InFlight    map[uint32]time.Time
	NextToSend  uint32
	DoneCount   uint32
}

// ProgressFunc is called once per whole percentage point, in order, with no
// gaps. percent is cumulative percent done.
type ProgressFunc func(percent int, done, total uint32)

// Sender drives phase 1 (META) and phase 2 (the windowed send/retransmit
// loop) for one transfer to one chosen peer.
type Sender struct {
	DataConn *net.UDPConn // ephemeral source port, sends META/DATA
	AckConn  *net.UDPConn // bound to AckPort, receives ACK_BATCH
	Peer     *net.UDPAddr // chosen receiver's data endpoint

	Window    int
	RTO       time.Duration
	ChunkSize uint16

	Input    fileio.ChunkReader
	Metrics  *metrics.Sender
	Progress ProgressFunc
}

// NewSender builds a Sender with the protocol's default window, RTO and
// chunk size.
func NewSender(dataConn, ackConn *net.UDPConn, peer *net.UDPAddr, input fileio.ChunkReader) *Sender {
	return &Sender{
		DataConn:  dataConn,
		AckConn:   ackConn,
		Peer:      peer,
		Window:    config.DefaultWindow,
		RTO:       config.DefaultRTO,
		ChunkSize: config.DefaultChunkSize,
		Input:     input,
	}
}

// SendFile runs the complete transfer: one META datagram, then the
// windowed send/retransmit loop until every chunk is acknowledged.
func (s *Sender) SendFile(transferID uint64, fileSize uint64, ext string) error {
	chunkSize := s.ChunkSize
	if chunkSize == 0 {
		chunkSize = config.DefaultChunkSize
	}
	totalChunks := uint32((fileSize + uint64(chunkSize) - 1) / uint64(chunkSize))

	meta := wire.Meta{
		TransferID:  transferID,
		FileSize:    fileSize,
		ChunkSize:   chunkSize,
		TotalChunks: totalChunks,
		Ext:         wire.MakeExt(ext),
	}
	if _, err := s.DataConn.WriteToUDP(wire.EncodeMeta(meta), s.Peer); err != nil {
		return fmt.Errorf("transfer: send META: %w", err)
	}

	st := &SenderState{
		TransferID:  transferID,
		FileSize:    fileSize,
		ChunkSize:   chunkSize,
		TotalChunks: totalChunks,
		Acked:       make([]bool, totalChunks),
		InFlight:    make(map[uint32]time.Time, s.Window),
	}

	lastPercent := 0
	for st.DoneCount < st.TotalChunks {
		s.drainAcks(st, &lastPercent)
		if err := s.fillWindow(st); err != nil {
			return err
		}
		if err := s.retransmitStale(st); err != nil {
			return err
		}
		time.Sleep(config.SenderLoopStep)
	}
	return nil
}

// drainAcks repeatedly performs a non-blocking read on the ack socket,
// applying every complete ACK_BATCH whose transfer_id matches, until the
// socket has no pending datagram.
func (s *Sender) drainAcks(st *SenderState, lastPercent *int) {
	buf := make([]byte, 2048)
	for {
		n, _, err := netsock.ReadNonBlocking(s.AckConn, buf)
		if err != nil {
			return // ErrWouldBlock or a transient socket error: stop draining
		}
		if n < wire.AckBatchHeaderLen {
			continue
		}

		frame, err := wire.ParseFrame(buf[:n])
		if err != nil {
			continue // ShortFrame/UnknownType: dropped silently
		}
		batch, ok := frame.(wire.AckBatch)
		if !ok {
			continue
		}
		if batch.TransferID != st.TransferID {
			continue
		}

		for _, id := range batch.IDs {
			if id >= st.TotalChunks || st.Acked[id] {
				continue
			}
			st.Acked[id] = true
			st.DoneCount++
			delete(st.InFlight, id)
			if s.Metrics != nil {
				s.Metrics.ChunksAcked.Inc()
				s.Metrics.InFlightChunks.Set(float64(len(st.InFlight)))
			}
		}

		s.reportProgress(st, lastPercent)
	}
}

// reportProgress prints one line per whole percentage point crossed since
// the last report, with no gaps, even when one ACK_BATCH jumps several
// points at once.
func (s *Sender) reportProgress(st *SenderState, lastPercent *int) {
	if s.Progress == nil || st.TotalChunks == 0 {
		return
	}
	percent := int((uint64(st.DoneCount) * 100) / uint64(st.TotalChunks))
	for p := *lastPercent + 1; p <= percent; p++ {
		s.Progress(p, st.DoneCount, st.TotalChunks)
	}
	if percent > *lastPercent {
		*lastPercent = percent
	}
}

// fillWindow sends previously-unsent chunks until the window is full or
// every chunk has been sent at least once.
func (s *Sender) fillWindow(st *SenderState) error {
	for len(st.InFlight) < s.Window && st.NextToSend < st.TotalChunks {
		if err := s.sendChunk(st, st.NextToSend); err != nil {
			return fmt.Errorf("transfer: send chunk %d: %w", st.NextToSend, err)
		}
		st.InFlight[st.NextToSend] = time.Now()
		st.NextToSend++
		if s.Metrics != nil {
			s.Metrics.InFlightChunks.Set(float64(len(st.InFlight)))
		}
	}
	return nil
}

// retransmitStale resends every in-flight chunk older than RTO. Traversal
// order is unspecified. A read error from sendChunk is fatal, identically
// to fillWindow, since it can only come from Input.ReadAt.
func (s *Sender) retransmitStale(st *SenderState) error {
	now := time.Now()
	for id, sentAt := range st.InFlight {
		if now.Sub(sentAt) > s.RTO {
			if err := s.sendChunk(st, id); err != nil {
				return fmt.Errorf("transfer: retransmit chunk %d: %w", id, err)
			}
			st.InFlight[id] = now
			if s.Metrics != nil {
				s.Metrics.Retransmits.Inc()
			}
		}
	}
	return nil
}

// sendChunk reads chunk id from the input file and sends it as a DATA
// frame. A read error is fatal to the transfer; a send error is treated
// as transient — the chunk stays in_flight for a future retransmit.
func (s *Sender) sendChunk(st *SenderState, id uint32) error {
	offset := int64(id) * int64(st.ChunkSize)
	size := st.ChunkSize
	if remaining := st.FileSize - uint64(offset); remaining < uint64(size) {
		size = uint16(remaining)
	}

	payload := make([]byte, size)
	if size > 0 {
		n, err := s.Input.ReadAt(payload, offset)
		if err != nil {
			return fmt.Errorf("read input at offset %d: %w", offset, err)
		}
		payload = payload[:n]
	}

	header := wire.EncodeDataHeader(st.TransferID, id, uint16(len(payload)))
	datagram := make([]byte, 0, len(header)+len(payload))
	datagram = append(datagram, header...)
	datagram = append(datagram, payload...)

	if _, err := s.DataConn.WriteToUDP(datagram, s.Peer); err != nil {
		// transient: non-fatal, chunk remains in_flight for the RTO loop
		logger.Warn("send chunk %d: %v", id, err)
		return nil
	}
	if s.Metrics != nil {
		s.Metrics.ChunksSent.Inc()
	}
	return nil
}
