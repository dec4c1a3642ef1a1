package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeParseMetaRoundTrip(t *testing.T) {
	m := Meta{
		TransferID:  42,
		FileSize:    123456,
		ChunkSize:   1200,
		TotalChunks: 103,
		Ext:         MakeExt("txt"),
	}

	buf := EncodeMeta(m)
	if len(buf) != MetaLen {
		t.Fatalf("encoded META length = %d, want %d", len(buf), MetaLen)
	}

	got, err := ParseFrame(buf)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}

	parsed, ok := got.(Meta)
	if !ok {
		t.Fatalf("ParseFrame returned %T, want Meta", got)
	}
	if parsed != m {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", parsed, m)
	}
}

func TestExtStringTrimsNUL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"txt", "txt"},
		{"mp4", "mp4"},
		{"", ""},
		{"longext", "lon"}, // truncated to 3 visible chars by MakeExt
	}
	for _, c := range cases {
		ext := MakeExt(c.in)
		if got := ExtString(ext); got != c.want {
			t.Errorf("ExtString(MakeExt(%q)) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestEncodeParseDataRoundTrip(t *testing.T) {
	payload := []byte("aevin")
	header := EncodeDataHeader(7, 0, uint16(len(payload)))
	buf := append(append([]byte{}, header...), payload...)

	if len(header) != DataHeaderLen {
		t.Fatalf("data header length = %d, want %d", len(header), DataHeaderLen)
	}

	got, err := ParseFrame(buf)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	d, ok := got.(Data)
	if !ok {
		t.Fatalf("ParseFrame returned %T, want Data", got)
	}
	if d.TransferID != 7 || d.ChunkID != 0 || d.PayloadLength != uint16(len(payload)) {
		t.Fatalf("parsed header mismatch: %+v", d)
	}
	if !bytes.Equal(d.Payload, payload) {
		t.Fatalf("parsed payload = %q, want %q", d.Payload, payload)
	}
}

func TestEncodeParseAckBatchRoundTrip(t *testing.T) {
	ids := []uint32{0, 1, 2, 5, 9999}
	buf, err := EncodeAckBatch(99, ids)
	if err != nil {
		t.Fatalf("EncodeAckBatch: %v", err)
	}
	wantLen := AckBatchHeaderLen + 4*len(ids)
	if len(buf) != wantLen {
		t.Fatalf("encoded ACK_BATCH length = %d, want %d", len(buf), wantLen)
	}

	got, err := ParseFrame(buf)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	batch, ok := got.(AckBatch)
	if !ok {
		t.Fatalf("ParseFrame returned %T, want AckBatch", got)
	}
	if batch.TransferID != 99 {
		t.Fatalf("TransferID = %d, want 99", batch.TransferID)
	}
	if len(batch.IDs) != len(ids) {
		t.Fatalf("len(IDs) = %d, want %d", len(batch.IDs), len(ids))
	}
	for i, id := range ids {
		if batch.IDs[i] != id {
			t.Fatalf("IDs[%d] = %d, want %d", i, batch.IDs[i], id)
		}
	}
}

func TestEncodeAckBatchRejectsTooMany(t *testing.T) {
	ids := make([]uint32, MaxAckIDs+1)
	if _, err := EncodeAckBatch(1, ids); !errors.Is(err, ErrTooManyAcks) {
		t.Fatalf("EncodeAckBatch with %d ids: err = %v, want ErrTooManyAcks", len(ids), err)
	}
}

func TestParseFrameEmptyBuffer(t *testing.T) {
	if _, err := ParseFrame(nil); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("ParseFrame(nil): err = %v, want ErrShortFrame", err)
	}
}

func TestParseFrameUnknownType(t *testing.T) {
	if _, err := ParseFrame([]byte{0x7f}); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("ParseFrame(unknown): err = %v, want ErrUnknownType", err)
	}
}

func TestParseFrameShortMeta(t *testing.T) {
	buf := EncodeMeta(Meta{})
	if _, err := ParseFrame(buf[:MetaLen-1]); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("ParseFrame(short META): err = %v, want ErrShortFrame", err)
	}
}

func TestParseFrameShortData(t *testing.T) {
	if _, err := ParseFrame([]byte{byte(KindData), 0, 0, 0}); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("ParseFrame(short DATA): err = %v, want ErrShortFrame", err)
	}
}

func TestParseFrameShortAckBatchDeclaredCount(t *testing.T) {
	// Declares 2 ids but only carries 1.
	buf, err := EncodeAckBatch(1, []uint32{5})
	if err != nil {
		t.Fatalf("EncodeAckBatch: %v", err)
	}
	buf[9], buf[10] = 0, 2
	if _, err := ParseFrame(buf); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("ParseFrame(truncated ACK_BATCH): err = %v, want ErrShortFrame", err)
	}
}

func TestParseFrameDoesNotValidateChunkIDRange(t *testing.T) {
	// chunk_id >= total_chunks is the engine's job, not the codec's.
	header := EncodeDataHeader(1, 0xffffffff, 0)
	got, err := ParseFrame(header)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if got.(Data).ChunkID != 0xffffffff {
		t.Fatalf("codec unexpectedly rejected an out-of-range chunk id")
	}
}
