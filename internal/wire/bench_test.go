package wire

import "testing"

func BenchmarkEncodeMeta(b *testing.B) {
	m := Meta{TransferID: 1, FileSize: 1 << 20, ChunkSize: 1200, TotalChunks: 875, Ext: MakeExt("bin")}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = EncodeMeta(m)
	}
}

func BenchmarkEncodeDataHeader(b *testing.B) {
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = EncodeDataHeader(1, uint32(i), 1200)
	}
}

func BenchmarkEncodeAckBatch(b *testing.B) {
	ids := make([]uint32, 256)
	for i := range ids {
		ids[i] = uint32(i)
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = EncodeAckBatch(1, ids)
	}
}

func BenchmarkParseFrameData(b *testing.B) {
	payload := make([]byte, 1200)
	buf := append(EncodeDataHeader(1, 42, uint16(len(payload))), payload...)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = ParseFrame(buf)
	}
}

func BenchmarkParseFrameAckBatch(b *testing.B) {
	ids := make([]uint32, 256)
	buf, _ := EncodeAckBatch(1, ids)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = ParseFrame(buf)
	}
}
