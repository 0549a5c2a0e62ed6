package dataset

import (
	"bytes"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic opens every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var compressEncoder, _ = zstd.NewWriter(nil)

// CompressBytes encodes src as a single zstd frame.
func CompressBytes(src []byte) []byte {
	return compressEncoder.EncodeAll(src, make([]byte, 0, len(src)))
}

// Create a reader that caches decompressors.
// For this operation type we supply a nil Reader.
var compressDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))

// DecompressBytes decodes a whole buffer, e.g. a mapped dataset file.
func DecompressBytes(src []byte) ([]byte, error) {
	return compressDecoder.DecodeAll(src, nil)
}

// IsCompressed reports whether head starts with a zstd frame.
func IsCompressed(head []byte) bool {
	return bytes.HasPrefix(head, zstdMagic)
}
