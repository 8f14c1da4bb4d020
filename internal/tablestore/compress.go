package tablestore

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// IntCodec compresses int64 column payloads.
type IntCodec interface {
	Compress(values []int64) []byte
	Decompress(data []byte) ([]int64, error)
}

// TextCodec compresses text column payloads. Per-value lengths travel
// separately so they can be compressed with the int codec.
type TextCodec interface {
	Compress(values []string) (data []byte, lengths []int64)
	Decompress(data []byte, lengths []int64) ([]string, error)
}

// VarintDeltaCodec delta-encodes consecutive values and stores the deltas as
// signed varints. Sorted or slowly-changing columns compress well; worst
// case is ~10 bytes per value.
type VarintDeltaCodec struct{}

func (VarintDeltaCodec) Compress(values []int64) []byte {
	buf := make([]byte, 0, len(values)*2)
	var tmp [binary.MaxVarintLen64]byte
	var last int64
	for _, v := range values {
		n := binary.PutVarint(tmp[:], v-last)
		buf = append(buf, tmp[:n]...)
		last = v
	}
	return buf
}

func (VarintDeltaCodec) Decompress(data []byte) ([]int64, error) {
	var values []int64
	var last int64
	for len(data) > 0 {
		delta, n := binary.Varint(data)
		if n <= 0 {
			return nil, fmt.Errorf("truncated varint in int column payload")
		}
		last += delta
		values = append(values, last)
		data = data[n:]
	}
	return values, nil
}

// RawIntCodec stores fixed-width little-endian values.
type RawIntCodec struct{}

func (RawIntCodec) Compress(values []int64) []byte {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[8*i:], uint64(v))
	}
	return buf
}

func (RawIntCodec) Decompress(data []byte) ([]int64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("raw int column payload length %d is not a multiple of 8", len(data))
	}
	values := make([]int64, len(data)/8)
	for i := range values {
		values[i] = int64(binary.LittleEndian.Uint64(data[8*i:]))
	}
	return values, nil
}

// Text payload flag bytes.
const (
	textPayloadRaw byte = 0
	textPayloadLZ4 byte = 1
)

// LZ4TextCodec concatenates the values and LZ4 block-compresses the bytes.
// The payload is [uvarint raw length][flag][bytes]; incompressible data is
// stored raw so decoding never grows the file.
type LZ4TextCodec struct{}

func (LZ4TextCodec) Compress(values []string) ([]byte, []int64) {
	raw, lengths := concatTexts(values)

	var head [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(head[:], uint64(len(raw)))

	if len(raw) > 0 {
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		var c lz4.Compressor
		written, err := c.CompressBlock(raw, dst)
		if err == nil && written > 0 && written < len(raw) {
			payload := make([]byte, 0, n+1+written)
			payload = append(payload, head[:n]...)
			payload = append(payload, textPayloadLZ4)
			payload = append(payload, dst[:written]...)
			return payload, lengths
		}
	}

	payload := make([]byte, 0, n+1+len(raw))
	payload = append(payload, head[:n]...)
	payload = append(payload, textPayloadRaw)
	payload = append(payload, raw...)
	return payload, lengths
}

func (LZ4TextCodec) Decompress(data []byte, lengths []int64) ([]string, error) {
	rawLen, n := binary.Uvarint(data)
	if n <= 0 || len(data) < n+1 {
		return nil, fmt.Errorf("truncated text column payload")
	}
	flag := data[n]
	body := data[n+1:]

	var raw []byte
	switch flag {
	case textPayloadRaw:
		raw = body
	case textPayloadLZ4:
		raw = make([]byte, rawLen)
		written, err := lz4.UncompressBlock(body, raw)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress text column: %w", err)
		}
		raw = raw[:written]
	default:
		return nil, fmt.Errorf("unknown text payload flag %d", flag)
	}
	if uint64(len(raw)) != rawLen {
		return nil, fmt.Errorf("text column payload: expected %d bytes, got %d", rawLen, len(raw))
	}
	return splitTexts(raw, lengths)
}

// RawTextCodec stores the concatenated bytes unmodified, behind the same
// flagged payload framing as LZ4TextCodec.
type RawTextCodec struct{}

func (RawTextCodec) Compress(values []string) ([]byte, []int64) {
	raw, lengths := concatTexts(values)

	var head [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(head[:], uint64(len(raw)))

	payload := make([]byte, 0, n+1+len(raw))
	payload = append(payload, head[:n]...)
	payload = append(payload, textPayloadRaw)
	payload = append(payload, raw...)
	return payload, lengths
}

func (RawTextCodec) Decompress(data []byte, lengths []int64) ([]string, error) {
	return LZ4TextCodec{}.Decompress(data, lengths)
}

func concatTexts(values []string) ([]byte, []int64) {
	total := 0
	lengths := make([]int64, len(values))
	for i, v := range values {
		total += len(v)
		lengths[i] = int64(len(v))
	}
	raw := make([]byte, 0, total)
	for _, v := range values {
		raw = append(raw, v...)
	}
	return raw, lengths
}

func splitTexts(raw []byte, lengths []int64) ([]string, error) {
	values := make([]string, 0, len(lengths))
	offset := int64(0)
	for _, l := range lengths {
		if l < 0 || offset+l > int64(len(raw)) {
			return nil, fmt.Errorf("text column lengths exceed payload size")
		}
		values = append(values, string(raw[offset:offset+l]))
		offset += l
	}
	if offset != int64(len(raw)) {
		return nil, fmt.Errorf("text column payload has %d trailing bytes", int64(len(raw))-offset)
	}
	return values, nil
}
