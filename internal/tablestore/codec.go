package tablestore

import (
	"encoding/binary"
	"fmt"

	"isdb/internal/domain"
)

// ISDB data file layout:
//
//	[HEADER]  magic "ISBD", version byte, u16 column count, u64 row count
//	per column: u8 name length, name bytes, type byte (0=int64, 1=text),
//	            u64 payload offset, u64 payload length,
//	            (text only) u64 lengths-payload length
//	[DATA]    column payloads at the recorded offsets; a text column's
//	          lengths payload sits directly after its data payload
//	[FOOTER]  magic "ENDC"
//
// All integers are little-endian.
var (
	fileMagic  = [4]byte{'I', 'S', 'B', 'D'}
	fileFooter = [4]byte{'E', 'N', 'D', 'C'}
)

const formatVersion byte = 1

const (
	typeByteInt64 byte = 0
	typeByteText  byte = 1
)

// Serializer encodes and decodes tables in the ISDB file format with a fixed
// pair of column codecs.
type Serializer struct {
	ints  IntCodec
	texts TextCodec
}

// NewSerializer returns the default serializer: varint-delta ints, LZ4 text.
func NewSerializer() *Serializer {
	return &Serializer{ints: VarintDeltaCodec{}, texts: LZ4TextCodec{}}
}

// NewSerializerUncompressed returns a serializer that stores raw payloads.
// The format is self-describing either way, but files written by one
// serializer must be read back with the same one.
func NewSerializerUncompressed() *Serializer {
	return &Serializer{ints: RawIntCodec{}, texts: RawTextCodec{}}
}

// Encode serializes a table into the ISDB layout.
func (s *Serializer) Encode(t *Table) ([]byte, error) {
	type encoded struct {
		payload []byte
		lengths []byte // text columns only
	}

	cols := make([]encoded, len(t.Columns))
	headerSize := 4 + 1 + 2 + 8
	for i := range t.Columns {
		col := &t.Columns[i]
		if len(col.Name) > 255 {
			return nil, fmt.Errorf("column name %q exceeds 255 bytes", col.Name)
		}
		headerSize += 1 + len(col.Name) + 1 + 16
		switch col.Type {
		case domain.TypeInt64:
			cols[i].payload = s.ints.Compress(col.Ints)
		case domain.TypeText:
			data, lengths := s.texts.Compress(col.Texts)
			cols[i].payload = data
			cols[i].lengths = s.ints.Compress(lengths)
			headerSize += 8
		default:
			return nil, fmt.Errorf("column %q has unsupported type %v", col.Name, col.Type)
		}
	}

	buf := make([]byte, 0, headerSize)
	buf = append(buf, fileMagic[:]...)
	buf = append(buf, formatVersion)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(t.Columns)))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(t.NumRows))

	offset := uint64(headerSize)
	for i := range t.Columns {
		col := &t.Columns[i]
		buf = append(buf, byte(len(col.Name)))
		buf = append(buf, col.Name...)
		if col.Type == domain.TypeText {
			buf = append(buf, typeByteText)
		} else {
			buf = append(buf, typeByteInt64)
		}
		buf = binary.LittleEndian.AppendUint64(buf, offset)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(cols[i].payload)))
		offset += uint64(len(cols[i].payload))
		if col.Type == domain.TypeText {
			buf = binary.LittleEndian.AppendUint64(buf, uint64(len(cols[i].lengths)))
			offset += uint64(len(cols[i].lengths))
		}
	}
	if len(buf) != headerSize {
		return nil, fmt.Errorf("header size mismatch: computed %d, wrote %d", headerSize, len(buf))
	}

	for i := range cols {
		buf = append(buf, cols[i].payload...)
		buf = append(buf, cols[i].lengths...)
	}
	buf = append(buf, fileFooter[:]...)
	return buf, nil
}

// Decode parses an ISDB file back into a table. Any structural defect is a
// CorruptError; data files are never partially loaded.
func (s *Serializer) Decode(data []byte) (*Table, error) {
	if len(data) < 4+1+2+8+4 {
		return nil, domain.ErrCorrupt("data file too short (%d bytes)", len(data))
	}
	if [4]byte(data[:4]) != fileMagic {
		return nil, domain.ErrCorrupt("bad data file magic")
	}
	if [4]byte(data[len(data)-4:]) != fileFooter {
		return nil, domain.ErrCorrupt("bad data file footer")
	}
	if v := data[4]; v != formatVersion {
		return nil, domain.ErrCorrupt("unsupported data file version %d", v)
	}

	numCols := int(binary.LittleEndian.Uint16(data[5:]))
	numRows := binary.LittleEndian.Uint64(data[7:])
	body := data[:len(data)-4]

	type colDesc struct {
		name       string
		typ        domain.ColumnType
		offset     uint64
		length     uint64
		lengthsLen uint64
	}

	pos := 15
	descs := make([]colDesc, 0, numCols)
	for i := 0; i < numCols; i++ {
		if pos+1 > len(body) {
			return nil, domain.ErrCorrupt("truncated column directory")
		}
		nameLen := int(body[pos])
		pos++
		if pos+nameLen+1+16 > len(body) {
			return nil, domain.ErrCorrupt("truncated column directory")
		}
		desc := colDesc{name: string(body[pos : pos+nameLen])}
		pos += nameLen
		switch body[pos] {
		case typeByteInt64:
			desc.typ = domain.TypeInt64
		case typeByteText:
			desc.typ = domain.TypeText
		default:
			return nil, domain.ErrCorrupt("column %q has unknown type byte %d", desc.name, body[pos])
		}
		pos++
		desc.offset = binary.LittleEndian.Uint64(body[pos:])
		desc.length = binary.LittleEndian.Uint64(body[pos+8:])
		pos += 16
		if desc.typ == domain.TypeText {
			if pos+8 > len(body) {
				return nil, domain.ErrCorrupt("truncated column directory")
			}
			desc.lengthsLen = binary.LittleEndian.Uint64(body[pos:])
			pos += 8
		}
		descs = append(descs, desc)
	}

	table := &Table{NumRows: int(numRows), Columns: make([]Column, 0, numCols)}
	for _, desc := range descs {
		end := desc.offset + desc.length + desc.lengthsLen
		if desc.offset > uint64(len(body)) || end > uint64(len(body)) || end < desc.offset {
			return nil, domain.ErrCorrupt("column %q payload out of bounds", desc.name)
		}
		payload := body[desc.offset : desc.offset+desc.length]

		col := Column{Name: desc.name, Type: desc.typ}
		switch desc.typ {
		case domain.TypeInt64:
			values, err := s.ints.Decompress(payload)
			if err != nil {
				return nil, domain.ErrCorrupt("column %q: %v", desc.name, err)
			}
			col.Ints = values
		case domain.TypeText:
			lengthsPayload := body[desc.offset+desc.length : end]
			lengths, err := s.ints.Decompress(lengthsPayload)
			if err != nil {
				return nil, domain.ErrCorrupt("column %q lengths: %v", desc.name, err)
			}
			values, err := s.texts.Decompress(payload, lengths)
			if err != nil {
				return nil, domain.ErrCorrupt("column %q: %v", desc.name, err)
			}
			col.Texts = values
		}
		if col.Len() != table.NumRows {
			return nil, domain.ErrCorrupt("column %q has %d values, file declares %d rows",
				desc.name, col.Len(), table.NumRows)
		}
		table.Columns = append(table.Columns, col)
	}
	return table, nil
}
