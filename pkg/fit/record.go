package fit

import (
	"encoding/binary"
	"fmt"
)

// TimestampField is the field number FIT reserves for timestamps
const TimestampField = 253

// InvalidTimestamp marks an unset uint32 timestamp
const InvalidTimestamp = 0xFFFFFFFF

const (
	compressedMask = 0x80
	definitionMask = 0x40
	developerMask  = 0x20
	reservedMask   = 0x10
	localTypeMask  = 0x0F
	timeOffsetMask = 0x1F

	definitionFixedSize = 5 // reserved, arch, global(2), field count
	fieldDefSize        = 3
)

// Kind identifies the framing of a record
type Kind uint8

const (
	KindDefinition Kind = iota + 1
	KindData
	KindCompressed
)

func (k Kind) String() string {
	switch k {
	case KindDefinition:
		return "definition"
	case KindData:
		return "data"
	case KindCompressed:
		return "compressed"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// baseTypeSizes maps every FIT base type to its width in bytes
var baseTypeSizes = map[uint8]int{
	0x00: 1, // enum
	0x01: 1, // sint8
	0x02: 1, // uint8
	0x83: 2, // sint16
	0x84: 2, // uint16
	0x85: 4, // sint32
	0x86: 4, // uint32
	0x07: 1, // string
	0x88: 4, // float32
	0x89: 8, // float64
	0x0A: 1, // uint8z
	0x8B: 2, // uint16z
	0x8C: 4, // uint32z
	0x0D: 1, // byte
	0x8E: 8, // sint64
	0x8F: 8, // uint64
	0x90: 8, // uint64z
}

// BaseTypeSize returns the width of a base type, or 0 if it is unknown
func BaseTypeSize(baseType uint8) int {
	return baseTypeSizes[baseType]
}

// Field is one entry of a definition record
type Field struct {
	Number   uint8
	Size     uint8
	BaseType uint8 // dev data index for developer fields
}

// Definition describes the layout of data records for one local type
type Definition struct {
	LocalType    uint8
	BigEndian    bool
	GlobalNumber uint16
	Fields       []Field
	DevFields    []Field

	dataSize  int
	timestamp int // offset of the timestamp inside a data body, -1 if none
}

// DataSize returns the body length of data records using this definition
func (d *Definition) DataSize() int {
	return d.dataSize
}

// HasTimestamp reports whether data records carry a full timestamp
func (d *Definition) HasTimestamp() bool {
	return d.timestamp >= 0
}

// State is the decoding context at a record boundary. It is a value type:
// copying it snapshots the context.
type State struct {
	defs          [16]*Definition
	LastTimestamp uint32
	HasTimestamp  bool
}

// Definition returns the active definition for a local type, or nil
func (s *State) Definition(local uint8) *Definition {
	return s.defs[local&localTypeMask]
}

// Record is one decoded unit of the payload
type Record struct {
	Kind         Kind
	Offset       int // Offset of the record header byte
	Length       int // Total bytes consumed, header byte included
	LocalType    uint8
	GlobalNumber uint16
	Timestamp    uint32
	HasTimestamp bool
	Raw          []byte
}

// End returns the offset just past the record
func (r Record) End() int {
	return r.Offset + r.Length
}

// DecodeRecord decodes the record starting at off. It returns the record
// and the state that applies after it; on error st is returned unchanged.
func DecodeRecord(buf []byte, off int, st State) (Record, State, error) {
	if off < 0 || off >= len(buf) {
		return Record{}, st, fmt.Errorf("%w: no record header at offset %d", ErrTruncated, off)
	}

	hdr := buf[off]
	switch {
	case hdr&compressedMask != 0:
		return decodeCompressed(buf, off, st)
	case hdr&reservedMask != 0:
		return Record{}, st, fmt.Errorf("%w: reserved bit set in record header %#02x at offset %d", ErrMalformed, hdr, off)
	case hdr&definitionMask != 0:
		return decodeDefinition(buf, off, st)
	case hdr&developerMask != 0:
		return Record{}, st, fmt.Errorf("%w: developer flag on data record header %#02x at offset %d", ErrMalformed, hdr, off)
	default:
		return decodeData(buf, off, st)
	}
}

func decodeDefinition(buf []byte, off int, st State) (Record, State, error) {
	hdr := buf[off]
	body := off + 1

	if len(buf) < body+definitionFixedSize {
		return Record{}, st, fmt.Errorf("%w: definition at offset %d", ErrTruncated, off)
	}
	if buf[body] != 0 {
		return Record{}, st, fmt.Errorf("%w: definition reserved byte %#02x at offset %d", ErrMalformed, buf[body], off)
	}
	arch := buf[body+1]
	if arch > 1 {
		return Record{}, st, fmt.Errorf("%w: architecture %d at offset %d", ErrMalformed, arch, off)
	}

	def := &Definition{
		LocalType: hdr & localTypeMask,
		BigEndian: arch == 1,
		timestamp: -1,
	}
	if def.BigEndian {
		def.GlobalNumber = binary.BigEndian.Uint16(buf[body+2:])
	} else {
		def.GlobalNumber = binary.LittleEndian.Uint16(buf[body+2:])
	}

	pos := body + definitionFixedSize
	fields, pos, err := decodeFields(buf, pos, int(buf[body+4]), false)
	if err != nil {
		return Record{}, st, fmt.Errorf("%w at offset %d", err, off)
	}
	def.Fields = fields

	if hdr&developerMask != 0 {
		if len(buf) < pos+1 {
			return Record{}, st, fmt.Errorf("%w: developer field count at offset %d", ErrTruncated, off)
		}
		count := int(buf[pos])
		def.DevFields, pos, err = decodeFields(buf, pos+1, count, true)
		if err != nil {
			return Record{}, st, fmt.Errorf("%w at offset %d", err, off)
		}
	}

	for _, f := range def.Fields {
		if f.Number == TimestampField && f.Size == 4 && def.timestamp < 0 {
			def.timestamp = def.dataSize
		}
		def.dataSize += int(f.Size)
	}
	for _, f := range def.DevFields {
		def.dataSize += int(f.Size)
	}

	rec := Record{
		Kind:         KindDefinition,
		Offset:       off,
		Length:       pos - off,
		LocalType:    def.LocalType,
		GlobalNumber: def.GlobalNumber,
		Raw:          buf[off:pos],
	}
	st.defs[def.LocalType] = def
	return rec, st, nil
}

func decodeFields(buf []byte, pos, count int, developer bool) ([]Field, int, error) {
	end := pos + count*fieldDefSize
	if len(buf) < end {
		return nil, pos, fmt.Errorf("%w: %d field definitions", ErrTruncated, count)
	}

	fields := make([]Field, 0, count)
	for ; pos < end; pos += fieldDefSize {
		f := Field{Number: buf[pos], Size: buf[pos+1], BaseType: buf[pos+2]}
		if f.Size == 0 {
			return nil, pos, fmt.Errorf("%w: field %d has zero size", ErrMalformed, f.Number)
		}
		if !developer {
			width := BaseTypeSize(f.BaseType)
			if width == 0 {
				return nil, pos, fmt.Errorf("%w: field %d has unknown base type %#02x", ErrMalformed, f.Number, f.BaseType)
			}
			if int(f.Size)%width != 0 {
				return nil, pos, fmt.Errorf("%w: field %d size %d is not a multiple of %d", ErrMalformed, f.Number, f.Size, width)
			}
		}
		fields = append(fields, f)
	}
	return fields, end, nil
}

func decodeData(buf []byte, off int, st State) (Record, State, error) {
	local := buf[off] & localTypeMask
	def := st.defs[local]
	if def == nil {
		return Record{}, st, fmt.Errorf("%w: data for undefined local type %d at offset %d", ErrMalformed, local, off)
	}

	end := off + 1 + def.dataSize
	if len(buf) < end {
		return Record{}, st, fmt.Errorf("%w: data record needs %d bytes at offset %d", ErrTruncated, def.dataSize+1, off)
	}

	rec := Record{
		Kind:         KindData,
		Offset:       off,
		Length:       end - off,
		LocalType:    local,
		GlobalNumber: def.GlobalNumber,
		Raw:          buf[off:end],
	}

	if def.timestamp >= 0 {
		field := buf[off+1+def.timestamp:]
		var ts uint32
		if def.BigEndian {
			ts = binary.BigEndian.Uint32(field)
		} else {
			ts = binary.LittleEndian.Uint32(field)
		}
		if ts != InvalidTimestamp {
			rec.Timestamp, rec.HasTimestamp = ts, true
			st.LastTimestamp, st.HasTimestamp = ts, true
		}
	}

	return rec, st, nil
}

func decodeCompressed(buf []byte, off int, st State) (Record, State, error) {
	hdr := buf[off]
	local := (hdr >> 5) & 0x03
	def := st.defs[local]
	if def == nil {
		return Record{}, st, fmt.Errorf("%w: compressed record for undefined local type %d at offset %d", ErrMalformed, local, off)
	}
	if !st.HasTimestamp {
		return Record{}, st, fmt.Errorf("%w: compressed timestamp without a reference at offset %d", ErrMalformed, off)
	}

	end := off + 1 + def.dataSize
	if len(buf) < end {
		return Record{}, st, fmt.Errorf("%w: compressed record needs %d bytes at offset %d", ErrTruncated, def.dataSize+1, off)
	}

	offset := uint32(hdr & timeOffsetMask)
	ts := st.LastTimestamp + ((offset - st.LastTimestamp) & timeOffsetMask)

	rec := Record{
		Kind:         KindCompressed,
		Offset:       off,
		Length:       end - off,
		LocalType:    local,
		GlobalNumber: def.GlobalNumber,
		Timestamp:    ts,
		HasTimestamp: true,
		Raw:          buf[off:end],
	}
	st.LastTimestamp = ts
	return rec, st, nil
}
