// Package fittest builds synthetic FIT captures for tests.
package fittest

import (
	"encoding/binary"
	"math/rand"

	"github.com/ssargent/fitfix/pkg/fit"
)

// BaseTimestamp is the timestamp of the first record written by Records
const BaseTimestamp uint32 = 1_000_000_000

// RecordSize is the length of one data record written by Records
const RecordSize = 7

// RecordFields is the layout used by Records: timestamp, heart rate, cadence
var RecordFields = []fit.Field{
	{Number: fit.TimestampField, Size: 4, BaseType: 0x86},
	{Number: 3, Size: 1, BaseType: 0x02},
	{Number: 4, Size: 1, BaseType: 0x02},
}

// Builder assembles a payload record by record
type Builder struct {
	headerSize uint8
	payload    []byte
	defined    bool
	next       uint32
}

// New returns a builder producing 14-byte headers
func New() *Builder {
	return &Builder{headerSize: fit.HeaderSizeWithCRC, next: BaseTimestamp}
}

// HeaderSize switches the header size used by Bytes
func (b *Builder) HeaderSize(size uint8) *Builder {
	b.headerSize = size
	return b
}

// Definition appends a little-endian definition record
func (b *Builder) Definition(local uint8, global uint16, fields ...fit.Field) *Builder {
	b.payload = append(b.payload, 0x40|local&0x0F, 0, 0)
	b.payload = binary.LittleEndian.AppendUint16(b.payload, global)
	b.payload = append(b.payload, byte(len(fields)))
	for _, f := range fields {
		b.payload = append(b.payload, f.Number, f.Size, f.BaseType)
	}
	return b
}

// Record appends one data record for local type 0 using RecordFields,
// writing the definition first if needed
func (b *Builder) Record(ts uint32, heartRate, cadence uint8) *Builder {
	if !b.defined {
		b.Definition(0, 20, RecordFields...)
		b.defined = true
	}
	b.payload = append(b.payload, 0x00)
	b.payload = binary.LittleEndian.AppendUint32(b.payload, ts)
	b.payload = append(b.payload, heartRate, cadence)
	b.next = ts + 1
	return b
}

// Records appends n records one second apart
func (b *Builder) Records(n int) *Builder {
	for i := 0; i < n; i++ {
		b.Record(b.next, uint8(100+i%50), uint8(80+i%20))
	}
	return b
}

// Raw appends arbitrary bytes to the payload
func (b *Builder) Raw(p []byte) *Builder {
	b.payload = append(b.payload, p...)
	return b
}

// Payload returns a copy of the record bytes
func (b *Builder) Payload() []byte {
	return append([]byte(nil), b.payload...)
}

// Bytes returns a complete capture: header, payload and checksum
func (b *Builder) Bytes() []byte {
	out := b.Unsealed()
	return fit.AppendCRC(out)
}

// Unsealed returns header and payload without the checksum footer
func (b *Builder) Unsealed() []byte {
	h := fit.NewHeader(b.headerSize, 0, 0, uint32(len(b.payload)))
	out := h.Encode()
	return append(out, b.payload...)
}

// Garbage returns n pseudo-random bytes that never start a record: each
// byte is a normal record header with the reserved bit set
func Garbage(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	out := make([]byte, n)
	for i := range out {
		out[i] = 0x10 | byte(r.Intn(256))&0x2F
	}
	return out
}
