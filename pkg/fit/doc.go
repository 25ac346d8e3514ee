// Package fit provides the structural primitives of the FIT capture format.
//
// The fit package knows just enough about a FIT file to decide whether a
// span of bytes frames correctly: how to read and write the file header,
// how to compute the CRC-16 used by the header and the footer, and how to
// decode a single record given the definitions seen so far. It does not
// interpret message contents beyond the timestamp field.
//
// # File Layout
//
// A capture is laid out as:
//
//	[Header(12|14)][Records(DataSize)][CRC16(2)]
//
// Header fields (little-endian):
//   - Size: header length in bytes, 12 or 14
//   - ProtocolVersion: protocol version, major in the high nibble
//   - ProfileVersion: profile version times 100
//   - DataSize: number of record bytes that follow the header
//   - DataType: the ASCII tag ".FIT"
//   - CRC: CRC-16 of bytes 0..11, present only in 14-byte headers (0 = unset)
//
// # Records
//
// Every record starts with a one byte record header. A normal header
// (bit 7 clear) carries a local message type in bits 0-3 and marks a
// definition with bit 6. A compressed timestamp header (bit 7 set) carries
// the local type in bits 5-6 and a five bit time offset in bits 0-4.
//
// Definition records describe the layout of later data records that share
// their local type:
//
//	[Header][Reserved][Arch][Global(2)][N][Field(3)*N]([M][DevField(3)*M])
//
// Data records are the header byte followed by the summed field sizes of
// the active definition.
//
// # Decoding State
//
// Decoding is stateful: a data record can only be framed once its definition
// has been seen, and a compressed timestamp only makes sense relative to the
// last full timestamp. State carries both, and DecodeRecord returns the state
// that applies after the record so callers can resume decoding from any
// record boundary.
//
// # Errors
//
// Decoding never panics on bad input. Failures wrap one of two sentinels:
//   - ErrTruncated: the buffer ends inside the structure being decoded
//   - ErrMalformed: the bytes cannot be a valid structure
package fit
