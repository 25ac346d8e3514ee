package fit

import "encoding/binary"

// CRCSize is the size of the checksum footer in bytes
const CRCSize = 2

var crcTable = [16]uint16{
	0x0000, 0xCC01, 0xD801, 0x1400, 0xF001, 0x3C00, 0x2800, 0xE401,
	0xA001, 0x6C00, 0x7800, 0xB401, 0x5000, 0x9C01, 0x8801, 0x4400,
}

// Checksum is a running FIT CRC-16 value
type Checksum uint16

// Update folds p into the checksum, one nibble at a time
func (c Checksum) Update(p []byte) Checksum {
	crc := uint16(c)
	for _, b := range p {
		tmp := crcTable[crc&0xF]
		crc = (crc >> 4) & 0x0FFF
		crc = crc ^ tmp ^ crcTable[b&0xF]

		tmp = crcTable[crc&0xF]
		crc = (crc >> 4) & 0x0FFF
		crc = crc ^ tmp ^ crcTable[(b>>4)&0xF]
	}
	return Checksum(crc)
}

// CRC16 computes the FIT checksum of p
func CRC16(p []byte) uint16 {
	return uint16(Checksum(0).Update(p))
}

// AppendCRC appends the little-endian checksum of p to p
func AppendCRC(p []byte) []byte {
	return binary.LittleEndian.AppendUint16(p, CRC16(p))
}
