// Package crc provides the CRC-16 used to guard block payloads.
//
// The store uses CRC-16/ARC (poly 0x8005 reflected, init 0), the variant
// flight executives traditionally use for critical data.
package crc

import "github.com/sigurn/crc16"

var arcTable = crc16.MakeTable(crc16.CRC16_ARC)

// Sum16 returns the CRC-16/ARC of b.
func Sum16(b []byte) uint16 {
	return crc16.Checksum(b, arcTable)
}
