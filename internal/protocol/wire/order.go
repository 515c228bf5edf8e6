//go:build !bigendian

package wire

import "encoding/binary"

// Order is the integer byte order used on the wire. The default build speaks
// little-endian; building with -tags bigendian flips every integer field,
// including the frame length prefix. Both peers must be built with the same
// choice.
var Order binary.ByteOrder = binary.LittleEndian
