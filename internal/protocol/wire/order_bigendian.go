//go:build bigendian

package wire

import "encoding/binary"

// Order is the integer byte order used on the wire for -tags bigendian
// builds. Both peers must be built with the same choice.
var Order binary.ByteOrder = binary.BigEndian
