package encoding

import "encoding/binary"

// Endian is the endianness the write-ahead log uses for serializing/deserializing integers to file. It is part of the
// on-disk format contract and must not change for the lifetime of the format.
var Endian = binary.LittleEndian
