package bptree

import "encoding/binary"

// EncodeUint32Key renders v as a 4-byte big-endian key. Big-endian keeps
// BytesComparator's byte-wise ordering consistent with v's numeric order
// — callers using a different key width or signed keys should supply
// their own Comparator instead.
func EncodeUint32Key(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

// DecodeUint32Key is the inverse of EncodeUint32Key.
func DecodeUint32Key(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// EncodeUint64Key renders v as an 8-byte big-endian key.
func EncodeUint64Key(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// DecodeUint64Key is the inverse of EncodeUint64Key.
func DecodeUint64Key(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
