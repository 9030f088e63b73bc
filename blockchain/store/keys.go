package store

import (
	"encoding/binary"
	"fmt"
)

// Key layout shared by the key-value backends:
//
//	'b' | index (8 bytes, big endian) -> canonical block bytes
//	'h'                               -> chain height (8 bytes, big endian)
var (
	blockPrefix = []byte{'b'}
	heightKey   = []byte{'h'}
)

func blockKey(index uint64) []byte {
	key := make([]byte, 1+8)
	key[0] = blockPrefix[0]
	binary.BigEndian.PutUint64(key[1:], index)
	return key
}

func encodeHeight(height uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, height)
	return b
}

func decodeHeight(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("corrupt height record of %d bytes", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
