package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MarshalEmbedding converts a float32 vector to a little-endian byte slice.
// The same layout sqlite-vec uses for its BLOB columns, so embeddings stored
// here can be handed to the vector index during a rebuild without conversion.
func MarshalEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// UnmarshalEmbedding converts a little-endian byte slice back to a float32 vector.
func UnmarshalEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
