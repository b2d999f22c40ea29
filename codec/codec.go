// Package codec serializes cached values to bytes and back.
//
// A codec never compresses; compression is a per-database storage policy
// applied after encoding.
package codec

// Codec encodes/decodes values V to []byte for storage.
// Decode(Encode(v)) must yield a value equal to v.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
