package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

// Protobuf stores proto messages in their binary wire form.
//
// Deterministic output makes equal messages produce equal payloads, which
// matters when callers compare cached bytes. Unknown fields written by a
// newer schema are kept unless DiscardUnknown is set.
type Protobuf[T proto.Message] struct {
	new            func() T // e.g. func() *mypb.User { return &mypb.User{} }
	Deterministic  bool
	DiscardUnknown bool
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor, Deterministic: true}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: c.Deterministic}.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	if c.new == nil {
		var zero T
		return zero, errors.New("codec: protobuf codec has no constructor; use NewProtobuf")
	}
	m := c.new()
	err := proto.UnmarshalOptions{DiscardUnknown: c.DiscardUnknown}.Unmarshal(b, m)
	return m, err
}
