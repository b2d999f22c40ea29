package codec

import "encoding/json"

// JSON is the default codec. Numbers decoded into interface types come back
// as float64, so prefer concrete V types when exact numeric kinds matter.
type JSON[V any] struct{}

var _ Codec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
