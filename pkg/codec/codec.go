// Package codec is the JSON codec shared by the bus, the cache and the
// document stores. It is sonic configured to behave like encoding/json, so
// numbers decode to float64 and map keys are sorted.
package codec

import "github.com/bytedance/sonic"

var api = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}
