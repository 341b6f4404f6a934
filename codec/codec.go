// Package codec encodes component state and decodes initializer maps into typed structs.
package codec

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/scene/types"
)

func Decode[T any](bz []byte) (T, error) {
	v := new(T)
	err := json.Unmarshal(bz, v)
	if err != nil {
		return *v, eris.Wrap(err, "")
	}
	return *v, nil
}

func Encode(v any) ([]byte, error) {
	bz, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return bz, nil
}

// DecodeInit fills a T from an initializer map, matching map keys against T's json field names.
// Integer values decode into float fields; the opposite is an error.
func DecodeInit[T any](init types.InitMap) (T, error) {
	var zero T
	bz, err := Encode(init.AsMap())
	if err != nil {
		return zero, eris.Wrap(err, "failed to encode initializer map")
	}
	v, err := Decode[T](bz)
	if err != nil {
		return zero, eris.Wrap(err, "failed to decode initializer map")
	}
	return v, nil
}
