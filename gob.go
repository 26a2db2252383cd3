package layered

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"hash/fnv"
	"io"
	"reflect"
	"strings"
)

// Payload frame markers, first byte of every remote tier payload.
const (
	frameNull  = byte(0x00)
	frameValue = byte(0x01)
)

var _ Codec = GobCodec{}

// GobCodec encodes remote tier payloads with encoding/gob.
//
// A nil value is framed as a bare null marker so that a cached absence
// survives the round trip through the remote tier. Types of cached values
// must be enabled with GobRegister before they cross a process boundary.
type GobCodec struct{}

// Encode turns a value into a payload.
func (GobCodec) Encode(value interface{}) ([]byte, error) {
	if value == nil {
		return []byte{frameNull}, nil
	}

	buf := bytes.NewBuffer([]byte{frameValue})

	if err := gob.NewEncoder(buf).Encode(&value); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode turns a payload back into a value.
func (GobCodec) Decode(payload []byte) (interface{}, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrBadPayload)
	}

	switch payload[0] {
	case frameNull:
		return nil, nil
	case frameValue:
		var value interface{}

		if err := gob.NewDecoder(bytes.NewReader(payload[1:])).Decode(&value); err != nil {
			return nil, err
		}

		return value, nil
	}

	return nil, fmt.Errorf("%w: unexpected frame 0x%02x", ErrBadPayload, payload[0])
}

var gobTypesHash uint64

// GobTypesHashReset resets types hash to zero value.
func GobTypesHashReset() {
	gobTypesHash = 0
}

// GobTypesHash returns a fingerprint of a group of types to transfer.
//
// Processes sharing a remote tier can compare fingerprints to make sure they
// agree on the structure of cached values.
func GobTypesHash() uint64 {
	return gobTypesHash
}

// GobRegister enables cached type transferring.
func GobRegister(values ...interface{}) {
	for _, value := range values {
		h := fnv.New64()
		t := reflect.TypeOf(value)
		// nolint:errcheck // fnv.Write never returns an error.
		_, _ = h.Write([]byte(t.PkgPath() + t.String()))
		recursiveTypeHash(t, h, map[reflect.Type]bool{})
		gobTypesHash ^= h.Sum64()

		gob.Register(value)
	}
}

// RecursiveTypeHash hashes type of value recursively to ensure structural match.
func recursiveTypeHash(t reflect.Type, h io.Writer, met map[reflect.Type]bool) {
	for {
		if t.Kind() != reflect.Ptr {
			break
		}

		t = t.Elem()
	}

	if met[t] {
		return
	}

	met[t] = true

	switch t.Kind() {
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)

			// Skip unexported field.
			if f.Name != "" && (f.Name[0:1] == strings.ToLower(f.Name[0:1])) {
				continue
			}

			if !f.Anonymous {
				// nolint:errcheck // fnv.Write never returns an error.
				_, _ = h.Write([]byte(f.Name))
			}

			recursiveTypeHash(f.Type, h, met)
		}

	case reflect.Slice, reflect.Array:
		recursiveTypeHash(t.Elem(), h, met)
	case reflect.Map:
		recursiveTypeHash(t.Key(), h, met)
		recursiveTypeHash(t.Elem(), h, met)
	default:
		// nolint:errcheck // fnv.Write never returns an error.
		_, _ = h.Write([]byte(t.String()))
	}
}

// nolint:gochecknoinits // Registering types to a package level registry of "encoding/gob".
func init() {
	// Registering commonly used types.
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
}
