package storage

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// versioned is the stored envelope of an object, Version selects the
// decoding of Value.
type versioned struct {
	Version int             `json:"version"`
	Value   json.RawMessage `json:"value"`
}

// VersionJSONEncode encodes o as JSON inside a version envelope.
func VersionJSONEncode(version int, o interface{}) ([]byte, error) {
	raw, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return json.Marshal(versioned{Version: version, Value: raw})
}

// VersionJSONDecode unwraps data encoded by VersionJSONEncode and hands
// the version and a decoder of the value to decode.
func VersionJSONDecode(data []byte, decode func(version int, dec *json.Decoder) error) error {
	var v versioned
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.Wrap(err, "invalid version envelope")
	}
	if len(v.Value) == 0 || string(v.Value) == "null" {
		return errors.New("empty value")
	}
	return decode(v.Version, json.NewDecoder(bytes.NewReader(v.Value)))
}
