package wire

import (
	"encoding/json"

	"github.com/openclawcity/citystream/pkg/logger"
)

// Encode serializes an outbound frame to its wire text.
func Encode(frame any) ([]byte, error) {
	return json.Marshal(frame)
}

// Decode parses inbound wire text into a typed frame.
//
// Decoding is defensive: malformed or unrecognized input is logged at WARN
// and yields (nil, false). It never panics past this boundary.
func Decode(data []byte) (Inbound, bool) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		logger.Warnf("wire: dropping malformed frame: %v", err)
		return nil, false
	}

	var (
		frame Inbound
		err   error
	)
	switch head.Type {
	case TypeWelcome:
		f := &Welcome{}
		err = json.Unmarshal(data, f)
		frame = f
	case TypeEvent:
		f := &Event{}
		err = json.Unmarshal(data, f)
		frame = f
	case TypeResult:
		f := &Result{}
		err = json.Unmarshal(data, f)
		frame = f
	case TypeError:
		f := &ErrorFrame{}
		err = json.Unmarshal(data, f)
		frame = f
	case TypePaused:
		f := &Paused{}
		err = json.Unmarshal(data, f)
		frame = f
	case TypeResumed:
		f := &Resumed{}
		err = json.Unmarshal(data, f)
		frame = f
	default:
		logger.Warnf("wire: dropping frame with unknown type %q", head.Type)
		return nil, false
	}
	if err != nil {
		logger.Warnf("wire: dropping malformed %q frame: %v", head.Type, err)
		return nil, false
	}
	return frame, true
}
