package reload

import (
	"encoding/json"
	"fmt"
)

// Message types on the wire.
const (
	TypeUpdate = "update"
	TypeError  = "error"
)

// Result is the outcome of handling a file change: either Update or Failure.
type Result interface {
	result()
}

// Update tells browsers to reload because Path changed.
type Update struct {
	Path string
}

// Failure tells browsers to show Message instead of reloading.
type Failure struct {
	Message string
}

func (Update) result()  {}
func (Failure) result() {}

// UnknownTypeError is returned by Decode for a well-formed message whose
// type is not recognized.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("reload: unknown message type %q", e.Type)
}

// Encode returns the wire representation of r.
func Encode(r Result) ([]byte, error) {
	switch r := r.(type) {
	case Update:
		return json.Marshal([2]string{TypeUpdate, r.Path})
	case Failure:
		return json.Marshal([2]string{TypeError, r.Message})
	default:
		return nil, fmt.Errorf("reload: cannot encode %T", r)
	}
}

// Decode parses a wire message. Malformed input yields a plain error; a
// well-formed message of an unknown type yields *UnknownTypeError.
func Decode(data []byte) (Result, error) {
	var fields []string
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("reload: malformed message: %w", err)
	}
	if len(fields) != 2 {
		return nil, fmt.Errorf("reload: malformed message: want 2 elements, got %d", len(fields))
	}

	switch fields[0] {
	case TypeUpdate:
		return Update{Path: fields[1]}, nil
	case TypeError:
		return Failure{Message: fields[1]}, nil
	default:
		return nil, &UnknownTypeError{Type: fields[0]}
	}
}

// TypeOf returns the wire type name of r.
func TypeOf(r Result) string {
	switch r.(type) {
	case Update:
		return TypeUpdate
	case Failure:
		return TypeError
	default:
		return ""
	}
}
