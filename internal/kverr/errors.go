// Package kverr defines the error taxonomy shared by storage, wire codec,
// and dispatcher: a single KVError carrying a Kind so callers can branch on
// category while still chaining the underlying cause with %w.
package kverr

import (
	"errors"
	"fmt"
)

// Kind names one of the error categories from the command-dispatch boundary.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalid
	KindInvalidCommand
	KindFrame
	KindEncode
	KindDecode
	KindIO
	KindConvert
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	case KindInvalidCommand:
		return "invalid_command"
	case KindFrame:
		return "frame"
	case KindEncode:
		return "encode"
	case KindDecode:
		return "decode"
	case KindIO:
		return "io"
	case KindConvert:
		return "convert"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// KVError is the single error type returned across the storage, wire and
// dispatch boundaries. Table/Key are populated for KindNotFound.
type KVError struct {
	Kind  Kind
	Table string
	Key   string
	Msg   string
	Cause error
}

func (e *KVError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("not found table %s or key %s", e.Table, e.Key)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
		}
		return e.Msg
	}
}

func (e *KVError) Unwrap() error { return e.Cause }

// StatusCode maps a Kind to the HTTP-style status code carried on the wire.
func (e *KVError) StatusCode() uint32 {
	switch e.Kind {
	case KindNotFound:
		return 404
	default:
		return 400
	}
}

func NotFound(table, key string) *KVError {
	return &KVError{Kind: KindNotFound, Table: table, Key: key}
}

func Invalid(msg string) *KVError {
	return &KVError{Kind: KindInvalid, Msg: msg}
}

func InvalidCommand(detail string) *KVError {
	return &KVError{Kind: KindInvalidCommand, Msg: "invalid command " + detail}
}

func Frame(msg string) *KVError {
	return &KVError{Kind: KindFrame, Msg: msg}
}

func Encode(cause error) *KVError {
	return &KVError{Kind: KindEncode, Msg: "frame encode error", Cause: cause}
}

func Decode(cause error) *KVError {
	return &KVError{Kind: KindDecode, Msg: "frame decode error", Cause: cause}
}

func IO(cause error) *KVError {
	return &KVError{Kind: KindIO, Msg: "io error", Cause: cause}
}

func Convert(msg string) *KVError {
	return &KVError{Kind: KindConvert, Msg: msg}
}

func Storage(cause error) *KVError {
	return &KVError{Kind: KindStorage, Msg: "storage error", Cause: cause}
}

// Of reports the Kind of err if it is (or wraps) a *KVError, else KindUnknown.
func Of(err error) Kind {
	var kv *KVError
	if errors.As(err, &kv) {
		return kv.Kind
	}
	return KindUnknown
}
