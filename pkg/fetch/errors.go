package fetch

import (
	"context"
	"errors"
	"net"
)

// ErrCanceled is returned by fetch functions that stopped because their token
// was cancelled. The coordinator treats it as a silent no-op.
var ErrCanceled = errors.New("fetch canceled")

// ErrorKind classifies fetch failures.
type ErrorKind string

const (
	KindTransport  ErrorKind = "transport"
	KindValidation ErrorKind = "validation"
	KindUnknown    ErrorKind = "unknown"
)

// KindedError is implemented by errors that know their own kind.
type KindedError interface {
	error
	Kind() ErrorKind
}

// CodedError is implemented by errors that carry a status code, such as an
// HTTP status.
type CodedError interface {
	error
	Code() int
}

// ErrorInfo is the recorded form of a failed fetch.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Code    int       `json:"code,omitempty"`
}

func (e *ErrorInfo) Error() string {
	return e.Message
}

// Classify converts err into an ErrorInfo. The message is err.Error()
// verbatim.
func Classify(err error) *ErrorInfo {
	if err == nil {
		return nil
	}

	info := &ErrorInfo{Kind: KindUnknown, Message: err.Error()}

	var kinded KindedError
	var netErr net.Error
	switch {
	case errors.As(err, &kinded):
		info.Kind = kinded.Kind()
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		info.Kind = KindTransport
	}

	var coded CodedError
	if errors.As(err, &coded) {
		info.Code = coded.Code()
	}
	return info
}

// IsCanceled reports whether err means the fetch was cancelled.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}
