package api

import (
	"errors"
	"fmt"
)

// Kind classifies API failures so callers can branch without inspecting
// status codes.
type Kind int

const (
	// KindNetwork means the server was unreachable or the request never
	// completed. Retryable.
	KindNetwork Kind = iota
	// KindAuth means the credentials or token were rejected.
	KindAuth
	// KindValidation means the server rejected the request payload.
	KindValidation
	// KindServer covers everything else (5xx, unexpected shapes).
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	default:
		return "server"
	}
}

// Error is a classified API failure. Status is zero for network errors.
type Error struct {
	Status  int
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s error (%d): %s", e.Kind, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// IsAuth reports whether err is an auth-kind API error.
func IsAuth(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == KindAuth
}

// IsNetwork reports whether err is a network-kind API error.
func IsNetwork(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == KindNetwork
}

// kindForStatus maps an HTTP status to an error kind.
func kindForStatus(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindServer
	}
}
