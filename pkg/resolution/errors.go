package resolution

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure a public operation can return.
type ErrorKind string

const (
	UnsupportedDomain           ErrorKind = "UnsupportedDomain"
	UnsupportedService          ErrorKind = "UnsupportedService"
	UnsupportedMethod           ErrorKind = "UnsupportedMethod"
	UnregisteredDomain          ErrorKind = "UnregisteredDomain"
	UnspecifiedResolver         ErrorKind = "UnspecifiedResolver"
	RecordNotFound              ErrorKind = "RecordNotFound"
	InvalidTwitterVerification  ErrorKind = "InvalidTwitterVerification"
	UnsupportedNetwork          ErrorKind = "UnsupportedNetwork"
	InvalidConfigurationField   ErrorKind = "InvalidConfigurationField"
	CustomNetworkConfigMissing  ErrorKind = "CustomNetworkConfigMissing"
	IncorrectBlockchainProvider ErrorKind = "IncorrectBlockchainProvider"
	ServiceProviderError        ErrorKind = "ServiceProviderError"
)

type ResolutionError struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *ResolutionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ResolutionError) Unwrap() error {
	return e.cause
}

func newError(kind ErrorKind, format string, args ...interface{}) *ResolutionError {
	return &ResolutionError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, cause error, format string, args ...interface{}) *ResolutionError {
	return &ResolutionError{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// IsKind reports whether err is a ResolutionError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *ResolutionError
	return errors.As(err, &re) && re.Kind == kind
}
