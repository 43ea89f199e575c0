// Package dzerror defines the stable custom error codes returned by the
// serviceability instruction processors. Codes are part of the wire contract:
// clients discriminate failures by code, so values are append-only and never
// reused.
package dzerror

import (
	"errors"
	"fmt"
)

type Code uint32

const (
	// Decoding.
	InvalidAccountData Code = 1
	InvalidAccountType Code = 2

	// Authorization.
	NotSigner           Code = 10
	InvalidAccountOwner Code = 11
	NotAllowed          Code = 12
	Unauthorized        Code = 13
	AccessPassMismatch  Code = 14
	MulticastNotAllowed Code = 15

	// Preconditions.
	InvalidStatus         Code = 20
	ReferenceCountNotZero Code = 21
	AccessPassExpired     Code = 22
	MaxUsersExceeded      Code = 23
	CodeAlreadyExists     Code = 24
	InvalidCode           Code = 25
	InvalidInterfaceName  Code = 26
	InterfaceInUse        Code = 27
	InvalidClientIP       Code = 28
	AccountAlreadyExists  Code = 29
	AccountNotFound       Code = 30
	InvalidPDA            Code = 31

	// Resource allocation.
	AllocationFailed Code = 40
	AlreadyAllocated Code = 41
	IDOutOfRange     Code = 42
	IPOutOfRange     Code = 43

	// Configuration.
	InvalidGlobalConfig Code = 50
	VersionDowngrade    Code = 51
	UnknownFeatureFlag  Code = 52

	// Funds.
	InsufficientFunds Code = 60
)

func (c Code) String() string {
	switch c {
	case InvalidAccountData:
		return "invalid account data"
	case InvalidAccountType:
		return "invalid account type"
	case NotSigner:
		return "payer is not a signer"
	case InvalidAccountOwner:
		return "invalid account owner"
	case NotAllowed:
		return "not allowed"
	case Unauthorized:
		return "unauthorized"
	case AccessPassMismatch:
		return "access pass mismatch"
	case MulticastNotAllowed:
		return "multicast group not allowed"
	case InvalidStatus:
		return "invalid status for operation"
	case ReferenceCountNotZero:
		return "reference count is not zero"
	case AccessPassExpired:
		return "access pass expired"
	case MaxUsersExceeded:
		return "max users exceeded"
	case CodeAlreadyExists:
		return "code already exists"
	case InvalidCode:
		return "invalid code"
	case InvalidInterfaceName:
		return "invalid interface name"
	case InterfaceInUse:
		return "interface already in use"
	case InvalidClientIP:
		return "invalid client ip"
	case AccountAlreadyExists:
		return "account already exists"
	case AccountNotFound:
		return "account not found"
	case InvalidPDA:
		return "account does not match derived pda"
	case AllocationFailed:
		return "allocation failed"
	case AlreadyAllocated:
		return "already allocated"
	case IDOutOfRange:
		return "id out of range"
	case IPOutOfRange:
		return "ip out of range"
	case InvalidGlobalConfig:
		return "invalid global config"
	case VersionDowngrade:
		return "version downgrade below min compatible"
	case UnknownFeatureFlag:
		return "unknown feature flag"
	case InsufficientFunds:
		return "insufficient funds"
	default:
		return fmt.Sprintf("unknown error code %d", uint32(c))
	}
}

// Error is a processor failure carrying a stable code. Two Errors compare
// equal under errors.Is when their codes match, regardless of detail text.
type Error struct {
	Code   Code
	Detail string
}

func New(code Code) *Error {
	return &Error{Code: code}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// CodeOf extracts the stable code from an error chain, or 0 if the error did
// not originate from a processor.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}
