package user

import (
	"errors"
	"fmt"
)

// Code is the machine-readable failure code sent to clients.
type Code string

const (
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeDuplicateEmail  Code = "DUPLICATE_EMAIL"
	CodeNotFound        Code = "NOT_FOUND"
	CodeBadUserInput    Code = "BAD_USER_INPUT"
	CodeUnavailable     Code = "UNAVAILABLE"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = fmt.Errorf("%w: user not found", ErrInvalidCredentials)
	ErrIncorrectPassword  = fmt.Errorf("%w: incorrect password", ErrInvalidCredentials)
	ErrDuplicateEmail     = errors.New("duplicate email")
	ErrNotFound           = errors.New("not found")
	ErrBadInput           = errors.New("bad user input")
	ErrUnavailable        = errors.New("unavailable")
)

// Failure is the typed error every UserService operation returns.
// errors.Is matches both the sentinel kind and the underlying cause.
type Failure struct {
	Code    Code
	Message string
	kind    error
	cause   error
}

func (f *Failure) Error() string {
	if f.cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Code, f.Message, f.cause)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func (f *Failure) Unwrap() []error {
	if f.cause != nil {
		return []error{f.kind, f.cause}
	}
	return []error{f.kind}
}

func unauthenticated() *Failure {
	return &Failure{Code: CodeUnauthenticated, Message: "You must be logged in!", kind: ErrUnauthenticated}
}

func badInput(msg string) *Failure {
	return &Failure{Code: CodeBadUserInput, Message: msg, kind: ErrBadInput}
}

func unavailable(cause error) *Failure {
	return &Failure{Code: CodeUnavailable, Message: "Service unavailable", kind: ErrUnavailable, cause: cause}
}

// FailureOf extracts the Failure carried by err. Anything else is reported as unavailable.
func FailureOf(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return unavailable(err)
}
