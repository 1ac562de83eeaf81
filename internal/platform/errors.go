package platform

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNotFound
	KindForbidden
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	default:
		return "transient"
	}
}

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	// ErrNotMember is returned when an operation needs a current guild member.
	ErrNotMember = fmt.Errorf("subject is not a guild member: %w", ErrNotFound)
)

// Error is a classified failure of a single platform call.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap classifies err and tags it with the operation name. It returns nil for a nil err.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Op: op, Kind: Classify(err), Err: err}
}

func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, discordgo.ErrStateNotFound) {
		return KindNotFound
	}
	if errors.Is(err, ErrForbidden) {
		return KindForbidden
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		switch rest.Response.StatusCode {
		case http.StatusNotFound:
			return KindNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			return KindForbidden
		}
	}
	return KindTransient
}

func IsNotFound(err error) bool {
	return Classify(err) == KindNotFound
}

func IsForbidden(err error) bool {
	return Classify(err) == KindForbidden
}
