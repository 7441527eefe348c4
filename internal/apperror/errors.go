// Package apperror is the catalog's error taxonomy. Every expected,
// caller-correctable failure carries a Kind; anything else is reported as
// StoreFailure.
package apperror

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type Kind string

const (
	KindValidation      Kind = "VALIDATION"
	KindSelfParent      Kind = "SELF_PARENT"
	KindCyclicParent    Kind = "CYCLIC_PARENT"
	KindMissingParent   Kind = "MISSING_PARENT"
	KindEmptyInput      Kind = "EMPTY_INPUT"
	KindNotFound        Kind = "NOT_FOUND"
	KindDuplicateName   Kind = "DUPLICATE_NAME"
	KindDuplicateSlug   Kind = "DUPLICATE_SLUG"
	KindUnknownCategory Kind = "UNKNOWN_CATEGORY"
	KindStoreFailure    Kind = "STORE_FAILURE"
)

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works for every not-found error regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrSelfParent      = &Error{Kind: KindSelfParent}
	ErrCyclicParent    = &Error{Kind: KindCyclicParent}
	ErrMissingParent   = &Error{Kind: KindMissingParent}
	ErrEmptyInput      = &Error{Kind: KindEmptyInput}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrDuplicateName   = &Error{Kind: KindDuplicateName}
	ErrDuplicateSlug   = &Error{Kind: KindDuplicateSlug}
	ErrUnknownCategory = &Error{Kind: KindUnknownCategory}
	ErrStoreFailure    = &Error{Kind: KindStoreFailure}
)

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", resource, id)}
}

func DuplicateName(name string) *Error {
	return &Error{Kind: KindDuplicateName, Message: fmt.Sprintf("name %q has already been taken", name)}
}

func StoreFailure(op string, cause error) *Error {
	return &Error{Kind: KindStoreFailure, Message: op + " failed", Cause: cause}
}

// KindOf reports the kind of err. Errors outside the taxonomy are store
// failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStoreFailure
}

// FromStore classifies a persistence error. Taxonomy errors pass through,
// unique violations become DuplicateName or DuplicateSlug by constraint name
// and a foreign key violation on category_product becomes UnknownCategory.
func FromStore(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return StoreFailure(op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		constraint := strings.ToLower(pgErr.ConstraintName)
		switch pgErr.Code {
		case "23505": // unique_violation
			switch {
			case strings.HasSuffix(constraint, "_slug_key"):
				return &Error{Kind: KindDuplicateSlug, Message: "slug has already been taken", Cause: err}
			case strings.HasSuffix(constraint, "_name_key"):
				return &Error{Kind: KindDuplicateName, Message: "name has already been taken", Cause: err}
			}
		case "23503": // foreign_key_violation
			if pgErr.TableName == "category_product" && strings.Contains(constraint, "category_id") {
				return &Error{Kind: KindUnknownCategory, Message: "category does not exist", Cause: err}
			}
		}
	}
	return StoreFailure(op, err)
}
