// Package errcode extracts the stable snake_case code carried by domain errors.
package errcode

import (
	"context"
	"errors"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	Internal         = "internal_error"
	Canceled         = "canceled"
	DeadlineExceeded = "deadline_exceeded"
	NotFound         = "not_found"
	Duplicate        = "duplicate"
	Serialization    = "serialization_failure"
	LockTimeout      = "db_lock_timeout"
)

var codePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Of returns the first snake_case code found walking err's wrap chain.
func Of(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return Canceled
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Duplicate
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return Serialization
		case "55P03":
			return LockTimeout
		case "23505":
			return Duplicate
		}
		return Internal
	}

	for cur := err; cur != nil; {
		if codePattern.MatchString(cur.Error()) {
			return cur.Error()
		}
		switch u := cur.(type) {
		case interface{ Unwrap() error }:
			cur = u.Unwrap()
		case interface{ Unwrap() []error }:
			errs := u.Unwrap()
			if len(errs) == 0 {
				return Internal
			}
			cur = errs[0]
		default:
			return Internal
		}
	}
	return Internal
}
