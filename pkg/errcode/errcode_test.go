package errcode

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

var errInsufficient = errors.New("insufficient_stock")

type stockErr struct{}

func (stockErr) Error() string { return "insufficient stock: need 15, have 10" }
func (stockErr) Unwrap() error { return errInsufficient }

func TestOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"sentinel", errInsufficient, "insufficient_stock"},
		{"wrapped_sentinel", fmt.Errorf("apply: %w", errInsufficient), "insufficient_stock"},
		{"typed", fmt.Errorf("transition: %w", stockErr{}), "insufficient_stock"},
		{"joined", errors.Join(errors.New("variant_not_found"), errors.New("x")), "variant_not_found"},
		{"deadline", fmt.Errorf("tx: %w", context.DeadlineExceeded), DeadlineExceeded},
		{"pg_serialization", &pgconn.PgError{Code: "40001"}, Serialization},
		{"plain", errors.New("something broke"), Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Of(tc.err))
		})
	}
}
