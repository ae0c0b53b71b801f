package actor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequire(t *testing.T) {
	_, err := Require(context.Background())
	assert.ErrorIs(t, err, ErrActorRequired)

	_, err = Require(WithActor(context.Background(), Actor{ID: 7}))
	assert.ErrorIs(t, err, ErrActorRequired)

	ctx := WithActor(context.Background(), Actor{ID: 7, Username: "linh", Role: "WAREHOUSE"})
	got, err := Require(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "linh", got.Username)
}
