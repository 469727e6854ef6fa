package common

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserID(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-1")

	userID, ok := GetUserID(ctx)

	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)
}

func TestUserID_Missing(t *testing.T) {
	_, ok := GetUserID(context.Background())
	assert.False(t, ok)

	_, ok = GetUserID(WithUserID(context.Background(), ""))
	assert.False(t, ok)
}
