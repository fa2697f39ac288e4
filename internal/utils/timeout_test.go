package utils_test

import (
	"context"
	"testing"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDBTimeout(t *testing.T) {
	t.Cleanup(func() { utils.SetDBTimeout(0) })

	t.Run("Default", func(t *testing.T) {
		ctx, cancel := utils.WithDBTimeout(t.Context())
		defer cancel()

		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(utils.DefaultDBTimeout), deadline, time.Second)
	})

	t.Run("Configured", func(t *testing.T) {
		utils.SetDBTimeout(200 * time.Millisecond)

		ctx, cancel := utils.WithDBTimeout(t.Context())
		defer cancel()

		deadline, _ := ctx.Deadline()
		assert.WithinDuration(t, time.Now().Add(200*time.Millisecond), deadline, 100*time.Millisecond)
	})

	t.Run("Caller deadline is sooner", func(t *testing.T) {
		utils.SetDBTimeout(time.Minute)

		parent, cancelParent := context.WithTimeout(t.Context(), 50*time.Millisecond)
		defer cancelParent()

		ctx, cancel := utils.WithDBTimeout(parent)
		defer cancel()

		want, _ := parent.Deadline()
		got, _ := ctx.Deadline()
		assert.Equal(t, want, got)
	})
}
