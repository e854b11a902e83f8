package prompt

import (
	"fmt"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmWithForce(t *testing.T) {
	ok, err := ConfirmWithForce("Clear the cache?", true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConfirm_NotInteractive(t *testing.T) {
	orig := interactive
	interactive = func() bool { return false }
	t.Cleanup(func() { interactive = orig })

	ok, err := ConfirmWithForce("Clear the cache?", false)
	assert.ErrorIs(t, err, ErrNotInteractive)
	assert.False(t, ok)
}

func TestIsAborted(t *testing.T) {
	assert.True(t, IsAborted(ErrAborted))
	assert.True(t, IsAborted(promptui.ErrInterrupt))
	assert.True(t, IsAborted(fmt.Errorf("prompt: %w", ErrAborted)))
	assert.False(t, IsAborted(promptui.ErrAbort))
	assert.False(t, IsAborted(nil))
}
