package prompt

import (
	"errors"
	"fmt"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
)

func TestIsAborted(t *testing.T) {
	assert.True(t, IsAborted(promptui.ErrInterrupt))
	assert.True(t, IsAborted(promptui.ErrEOF))
	assert.True(t, IsAborted(fmt.Errorf("wrapped: %w", ErrAborted)))
	assert.False(t, IsAborted(errors.New("boom")))
}

func TestIsAbortedCoversPromptuiAbort(t *testing.T) {
	assert.True(t, IsAborted(promptui.ErrAbort))
	assert.False(t, IsAborted(nil))
}

func TestConfirmWithForceSkipsPrompt(t *testing.T) {
	ok, err := ConfirmWithForce("Delete?", true)
	assert.NoError(t, err)
	assert.True(t, ok)
}
