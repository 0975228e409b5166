package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/aretw0/formdraft/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
)

func TestIsInterrupted(t *testing.T) {
	assert.True(t, IsInterrupted(tui.ErrAborted))
	assert.True(t, IsInterrupted(fmt.Errorf("prompt: %w", context.Canceled)))
	assert.True(t, IsInterrupted(io.EOF))
	assert.False(t, IsInterrupted(errors.New("disk full")))
	assert.False(t, IsInterrupted(nil))
}

func TestHandleExecutionError(t *testing.T) {
	assert.NoError(t, HandleExecutionError(nil))
	assert.NoError(t, HandleExecutionError(tui.ErrAborted))
	boom := errors.New("boom")
	assert.ErrorIs(t, HandleExecutionError(boom), boom)
}

func TestPrintSystemMessage(t *testing.T) {
	var buf bytes.Buffer
	PrintSystemMessage(&buf, "Draft saved at step %d.", 2)
	assert.Equal(t, ">>> Draft saved at step 2.\n", buf.String())
}

func TestSignalContext_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	sc := NewSignalContext(parent)
	cancel()

	<-sc.Done()
	assert.Nil(t, sc.Signal())
}
