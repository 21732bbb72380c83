package shutdown

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_ShutdownRunsHooksInReverse(t *testing.T) {
	m := NewManager()
	var order []string
	m.Register("ipc", func(ctx context.Context) error {
		order = append(order, "ipc")
		return nil
	})
	m.Register("plugins", func(ctx context.Context) error {
		order = append(order, "plugins")
		return errors.New("core still enabled")
	})

	err := m.Shutdown(context.Background())
	assert.EqualError(t, err, "plugins: core still enabled")
	assert.Equal(t, []string{"plugins", "ipc"}, order)
	assert.True(t, m.IsShuttingDown())

	select {
	case <-m.Wait():
	default:
		t.Fatal("expected shutdown signal")
	}

	assert.NoError(t, m.Shutdown(context.Background()))
	assert.Len(t, order, 2)
}
