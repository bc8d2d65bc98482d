package progress

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCount(t *testing.T) {
	t.Run("no-op without Open", func(t *testing.T) {
		p := Count(context.Background(), 3, "verifying")
		assert.Nil(t, p.bar)

		p.Tick()
		p.On("foo")
		p.Close()
	})

	t.Run("renders to the opened writer", func(t *testing.T) {
		var buf bytes.Buffer

		p := Count(Open(context.Background(), &buf), 2, "verifying")
		assert.NotNil(t, p.bar)

		p.Tick()
		p.Tick()
		p.Close()

		assert.Contains(t, buf.String(), "verifying")
	})
}
