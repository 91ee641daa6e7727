package progress

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressUpdate(t *testing.T) {
	p := New(io.Discard)

	p.Update("a", "one.bin", 10)
	p.Update("b", "two.bin", 40)
	assert.Equal(t, 2, p.Active())

	p.Update("a", "one.bin", 100)
	assert.Equal(t, 1, p.Active())

	p.Abort("b")
	assert.Zero(t, p.Active())

	p.Abort("missing")
	p.Wait()
}

func TestProgressEmptyTransfer(t *testing.T) {
	p := New(io.Discard)

	p.Update("x", "empty", 100)
	assert.Zero(t, p.Active())

	p.Wait()
}

func TestProgressReset(t *testing.T) {
	p := New(io.Discard)

	p.Update("a", "stuck.bin", 30)
	p.Reset()
	assert.Zero(t, p.Active())

	p.Update("b", "next.bin", 100)
	p.Wait()
}

func TestDefaultBar(t *testing.T) {
	bar := DefaultBar("sending")
	assert.NoError(t, bar.Set(50))
	assert.NoError(t, bar.Set(100))
	assert.True(t, bar.IsFinished())
}
