package core

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/Dyastin-0/lanmsg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture accepts one connection and returns everything written to it.
func capture(t *testing.T) (Config, <-chan []byte) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	out := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(out)
			return
		}
		defer conn.Close()

		data, _ := io.ReadAll(conn)
		out <- data
	}()

	cfg := testConfig(t)
	cfg.TransferPort = port(ln.Addr())
	return cfg, out
}

func TestSendMessageWire(t *testing.T) {
	cfg, out := capture(t)
	s := NewSender(cfg, nil, logger.Nop())

	require.NoError(t, s.SendMessage(t.Context(), "127.0.0.1", "hi"))

	assert.Equal(t, append([]byte{6}, "MSG|hi"...), <-out)
}

func TestSendMessageVersioned(t *testing.T) {
	cfg, out := capture(t)
	cfg.VersionedHeaders = true
	s := NewSender(cfg, nil, logger.Nop())

	require.NoError(t, s.SendMessage(t.Context(), "127.0.0.1", "hi"))

	h, err := ReadHeader(bufio.NewReader(bytes.NewReader(<-out)))
	require.NoError(t, err)
	assert.Equal(t, Version, h.Version)
	assert.Equal(t, "hi", h.Text)
}

func TestSendFileWire(t *testing.T) {
	cfg, out := capture(t)
	rec := &recorder{}
	s := NewSender(cfg, rec.emit, logger.Nop())

	path, data := createFile(t, t.TempDir(), "notes.txt", 20_000)
	require.NoError(t, s.SendFile(t.Context(), "127.0.0.1", path))

	rd := bufio.NewReader(bytes.NewReader(<-out))
	h, err := ReadHeader(rd)
	require.NoError(t, err)
	assert.Equal(t, KindFile, h.Kind)
	assert.Equal(t, "notes.txt", h.Name)
	assert.Equal(t, int64(len(data)), h.Size)

	body, err := io.ReadAll(rd)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, body))

	progress := rec.progress(Outbound)
	require.Len(t, progress, 1)
	for _, seq := range progress {
		requireMonotonic(t, seq)
		// 8192 + 8192 + 3616
		assert.Equal(t, []int{40, 81, 100, 100}, percents(seq))
	}
}

func TestSendFileRejectsDirectory(t *testing.T) {
	s := NewSender(testConfig(t), nil, logger.Nop())

	err := s.SendFile(t.Context(), "127.0.0.1", t.TempDir())
	var terr *TransferError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, ErrInvalidFileName)
}

func TestSendFileCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// accept but never read so the sender fills the socket buffers
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(5 * time.Second)
	}()

	cfg := testConfig(t)
	cfg.TransferPort = port(ln.Addr())
	rec := &recorder{}
	s := NewSender(cfg, rec.emit, logger.Nop())

	path, _ := createFile(t, t.TempDir(), "huge.bin", 32<<20)

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = s.SendFile(ctx, "127.0.0.1", path)
	assert.Less(t, time.Since(start), 2*time.Second)

	var terr *TransferError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "huge.bin", terr.File)
	require.Len(t, rec.failures(), 1)
}

func TestTransferErrorMessage(t *testing.T) {
	err := &TransferError{Op: "file", Addr: "10.0.0.2", File: "a.txt", Bytes: 12, Err: os.ErrClosed}
	assert.Equal(t, "file a.txt to 10.0.0.2 failed after 12 bytes: file already closed", err.Error())
	assert.ErrorIs(t, err, os.ErrClosed)

	err = &TransferError{Op: "message", Addr: "10.0.0.2", Err: os.ErrClosed}
	assert.Equal(t, "message to 10.0.0.2 failed: file already closed", err.Error())
}
