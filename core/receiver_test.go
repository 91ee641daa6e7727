package core

import (
	"bufio"
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Dyastin-0/lanmsg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUnique(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ReceiveDir)
	r := NewReceiver(dir, 0, nil, logger.Nop())

	want := []string{"a.txt", "a(1).txt", "a(2).txt", "noext", "noext(1)", "archive.tar.gz", "archive.tar(1).gz"}
	names := []string{"a.txt", "a.txt", "a.txt", "noext", "noext", "archive.tar.gz", "archive.tar.gz"}

	for i, name := range names {
		f, path, err := r.create(name)
		require.NoError(t, err)
		f.Close()
		assert.Equal(t, filepath.Join(dir, want[i]), path)
	}
}

func TestWriteReadsExactlyDeclared(t *testing.T) {
	rec := &recorder{}
	r := NewReceiver(t.TempDir(), 4, rec.emit, logger.Nop())

	src := bytes.NewReader([]byte("hello world"))
	path, n, err := r.Write(src, NewFileHeader("greeting.txt", 5), "id-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, 6, src.Len(), "read past the declared size")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	seq := rec.progress(Inbound)["id-1"]
	requireMonotonic(t, seq)
	assert.Equal(t, []int{80, 100}, percents(seq))
}

func TestWriteTruncated(t *testing.T) {
	rec := &recorder{}
	dir := t.TempDir()
	r := NewReceiver(dir, 0, rec.emit, logger.Nop())

	_, n, err := r.Write(strings.NewReader("abcd"), NewFileHeader("short.bin", 10), "id-2")
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, int64(4), n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial file left behind")

	failures := rec.failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "short.bin", failures[0].FileName)
	assert.Equal(t, int64(4), failures[0].Bytes)
	assert.Equal(t, Inbound, failures[0].Direction)
}

func TestWriteEmptyFile(t *testing.T) {
	rec := &recorder{}
	r := NewReceiver(t.TempDir(), 0, rec.emit, logger.Nop())

	path, n, err := r.Write(strings.NewReader(""), NewFileHeader("empty", 0), "id-3")
	require.NoError(t, err)
	assert.Zero(t, n)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	assert.Equal(t, []int{100}, percents(rec.progress(Inbound)["id-3"]))
}

func TestReceiveMessage(t *testing.T) {
	rec := &recorder{}
	r := NewReceiver(t.TempDir(), 0, rec.emit, logger.Nop())

	client, server := net.Pipe()
	defer server.Close()

	go func() {
		defer client.Close()
		WriteHeader(client, NewMessageHeader("hi there"))
	}()

	require.NoError(t, r.receive(bufio.NewReader(server), "10.0.0.5"))
	assert.Equal(t, []MessageReceived{{From: "10.0.0.5", Text: "hi there"}}, rec.messages())
}

func TestReceiveFile(t *testing.T) {
	rec := &recorder{}
	dir := t.TempDir()
	r := NewReceiver(dir, 0, rec.emit, logger.Nop())

	client, server := net.Pipe()
	defer server.Close()

	go func() {
		defer client.Close()
		WriteHeader(client, NewFileHeader("test.txt", 4))
		client.Write([]byte("test"))
	}()

	require.NoError(t, r.receive(bufio.NewReader(server), "10.0.0.5"))

	path := filepath.Join(dir, "test.txt")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "test", string(data))
	assert.Equal(t, []MessageReceived{{From: "10.0.0.5", Text: FileReceivedPrefix + path}}, rec.messages())
}

func TestReceiveRejectsUnknownHeader(t *testing.T) {
	rec := &recorder{}
	r := NewReceiver(t.TempDir(), 0, rec.emit, logger.Nop())

	var buf bytes.Buffer
	require.NoError(t, WriteString(&buf, "HELLO|world"))

	err := r.receive(bufio.NewReader(&buf), "10.0.0.5")
	assert.ErrorIs(t, err, ErrMalformedHeader)
	assert.Empty(t, rec.snapshot())
}

func percents(seq []FileProgress) []int {
	out := make([]int, len(seq))
	for i, p := range seq {
		out[i] = p.Percent
	}
	return out
}
