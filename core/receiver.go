package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/Dyastin-0/lanmsg/logger"
	"github.com/google/uuid"
)

const FileReceivedPrefix = "File received: "

var ErrTruncated = errors.New("transfer truncated")

// Receiver materializes a single inbound frame.
type Receiver struct {
	dir   string
	chunk int
	emit  func(Event)
	log   logger.Logger
}

func NewReceiver(dir string, chunk int, emit func(Event), log logger.Logger) *Receiver {
	if dir == "" {
		dir = ReceiveDir
	}
	if chunk <= 0 {
		chunk = ChunkSize
	}
	if emit == nil {
		emit = func(Event) {}
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Receiver{
		dir:   dir,
		chunk: chunk,
		emit:  emit,
		log:   log,
	}
}

func (r *Receiver) Dir() string {
	return r.dir
}

// receive reads one header from rd and acts on it. from is the remote
// address, reported with received messages.
func (r *Receiver) receive(rd *bufio.Reader, from string) error {
	h, err := ReadHeader(rd)
	if err != nil {
		return err
	}

	switch h.Kind {
	case KindMessage:
		r.emit(MessageReceived{From: from, Text: h.Text})
		return nil

	case KindFile:
		path, _, err := r.Write(rd, h, uuid.NewString())
		if err != nil {
			return err
		}

		r.log.WithStr("from", from).WithStr("path", path).WithAny("bytes", h.Size).Info("file received")
		r.emit(MessageReceived{From: from, Text: FileReceivedPrefix + path})
		return nil

	default:
		return ErrMalformedHeader
	}
}

// Write streams exactly h.Size bytes from rd into a fresh file under the
// receive directory, reporting progress after every chunk. A failed
// transfer leaves no partial file behind.
func (r *Receiver) Write(rd io.Reader, h *Header, id string) (string, int64, error) {
	t := newTracker(id, h.Name, Inbound, h.Size, r.emit)

	file, path, err := r.create(h.Name)
	if err != nil {
		t.failed(err)
		return "", 0, err
	}

	n, err := r.copy(file, rd, t)
	if cerr := file.Close(); err == nil && cerr != nil {
		err = cerr
	}

	if err != nil {
		os.Remove(path)
		t.failed(err)
		return "", n, err
	}

	t.finish()
	return path, n, nil
}

func (r *Receiver) copy(dst io.Writer, src io.Reader, t *tracker) (int64, error) {
	buf := make([]byte, r.chunk)

	var done int64
	for done < t.total {
		want := min(int64(len(buf)), t.total-done)

		n, err := src.Read(buf[:want])
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return done, werr
			}
			done += int64(n)
			t.add(n)
		}

		if err != nil {
			if done == t.total {
				break
			}

			var netErr net.Error
			if errors.Is(err, io.EOF) || (errors.As(err, &netErr) && netErr.Timeout()) {
				return done, fmt.Errorf("%w: %d of %d bytes: %w", ErrTruncated, done, t.total, err)
			}
			return done, err
		}
	}

	return done, nil
}

// create makes the receive directory if needed and opens a new file for
// name, inserting "(n)" before the extension until the name is free.
// O_EXCL makes the pick safe against concurrent receives of the same name.
func (r *Receiver) create(name string) (*os.File, string, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create %s: %w", r.dir, err)
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	path := filepath.Join(r.dir, name)
	for i := 1; ; i++ {
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return file, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}

		path = filepath.Join(r.dir, fmt.Sprintf("%s(%d)%s", base, i, ext))
	}
}
