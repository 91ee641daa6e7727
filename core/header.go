package core

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	PrefixMessage = "MSG|"
	PrefixFile    = "FILE|"

	Version uint8 = 1

	// MaxHeaderLength bounds the declared header length before anything is allocated.
	MaxHeaderLength = 1 << 20
)

var (
	ErrMalformedHeader    = errors.New("malformed header")
	ErrHeaderTooLong      = errors.New("header exceeds maximum length")
	ErrUnsupportedVersion = errors.New("unsupported header version")
	ErrInvalidFileName    = errors.New("invalid file name")
)

type Kind uint8

const (
	KindMessage Kind = iota + 1
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "MSG"
	case KindFile:
		return "FILE"
	default:
		return "UNKNOWN"
	}
}

// Header is the single frame a connection carries. Text is set for
// messages, Name and Size for files. Version is zero when the peer did
// not send the optional "V<n>|" prefix.
type Header struct {
	Kind    Kind
	Version uint8
	Text    string
	Name    string
	Size    int64
}

func NewMessageHeader(text string) *Header {
	return &Header{Kind: KindMessage, Text: text}
}

func NewFileHeader(name string, size int64) *Header {
	return &Header{Kind: KindFile, Name: name, Size: size}
}

// String encodes h in the pipe delimited grammar.
func (h *Header) String() string {
	var b strings.Builder
	if h.Version > 0 {
		fmt.Fprintf(&b, "V%d|", h.Version)
	}

	switch h.Kind {
	case KindMessage:
		b.WriteString(PrefixMessage)
		b.WriteString(h.Text)
	case KindFile:
		b.WriteString(PrefixFile)
		b.WriteString(h.Name)
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(h.Size, 10))
	}

	return b.String()
}

func (h *Header) validate() error {
	switch h.Kind {
	case KindMessage:
		return nil
	case KindFile:
		if h.Size < 0 {
			return fmt.Errorf("%w: negative size %d", ErrMalformedHeader, h.Size)
		}
		if _, err := cleanFileName(h.Name); err != nil {
			return err
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrMalformedHeader, h.Kind)
	}
}

// ParseHeader decodes a header string. The file name is everything between
// "FILE|" and the last '|', so names containing '|' survive.
func ParseHeader(s string) (*Header, error) {
	var version uint8
	if v, rest, ok := cutVersion(s); ok {
		if v == 0 || v > Version {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
		}
		version, s = v, rest
	}

	switch {
	case strings.HasPrefix(s, PrefixMessage):
		return &Header{
			Kind:    KindMessage,
			Version: version,
			Text:    s[len(PrefixMessage):],
		}, nil

	case strings.HasPrefix(s, PrefixFile):
		rest := s[len(PrefixFile):]
		i := strings.LastIndexByte(rest, '|')
		if i < 0 {
			return nil, fmt.Errorf("%w: missing size", ErrMalformedHeader)
		}

		size, err := strconv.ParseInt(strings.TrimSpace(rest[i+1:]), 10, 64)
		if err != nil || size < 0 {
			return nil, fmt.Errorf("%w: invalid size %q", ErrMalformedHeader, rest[i+1:])
		}

		name, err := cleanFileName(rest[:i])
		if err != nil {
			return nil, err
		}

		return &Header{
			Kind:    KindFile,
			Version: version,
			Name:    name,
			Size:    size,
		}, nil

	default:
		return nil, ErrMalformedHeader
	}
}

// cutVersion splits a leading "V<digits>|" off s.
func cutVersion(s string) (uint8, string, bool) {
	if len(s) < 3 || s[0] != 'V' {
		return 0, s, false
	}

	i := strings.IndexByte(s, '|')
	if i < 2 {
		return 0, s, false
	}

	v, err := strconv.ParseUint(s[1:i], 10, 8)
	if err != nil {
		return 0, s, false
	}

	return uint8(v), s[i+1:], true
}

// cleanFileName keeps only the base name so a header cannot address
// anything outside the receive directory.
func cleanFileName(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	name = filepath.Base(filepath.FromSlash(name))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	return name, nil
}

// WriteString writes s prefixed with its byte length as an unsigned
// varint: 7 bits per byte, low bits first, high bit set while more follow.
func WriteString(w io.Writer, s string) error {
	if len(s) > MaxHeaderLength {
		return ErrHeaderTooLong
	}

	buf := make([]byte, 0, binary.MaxVarintLen64+len(s))
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	buf = append(buf, s...)

	_, err := w.Write(buf)
	return err
}

// ReadString reads one length prefixed UTF-8 string written by WriteString.
func ReadString(r *bufio.Reader) (string, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}

	if n > MaxHeaderLength {
		return "", fmt.Errorf("%w: %d bytes", ErrHeaderTooLong, n)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("failed to read header: %w", err)
	}

	if !utf8.Valid(buf) {
		return "", fmt.Errorf("%w: invalid utf-8", ErrMalformedHeader)
	}

	return string(buf), nil
}

func WriteHeader(w io.Writer, h *Header) error {
	if err := h.validate(); err != nil {
		return err
	}
	return WriteString(w, h.String())
}

func ReadHeader(r *bufio.Reader) (*Header, error) {
	s, err := ReadString(r)
	if err != nil {
		return nil, err
	}
	return ParseHeader(s)
}
