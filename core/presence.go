package core

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const PresencePrefix = "IPMSG_PEER_ONLINE|"

var ErrMalformedPresence = errors.New("malformed presence message")

type EncodedPresence []byte

func NewPresence(hostname string) EncodedPresence {
	return EncodedPresence(PresencePrefix + hostname)
}

func (e EncodedPresence) String() string {
	return string(e)
}

// Parse returns the announced hostname: the field after the prefix, up to
// the next '|' if there is one.
func (e EncodedPresence) Parse() (string, error) {
	if !utf8.Valid(e) {
		return "", ErrMalformedPresence
	}

	msg := string(e)
	if !strings.HasPrefix(msg, PresencePrefix) {
		return "", ErrMalformedPresence
	}

	name, _, _ := strings.Cut(msg[len(PresencePrefix):], "|")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrMalformedPresence
	}

	return name, nil
}
