package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "IPMSG_PEER_ONLINE|desk-01", want: "desk-01"},
		{in: "IPMSG_PEER_ONLINE|desk-01|extra", want: "desk-01"},
		{in: "IPMSG_PEER_ONLINE| laptop ", want: "laptop"},
		{in: "IPMSG_PEER_ONLINE|", err: true},
		{in: "IPMSG_PEER_ONLINE", err: true},
		{in: "ipmsg_peer_online|x", err: true},
		{in: `{"type":"hello","name":"x"}`, err: true},
		{in: "", err: true},
	}

	for _, tt := range tests {
		name, err := EncodedPresence(tt.in).Parse()
		if tt.err {
			assert.ErrorIs(t, err, ErrMalformedPresence, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, name, tt.in)
	}
}

func TestPresenceInvalidUTF8(t *testing.T) {
	msg := append([]byte(PresencePrefix), 0xff, 0xfe)
	_, err := EncodedPresence(msg).Parse()
	assert.ErrorIs(t, err, ErrMalformedPresence)
}

func TestNewPresence(t *testing.T) {
	assert.Equal(t, "IPMSG_PEER_ONLINE|desk-01", NewPresence("desk-01").String())
}
