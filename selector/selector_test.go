package selector

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dyastin-0/lanmsg/peers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPages(t *testing.T) {
	total, page := pages(0, 3)
	assert.Equal(t, 1, total)
	assert.Equal(t, 0, page)

	total, page = pages(PageSize*2+1, 5)
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, page)

	_, page = pages(10, -1)
	assert.Equal(t, 0, page)
}

func TestFilesEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "zdir"), 0o755))
	for _, name := range []string{"b.txt", "A.txt", "c.log"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}

	f := NewFiles(dir)
	entries, err := f.entries()
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"zdir", "A.txt", "b.txt", "c.log"}, names)

	f.filter = "TXT"
	entries, err = f.entries()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFilesToggleAndSelectDir(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one"), make([]byte, 10), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "two"), make([]byte, 5), 0o644))

	f := NewFiles(dir)

	f.Toggle(filepath.Join(dir, "one"), 10)
	assert.Equal(t, int64(10), f.Bytes())
	f.Toggle(filepath.Join(dir, "one"), 10)
	assert.Zero(t, f.Bytes())
	assert.Empty(t, f.Paths())

	require.NoError(t, f.SelectDir(dir))
	assert.Equal(t, []string{filepath.Join(dir, "nested", "two"), filepath.Join(dir, "one")}, f.Paths())
	assert.Equal(t, int64(15), f.Bytes())

	// selecting again does not deselect
	require.NoError(t, f.SelectDir(dir))
	assert.Len(t, f.Paths(), 2)
}

func TestPeersFilterAndSelect(t *testing.T) {
	now := time.Now()
	list := []peers.Peer{
		{Identity: peers.Identity{Name: "alpha", Addr: "10.0.0.2"}, LastSeen: now},
		{Identity: peers.Identity{Name: "beta", Addr: "10.0.0.3"}, LastSeen: now.Add(-10 * time.Second)},
		{Identity: peers.Identity{Name: "Gamma", Addr: "192.168.1.4"}, LastSeen: now},
	}
	snapshot := func() []peers.Peer { return append([]peers.Peer(nil), list...) }

	p := NewPeers(snapshot, 4*time.Second)
	p.now = func() time.Time { return now }

	p.filter = "10.0.0"
	assert.Len(t, p.list(), 2)

	p.filter = "gam"
	require.Len(t, p.list(), 1)
	assert.Equal(t, "Gamma", p.list()[0].Name)

	p.ToggleAll()
	p.filter = ""
	p.Toggle(list[1].Identity)
	assert.Equal(t, []peers.Identity{list[1].Identity, list[2].Identity}, p.Selected())

	p.Toggle(list[1].Identity)
	assert.Equal(t, []peers.Identity{list[2].Identity}, p.Selected())

	assert.Contains(t, p.label(list[0]), "alpha")
	assert.Contains(t, p.label(list[1]), "10s")
}
