package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestBadger(t *testing.T) *Badger {
	t.Helper()
	gw, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { gw.Close() })
	return gw
}

func TestBadgerLoadEmpty(t *testing.T) {
	gw := openTestBadger(t)

	loaded, err := gw.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestBadgerRoundTrip(t *testing.T) {
	roundTrip(t, openTestBadger(t))
}

func TestBadgerSaveOverwrites(t *testing.T) {
	gw := openTestBadger(t)

	chain := snapshot(t)
	require.NoError(t, gw.Save(chain))
	require.NoError(t, gw.Save(chain[:2]))

	loaded, err := gw.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
}
