package record

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turns.parquet")
	w, err := NewWriter(path, "session-1")
	require.NoError(t, err)

	require.NoError(t, w.Write(TurnRow{Match: 0, Step: 1, MatchStep: 1, Units: 2, Harvesters: 1, ActionTypes: []int32{1, 0}}))
	require.NoError(t, w.Write(TurnRow{Match: 0, Step: 2, MatchStep: 2, Points: 3, Reward: 3, RelicsFound: true}))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file appears only on close")

	require.NoError(t, w.Close())
	assert.Equal(t, 2, w.Rows())
	assert.Error(t, w.Write(TurnRow{}))

	rows, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "session-1", rows[0].Session)
	assert.Equal(t, []int32{1, 0}, rows[0].ActionTypes)
	assert.Equal(t, int32(1), rows[0].Harvesters)
	assert.Equal(t, int32(3), rows[1].Reward)
	assert.True(t, rows[1].RelicsFound)
}

func TestEmptyWriterLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turns.parquet")
	w, err := NewWriter(path, "s")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
