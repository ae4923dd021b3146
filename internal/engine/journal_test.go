package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	j, err := OpenJournal(dir)
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Append(LogEntry{Kind: EntryMove, Src: "a", Dst: "b"}))
	require.NoError(t, j.Append(LogEntry{Kind: EntryCopy, Src: "c", Dst: "d"}))

	entries, err := j.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, LogEntry{Kind: EntryMove, Src: "a", Dst: "b"}, entries[0])
	assert.Equal(t, LogEntry{Kind: EntryCopy, Src: "c", Dst: "d"}, entries[1])

	require.NoError(t, j.Clear())
	entries, err = j.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestJournalSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	j, err := OpenJournal(dir)
	require.NoError(t, err)
	require.NoError(t, j.Append(LogEntry{Kind: EntryMove, Src: "a", Dst: "b"}))
	require.NoError(t, j.Close())

	again, err := OpenJournal(dir)
	require.NoError(t, err)
	defer again.Close()

	entries, err := again.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Src)
}

func TestTransactionLogMirrorsToJournal(t *testing.T) {
	dir := t.TempDir()
	j, err := OpenJournal(dir)
	require.NoError(t, err)
	defer j.Close()

	l := NewTransactionLog(j)
	l.Append(EntryMove, "src", "dst")

	entries, err := j.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, EntryMove, entries[0].Kind)
}

func TestReplayJournal(t *testing.T) {
	// A crashed run left: original overwritten, backup present, and a
	// journal recording both steps.
	root := t.TempDir()
	tempDir := filepath.Join(root, TempDirName)
	orig := filepath.Join(root, "a.srt")
	backup := filepath.Join(root, BackupDirName, "a.srt"+BackupSuffix)

	writeFile(t, orig, "original")
	require.NoError(t, os.MkdirAll(filepath.Dir(backup), 0755))
	require.NoError(t, copyFile(orig, backup))
	writeFile(t, orig, "translated")

	j, err := OpenJournal(tempDir)
	require.NoError(t, err)
	require.NoError(t, j.Append(LogEntry{Kind: EntryCopy, Src: orig, Dst: backup}))
	require.NoError(t, j.Append(LogEntry{Kind: EntryMove, Src: filepath.Join(tempDir, "a.srt"), Dst: orig}))
	require.NoError(t, j.Close())

	n, err := ReplayJournal(root)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, "original", readFile(t, orig))
	assert.NoFileExists(t, backup)
	assert.NoFileExists(t, filepath.Join(tempDir, journalFileName))
}

func TestReplayJournalMissing(t *testing.T) {
	_, err := ReplayJournal(t.TempDir())
	assert.Error(t, err)
}
