package directory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeEntry(t *testing.T, root string, kind Kind, file, body string) {
	t.Helper()
	dir := filepath.Join(root, string(kind))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(body), 0o644))
}

func TestListSortsAndSkipsMalformed(t *testing.T) {
	root := t.TempDir()
	writeEntry(t, root, Applications, "web.yaml", "name: Web Browser\nexec: firefox\n")
	writeEntry(t, root, Applications, "edit.yaml", "name: Editor\nexec: gedit\n")
	writeEntry(t, root, Applications, "broken.yaml", "name: [\n")
	writeEntry(t, root, Applications, "incomplete.yaml", "name: Half\n")
	writeEntry(t, root, Applications, "notes.txt", "ignored")

	d := New(root, nil)
	entries, err := d.List(Applications)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "Editor", entries[0].Name)
	require.Equal(t, "Web Browser", entries[1].Name)
}

func TestListKindsAreSeparate(t *testing.T) {
	root := t.TempDir()
	writeEntry(t, root, Applications, "edit.yaml", "name: Editor\nexec: gedit\n")
	writeEntry(t, root, Games, "chess.yaml", "name: Chess\nexec: gnome-chess\n")

	d := New(root, nil)
	apps, err := d.List(Applications)
	require.NoError(t, err)
	games, err := d.List(Games)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	require.Len(t, games, 1)
	require.Equal(t, "Chess", games[0].Name)
}

func TestListMissingDirIsEmptyNotUnavailable(t *testing.T) {
	d := New(t.TempDir(), nil)
	entries, err := d.List(Games)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestListUnreadableDirIsUnavailable(t *testing.T) {
	root := t.TempDir()
	// A file where the kind directory should be forces a read failure.
	require.NoError(t, os.WriteFile(filepath.Join(root, string(Games)), []byte("x"), 0o644))

	d := New(root, nil)
	_, err := d.List(Games)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestEntryOpenStartsDetached(t *testing.T) {
	root := t.TempDir()
	marker := filepath.Join(root, "launched")
	writeEntry(t, root, Applications, "touch.yaml", "name: Touch\nexec: touch "+marker+"\n")

	d := New(root, nil)
	entries, err := d.List(Applications)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, entries[0].Open(context.Background()))
	require.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}
