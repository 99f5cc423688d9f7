package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreUpdatePersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.conf")
	store := NewStore(Loaded{Path: path, Config: Default()})

	require.NoError(t, store.Update(func(c *Config) {
		c.Navigation.AnnounceIndex = true
		c.Speech.RateWPM = 200
	}))
	require.True(t, store.Config().Navigation.AnnounceIndex)
	require.Equal(t, 200, store.Config().Speech.RateWPM)

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.True(t, loaded.Config.Navigation.AnnounceIndex)
	require.Equal(t, 200, loaded.Config.Speech.RateWPM)
	require.Equal(t, Default().Hotkeys, loaded.Config.Hotkeys)
}

func TestStoreUpdateRejectsInvalidChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.conf")
	store := NewStore(Loaded{Path: path, Config: Default()})

	err := store.Update(func(c *Config) { c.Speech.RateWPM = 9000 })
	require.Error(t, err)
	require.Equal(t, Default().Speech.RateWPM, store.Config().Speech.RateWPM, "live value unchanged")
}

func TestStorePersistsPlaybackCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.conf")
	store := NewStore(Loaded{Path: path, Config: Default()})

	require.NoError(t, store.Update(func(c *Config) {
		c.Playback = CommandConfig{Raw: "mpv voice.ogg", Argv: []string{"mpv", "voice.ogg"}}
	}))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "mpv voice.ogg", loaded.Config.Playback.Raw)
	require.Equal(t, []string{"mpv", "voice.ogg"}, loaded.Config.Playback.Argv)
}
