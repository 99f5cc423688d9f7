package engine

import (
	"errors"
	"fmt"

	"github.com/awrona/veil/internal/config"
	"github.com/awrona/veil/internal/cue"
	"github.com/awrona/veil/internal/directory"
	"github.com/awrona/veil/internal/nav"
)

const (
	categoryApplications = "applications"
	categoryGames        = "games"
	categoryWidgets      = "widgets"
	categoryStatus       = "status"
	categoryMenu         = "menu"
)

// buildCategories assembles the full category tree from the current state
// of the launchers, the widget registry, and the status cache. The Status
// Bar keeps its own cue; every other category shares the list cue.
func (e *Engine) buildCategories() []nav.Category {
	return []nav.Category{
		e.launcherCategory(categoryApplications, "Applications", directory.Applications),
		e.launcherCategory(categoryGames, "Games", directory.Games),
		{ID: categoryWidgets, Name: "Widgets", Cue: cue.AppList, Elements: e.widgetElements()},
		{ID: categoryStatus, Name: "Status Bar", Cue: cue.StatusBar, Elements: e.statusElements()},
		{ID: categoryMenu, Name: "Menu", Cue: cue.AppList, Elements: e.menuElements()},
	}
}

func (e *Engine) launcherCategory(id, name string, kind directory.Kind) nav.Category {
	entries, err := e.launchers.List(kind)
	if err != nil {
		if !errors.Is(err, directory.ErrUnavailable) {
			e.logger.Error("launcher listing failed", "kind", string(kind), "error", err.Error())
		}
		return nav.Category{
			ID:       id,
			Name:     name,
			Cue:      cue.AppList,
			Elements: []nav.Element{{Label: name + " unavailable"}},
		}
	}

	elements := make([]nav.Element, 0, len(entries))
	for _, entry := range entries {
		elements = append(elements, nav.Element{
			Label: entry.Name,
			Kind:  nav.KindAction,
			Payload: nav.ActionFunc(func() error {
				return openEntry(entry)
			}),
		})
	}
	return nav.Category{ID: id, Name: name, Cue: cue.AppList, Elements: elements}
}

func (e *Engine) widgetElements() []nav.Element {
	entries := e.widgets.Entries()
	elements := make([]nav.Element, 0, len(entries))
	for _, entry := range entries {
		elements = append(elements, nav.Element{
			Label:   entry.Info.Name,
			Kind:    nav.KindWidget,
			Payload: entry.Factory,
		})
	}
	return elements
}

// statusElements renders the cached poller lines. Activating a line speaks
// it again in full.
func (e *Engine) statusElements() []nav.Element {
	snapshot := e.poller.Snapshot()
	elements := make([]nav.Element, 0, len(snapshot))
	for _, entry := range snapshot {
		line := fmt.Sprintf("%s: %s", entry.Name, entry.Text)
		elements = append(elements, nav.Element{
			Label: line,
			Kind:  nav.KindAction,
			Payload: nav.ActionFunc(func() error {
				e.audio.Speak(line, 0, 0, true)
				return nil
			}),
		})
	}
	return elements
}

func (e *Engine) menuElements() []nav.Element {
	return []nav.Element{
		{
			Label:   "Settings",
			Kind:    nav.KindExpand,
			Payload: nav.ExpandFunc(e.settingsItems),
		},
		{
			Label: "Refresh",
			Kind:  nav.KindAction,
			Payload: nav.ActionFunc(func() error {
				e.refreshLocked()
				return nil
			}),
		},
		{
			Label: "Exit navigation",
			Kind:  nav.KindAction,
			Payload: nav.ActionFunc(func() error {
				e.deactivateLocked()
				return nil
			}),
		},
	}
}

// refreshLocked rebuilds the whole tree; the cursor returns to the top.
// Runs under the navigation lock via activation.
func (e *Engine) refreshLocked() {
	e.widgets.Rescan()
	e.model.SetCategories(e.buildCategories())
	e.audio.Speak("Refreshed", 0, 0, true)
}

// settingsItems lists the toggleable settings with their current values.
// Each toggle persists the change, applies it live, and confirms aloud.
func (e *Engine) settingsItems() ([]nav.Element, error) {
	cfg := e.store.Config()
	return []nav.Element{
		e.settingToggle("Speech", cfg.Speech.Enable,
			func(c *config.Config, v bool) { c.Speech.Enable = v }),
		e.settingToggle("Sounds", cfg.Sound.Enable,
			func(c *config.Config, v bool) { c.Sound.Enable = v }),
		e.settingToggle("Stereo speech", cfg.Speech.Stereo,
			func(c *config.Config, v bool) { c.Speech.Stereo = v }),
		e.settingToggle("Stereo sounds", cfg.Sound.Stereo,
			func(c *config.Config, v bool) { c.Sound.Stereo = v }),
		e.settingToggle("Announce index", cfg.Navigation.AnnounceIndex,
			func(c *config.Config, v bool) { c.Navigation.AnnounceIndex = v }),
		e.settingToggle("Announce first item", cfg.Navigation.AnnounceFirstItem,
			func(c *config.Config, v bool) { c.Navigation.AnnounceFirstItem = v }),
		e.settingToggle("Verbose widgets", cfg.Navigation.VerboseWidgets,
			func(c *config.Config, v bool) { c.Navigation.VerboseWidgets = v }),
	}, nil
}

func (e *Engine) settingToggle(name string, current bool, set func(*config.Config, bool)) nav.Element {
	next := !current
	return nav.Element{
		Label: fmt.Sprintf("%s: %s", name, onOff(current)),
		Kind:  nav.KindAction,
		Payload: nav.ActionFunc(func() error {
			if err := e.store.Update(func(c *config.Config) { set(c, next) }); err != nil {
				return fmt.Errorf("update setting %q: %w", name, err)
			}
			e.applySettingsLocked()
			e.audio.Speak(fmt.Sprintf("%s %s", name, onOff(next)), 0, 0, true)
			return nil
		}),
	}
}

// applySettingsLocked pushes the persisted settings into the live ports.
func (e *Engine) applySettingsLocked() {
	cfg := e.store.Config()
	e.model.SetOptions(e.navOptions())
	e.audio.SetOptions(FeedbackOptions(cfg))
	e.widgets.SetVerbose(cfg.Navigation.VerboseWidgets)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
