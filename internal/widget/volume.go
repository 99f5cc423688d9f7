package widget

import (
	"context"
	"fmt"
	"time"
)

// VolumeService is the platform capability the volume widget wraps.
type VolumeService interface {
	// State reports the default sink's volume percentage and mute flag.
	State(ctx context.Context) (percent int, muted bool, err error)
	SetVolume(ctx context.Context, percent int) error
	SetMute(ctx context.Context, muted bool) error
	Close() error
}

const (
	volumeStep    = 10
	controlWindow = 2 * time.Second
)

// NewVolumeWidget builds the built-in volume control surface over a
// platform session. The session is held for the widget's lifetime and
// closed on release.
func NewVolumeWidget(svc VolumeService, verbose bool) (*Grid, error) {
	ctx, cancel := context.WithTimeout(context.Background(), controlWindow)
	defer cancel()
	if _, _, err := svc.State(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("volume state: %w", err)
	}

	row := []Cell{
		{
			Label: "Mute",
			Kind:  CellToggle,
			Text: func() string {
				_, muted, err := volumeState(svc)
				if err != nil {
					return "Mute"
				}
				if muted {
					return "Muted"
				}
				return "Not muted"
			},
			Do: func() error {
				ctx, cancel := context.WithTimeout(context.Background(), controlWindow)
				defer cancel()
				_, muted, err := svc.State(ctx)
				if err != nil {
					return err
				}
				return svc.SetMute(ctx, !muted)
			},
		},
		{Label: "Volume down", Kind: CellButton, Do: func() error { return adjustVolume(svc, -volumeStep) }},
		{
			Label: "Volume",
			Kind:  CellSlider,
			Text: func() string {
				percent, _, err := volumeState(svc)
				if err != nil {
					return "Volume unavailable"
				}
				return fmt.Sprintf("Volume %d percent", percent)
			},
		},
		{Label: "Volume up", Kind: CellButton, Do: func() error { return adjustVolume(svc, volumeStep) }},
	}

	return NewGrid([][]Cell{row}, verbose, func() { _ = svc.Close() }), nil
}

func volumeState(svc VolumeService) (int, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), controlWindow)
	defer cancel()
	return svc.State(ctx)
}

func adjustVolume(svc VolumeService, delta int) error {
	ctx, cancel := context.WithTimeout(context.Background(), controlWindow)
	defer cancel()

	percent, _, err := svc.State(ctx)
	if err != nil {
		return err
	}
	percent += delta
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return svc.SetVolume(ctx, percent)
}
