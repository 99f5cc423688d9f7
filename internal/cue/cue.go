// Package cue synthesizes and plays the short non-speech sounds that mark
// navigation events: focus movement, list boundaries, mode changes, errors.
package cue

import (
	"math"
	"time"
)

// Kind identifies one navigation cue.
type Kind int

const (
	Focus Kind = iota + 1
	Boundary
	Select
	StatusBar
	AppList
	WidgetEnter
	WidgetExit
	Error
	Startup
)

// String returns the theme file stem for a cue kind.
func (k Kind) String() string {
	switch k {
	case Focus:
		return "focus"
	case Boundary:
		return "endoflist"
	case Select:
		return "select"
	case StatusBar:
		return "statusbar"
	case AppList:
		return "applist"
	case WidgetEnter:
		return "widget"
	case WidgetExit:
		return "widgetclose"
	case Error:
		return "error"
	case Startup:
		return "startup"
	default:
		return ""
	}
}

const sampleRate = 16000

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

var cueTones = map[Kind][]toneSpec{
	Focus: {
		{frequencyHz: 940, duration: 45 * time.Millisecond, volume: 0.16},
	},
	Boundary: {
		{frequencyHz: 300, duration: 90 * time.Millisecond, volume: 0.2},
	},
	Select: {
		{frequencyHz: 740, duration: 55 * time.Millisecond, volume: 0.18},
		{frequencyHz: 1110, duration: 70 * time.Millisecond, volume: 0.18},
	},
	StatusBar: {
		{frequencyHz: 620, duration: 60 * time.Millisecond, volume: 0.16},
		{frequencyHz: 620, duration: 40 * time.Millisecond, volume: 0.12},
	},
	AppList: {
		{frequencyHz: 520, duration: 60 * time.Millisecond, volume: 0.16},
		{frequencyHz: 660, duration: 55 * time.Millisecond, volume: 0.16},
	},
	WidgetEnter: {
		{frequencyHz: 660, duration: 60 * time.Millisecond, volume: 0.18},
		{frequencyHz: 880, duration: 60 * time.Millisecond, volume: 0.18},
		{frequencyHz: 1175, duration: 70 * time.Millisecond, volume: 0.18},
	},
	WidgetExit: {
		{frequencyHz: 1175, duration: 60 * time.Millisecond, volume: 0.18},
		{frequencyHz: 880, duration: 60 * time.Millisecond, volume: 0.18},
		{frequencyHz: 660, duration: 70 * time.Millisecond, volume: 0.18},
	},
	Error: {
		{frequencyHz: 420, duration: 80 * time.Millisecond, volume: 0.2},
		{frequencyHz: 320, duration: 110 * time.Millisecond, volume: 0.2},
	},
	Startup: {
		{frequencyHz: 523, duration: 70 * time.Millisecond, volume: 0.16},
		{frequencyHz: 659, duration: 70 * time.Millisecond, volume: 0.16},
		{frequencyHz: 784, duration: 90 * time.Millisecond, volume: 0.16},
	},
}

// samples returns the mono PCM for a cue kind, nil for unknown kinds.
func samples(kind Kind) []int16 {
	return synthesize(cueTones[kind])
}

func synthesize(parts []toneSpec) []int16 {
	if len(parts) == 0 {
		return nil
	}
	gapSamples := samplesForDuration(20 * time.Millisecond)
	total := 0
	for i, part := range parts {
		total += samplesForDuration(part.duration)
		if i < len(parts)-1 {
			total += gapSamples
		}
	}

	pcm := make([]int16, 0, total)
	for i, part := range parts {
		pcm = append(pcm, synthesizeTone(part)...)
		if i < len(parts)-1 && gapSamples > 0 {
			pcm = append(pcm, make([]int16, gapSamples)...)
		}
	}

	return pcm
}

func synthesizeTone(spec toneSpec) []int16 {
	n := samplesForDuration(spec.duration)
	if n <= 0 || spec.frequencyHz <= 0 || spec.volume <= 0 {
		return nil
	}

	attackRelease := n / 10
	maxRamp := sampleRate / 200 // 5ms
	if attackRelease > maxRamp {
		attackRelease = maxRamp
	}
	if attackRelease < 1 {
		attackRelease = 1
	}

	pcm := make([]int16, n)
	for i := 0; i < n; i++ {
		envelope := 1.0
		if i < attackRelease {
			envelope = float64(i) / float64(attackRelease)
		}
		releaseIndex := n - i - 1
		if releaseIndex < attackRelease {
			release := float64(releaseIndex) / float64(attackRelease)
			if release < envelope {
				envelope = release
			}
		}
		t := float64(i) / sampleRate
		sample := math.Sin(2 * math.Pi * spec.frequencyHz * t)
		pcm[i] = int16(math.Round(sample * spec.volume * envelope * 32767))
	}

	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * sampleRate))
}
