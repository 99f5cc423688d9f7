// Package speech turns text into spatially positioned audio output. Text is
// rendered by an external synthesizer subprocess, panned in PCM, and played
// through the default Pulse output.
package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Synthesizer renders one utterance to mono PCM at its native sample rate.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, pitchOffset int) ([]int16, int, error)
}

// EspeakSynthesizer shells out to espeak-ng with WAV output on stdout.
type EspeakSynthesizer struct {
	Command   string // binary name, default espeak-ng
	Voice     string
	RateWPM   int
	Amplitude int // 0..200
}

const (
	espeakBasePitch = 50 // espeak pitch scale midpoint (0..99)
	pitchOffsetStep = 4  // one navigation pitch step in espeak pitch scale
)

// Synthesize runs the synthesizer binary and decodes its WAV output.
func (e EspeakSynthesizer) Synthesize(ctx context.Context, text string, pitchOffset int) ([]int16, int, error) {
	command := strings.TrimSpace(e.Command)
	if command == "" {
		command = "espeak-ng"
	}

	args := []string{"--stdout"}
	if e.Voice != "" {
		args = append(args, "-v", e.Voice)
	}
	if e.RateWPM > 0 {
		args = append(args, "-s", strconv.Itoa(e.RateWPM))
	}
	if e.Amplitude > 0 {
		args = append(args, "-a", strconv.Itoa(e.Amplitude))
	}
	args = append(args, "-p", strconv.Itoa(espeakPitch(pitchOffset)), "--", text)

	cmd := exec.CommandContext(ctx, command, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, 0, fmt.Errorf("run %s: %w", command, err)
	}

	pcm, rate, err := decodeWAV(out.Bytes())
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s output: %w", command, err)
	}
	return pcm, rate, nil
}

// espeakPitch maps a [-10,10] pitch offset onto the espeak 0..99 scale.
func espeakPitch(offset int) int {
	if offset < -10 {
		offset = -10
	}
	if offset > 10 {
		offset = 10
	}
	pitch := espeakBasePitch + offset*pitchOffsetStep
	if pitch < 0 {
		pitch = 0
	}
	if pitch > 99 {
		pitch = 99
	}
	return pitch
}

// decodeWAV extracts 16-bit mono samples from a RIFF/WAVE payload. Streamed
// WAV output may carry a bogus data-chunk length, so the chunk is read to the
// end of the buffer.
func decodeWAV(raw []byte) ([]int16, int, error) {
	if len(raw) < 12 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE payload (%d bytes)", len(raw))
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		haveFormat    bool
	)

	offset := 12
	for offset+8 <= len(raw) {
		chunkID := string(raw[offset : offset+4])
		chunkLen := int(binary.LittleEndian.Uint32(raw[offset+4 : offset+8]))
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if body+16 > len(raw) {
				return nil, 0, fmt.Errorf("truncated fmt chunk")
			}
			channels = int(binary.LittleEndian.Uint16(raw[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(raw[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(raw[body+14 : body+16]))
			haveFormat = true
		case "data":
			if !haveFormat {
				return nil, 0, fmt.Errorf("data chunk before fmt chunk")
			}
			if bitsPerSample != 16 {
				return nil, 0, fmt.Errorf("unsupported sample width %d", bitsPerSample)
			}
			if channels < 1 {
				return nil, 0, fmt.Errorf("invalid channel count %d", channels)
			}
			end := body + chunkLen
			if chunkLen <= 0 || end > len(raw) {
				end = len(raw)
			}
			return decodeSamples(raw[body:end], channels), sampleRate, nil
		}

		if chunkLen <= 0 {
			break
		}
		offset = body + chunkLen + chunkLen%2
	}

	return nil, 0, fmt.Errorf("no data chunk found")
}

// decodeSamples downmixes interleaved 16-bit frames to mono.
func decodeSamples(raw []byte, channels int) []int16 {
	frameBytes := channels * 2
	frames := len(raw) / frameBytes
	mono := make([]int16, 0, frames)
	for f := 0; f < frames; f++ {
		sum := 0
		for c := 0; c < channels; c++ {
			idx := f*frameBytes + c*2
			sum += int(int16(binary.LittleEndian.Uint16(raw[idx : idx+2])))
		}
		mono = append(mono, int16(sum/channels))
	}
	return mono
}
