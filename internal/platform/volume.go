// Package platform adapts the system control services the built-in
// widgets and status sources depend on: PulseAudio sink volume, the
// NetworkManager D-Bus API, and the UPower battery readout.
package platform

import (
	"context"
	"fmt"
	"math"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// volumeNorm is PA_VOLUME_NORM, the 100% software volume.
const volumeNorm = 0x10000

// PulseVolume is a volume-control session on the default Pulse sink. One
// native-protocol connection is held for the session's lifetime.
type PulseVolume struct {
	client *pulse.Client
	sink   string
}

// NewPulseVolume connects to the Pulse server and resolves the default
// sink name.
func NewPulseVolume() (*PulseVolume, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("veil"),
		pulse.ClientApplicationIconName("audio-volume-high"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}

	var server pulseproto.GetServerInfoReply
	if err := client.RawRequest(&pulseproto.GetServerInfo{}, &server); err != nil {
		client.Close()
		return nil, fmt.Errorf("read server info: %w", err)
	}

	return &PulseVolume{client: client, sink: server.DefaultSinkName}, nil
}

// State reports the default sink's volume percentage and mute flag.
func (v *PulseVolume) State(ctx context.Context) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	reply, err := v.sinkInfo()
	if err != nil {
		return 0, false, err
	}
	return percentFromVolumes(reply.ChannelVolumes), reply.Mute, nil
}

// SetVolume sets every channel of the default sink to the same level.
func (v *PulseVolume) SetVolume(ctx context.Context, percent int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	reply, err := v.sinkInfo()
	if err != nil {
		return err
	}

	volumes := make(pulseproto.ChannelVolumes, len(reply.ChannelVolumes))
	raw := volumeFromPercent(percent)
	for i := range volumes {
		volumes[i] = raw
	}

	err = v.client.RawRequest(&pulseproto.SetSinkVolume{
		SinkIndex:      pulseproto.Undefined,
		SinkName:       v.sink,
		ChannelVolumes: volumes,
	}, nil)
	if err != nil {
		return fmt.Errorf("set sink volume: %w", err)
	}
	return nil
}

// SetMute mutes or unmutes the default sink.
func (v *PulseVolume) SetMute(ctx context.Context, muted bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := v.client.RawRequest(&pulseproto.SetSinkMute{
		SinkIndex: pulseproto.Undefined,
		SinkName:  v.sink,
		Mute:      muted,
	}, nil)
	if err != nil {
		return fmt.Errorf("set sink mute: %w", err)
	}
	return nil
}

// Close releases the Pulse connection.
func (v *PulseVolume) Close() error {
	v.client.Close()
	return nil
}

func (v *PulseVolume) sinkInfo() (*pulseproto.GetSinkInfoReply, error) {
	var reply pulseproto.GetSinkInfoReply
	err := v.client.RawRequest(&pulseproto.GetSinkInfo{
		SinkIndex: pulseproto.Undefined,
		SinkName:  v.sink,
	}, &reply)
	if err != nil {
		return nil, fmt.Errorf("read sink %q: %w", v.sink, err)
	}
	return &reply, nil
}

// percentFromVolumes averages the channel volumes into a 0-100 scale.
func percentFromVolumes(volumes pulseproto.ChannelVolumes) int {
	if len(volumes) == 0 {
		return 0
	}
	var sum uint64
	for _, v := range volumes {
		sum += uint64(v)
	}
	avg := float64(sum) / float64(len(volumes))
	return int(math.Round(avg * 100 / volumeNorm))
}

// volumeFromPercent clamps to 0-100 and converts to a raw Pulse volume.
func volumeFromPercent(percent int) uint32 {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return uint32(math.Round(float64(percent) * volumeNorm / 100))
}
