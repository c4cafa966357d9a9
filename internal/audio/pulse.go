// Package audio discovers PulseAudio output sinks used for cue playback.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Device describes one Pulse output sink surfaced to tilebuddy.
type Device struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	State       string `json:"state"`
	Available   bool   `json:"available"`
	Muted       bool   `json:"muted"`
	Default     bool   `json:"default"`
}

// Selection is the resolved playback sink plus an optional warning.
type Selection struct {
	Device  Device
	Warning string
}

// ListDevices returns Pulse output sinks with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("tilebuddy"),
		pulse.ClientApplicationIconName("input-tablet"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	defaultSink, err := client.DefaultSink()
	if err != nil {
		return nil, fmt.Errorf("read default sink: %w", err)
	}
	defaultID := defaultSink.ID()

	var sinkInfos pulseproto.GetSinkInfoListReply
	if err := client.RawRequest(&pulseproto.GetSinkInfoList{}, &sinkInfos); err != nil {
		return nil, fmt.Errorf("list sinks: %w", err)
	}

	devices := make([]Device, 0, len(sinkInfos))
	for _, sink := range sinkInfos {
		if sink == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          sink.SinkName,
			Description: sink.Device,
			State:       stateString(sink.State),
			Available:   sinkAvailable(sink),
			Muted:       sink.Mute,
			Default:     sink.SinkName == defaultID,
		})
	}
	return devices, nil
}

// SelectDevice resolves a preferred sink ("default" or a search term) against live devices.
func SelectDevice(ctx context.Context, preferred string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, preferred)
}

// selectDeviceFromList applies selection policy to a pre-fetched device list.
// A muted or unavailable match is still returned, with a warning, since cues are optional.
func selectDeviceFromList(devices []Device, preferred string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio output devices found")
	}

	preferred = strings.TrimSpace(strings.ToLower(preferred))

	var chosen *Device
	for i := range devices {
		dev := &devices[i]
		if preferred == "" || preferred == "default" {
			if dev.Default {
				chosen = dev
				break
			}
			continue
		}
		if deviceMatches(*dev, preferred) {
			chosen = dev
			break
		}
	}

	if chosen == nil {
		if preferred == "" || preferred == "default" {
			return Selection{}, errors.New("default audio sink is unavailable")
		}
		return Selection{}, fmt.Errorf("audio sink %q did not match any device", preferred)
	}

	selection := Selection{Device: *chosen}
	switch {
	case chosen.Muted:
		selection.Warning = fmt.Sprintf("audio sink %q is muted; cues will be silent", chosen.ID)
	case !chosen.Available:
		selection.Warning = fmt.Sprintf("audio sink %q is unavailable; cues will be silent", chosen.ID)
	}
	return selection, nil
}

// deviceMatches reports whether a search term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}

// stateString maps Pulse sink state constants to human-readable values.
func stateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sinkAvailable maps the active port's availability to a simple boolean.
func sinkAvailable(sink *pulseproto.GetSinkInfoReply) bool {
	if sink == nil {
		return false
	}
	if len(sink.Ports) == 0 {
		return true
	}
	for _, port := range sink.Ports {
		if port.Name != sink.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
