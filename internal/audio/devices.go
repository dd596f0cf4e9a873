// Package audio lists PulseAudio sources, picks one, and captures 16 kHz mono PCM from it.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

var (
	// ErrNoDevice means no usable input source exists.
	ErrNoDevice = errors.New("no usable audio input device")
	// ErrServerUnavailable means the PulseAudio server refused or could not be reached.
	ErrServerUnavailable = errors.New("pulseaudio server unavailable")
)

// Device describes one input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Label formats a device for logs and listings.
func (d Device) Label() string {
	id := strings.TrimSpace(d.ID)
	description := strings.TrimSpace(d.Description)
	switch {
	case description == "":
		return id
	case id == "":
		return description
	default:
		return fmt.Sprintf("%s (%s)", description, id)
	}
}

// Selection is the chosen capture source; Warning is set when a fallback was taken.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

func connect(purpose string) (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("parley"),
		pulse.ClientApplicationIconName(purpose),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServerUnavailable, err)
	}
	return client, nil
}

// ListDevices returns every input source with default and availability flags.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := connect("audio-input-microphone")
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultID := ""
	if source, err := client.DefaultSource(); err == nil {
		defaultID = source.ID()
	}

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          info.SourceName,
			Description: info.Device,
			State:       sourceStateString(info.State),
			Available:   sourceAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == defaultID,
		})
	}
	return devices, nil
}

// SelectDevice resolves the input and fallback preferences against the live source list.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectFrom(devices, input, fallback)
}

// selectFrom picks the preferred device, or the fallback when the preferred one is muted or unplugged.
// An empty term or "default" means the server default source.
func selectFrom(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, fmt.Errorf("%w: no sources reported", ErrNoDevice)
	}

	primary, err := resolve(devices, input, "audio.input")
	if err != nil {
		return Selection{}, err
	}
	if usable(primary) {
		return Selection{Device: primary}, nil
	}

	reason := "unavailable"
	if primary.Muted {
		reason = "muted"
	}

	alternate, err := resolve(devices, fallback, "audio.fallback")
	if err != nil {
		return Selection{}, fmt.Errorf("primary input %q is %s and no usable fallback: %w", primary.ID, reason, err)
	}
	if !alternate.Available {
		return Selection{}, fmt.Errorf("%w: fallback %q is not available", ErrNoDevice, alternate.ID)
	}
	if alternate.Muted {
		return Selection{}, fmt.Errorf("%w: fallback %q is muted", ErrNoDevice, alternate.ID)
	}

	return Selection{
		Device:   alternate,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reason, alternate.ID),
		Fallback: alternate.ID != primary.ID,
	}, nil
}

func resolve(devices []Device, term string, key string) (Device, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || term == "default" {
		for _, device := range devices {
			if device.Default {
				return device, nil
			}
		}
		return Device{}, fmt.Errorf("%w: default source is unavailable", ErrNoDevice)
	}
	for _, device := range devices {
		if deviceMatches(device, term) {
			return device, nil
		}
	}
	return Device{}, fmt.Errorf("%w: %s %q did not match any device", ErrNoDevice, key, term)
}

func usable(device Device) bool {
	return device.Available && !device.Muted
}

// deviceMatches reports whether a lowercase term is contained in the device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}

func sourceStateString(state uint32) string {
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

// sourceAvailable checks the active port; sources without ports count as available.
func sourceAvailable(info *pulseproto.GetSourceInfoReply) bool {
	if info == nil {
		return false
	}
	for _, port := range info.Ports {
		if port.Name == info.ActivePortName {
			// unknown=0, no=1, yes=2
			return port.Available != 1
		}
	}
	return true
}
