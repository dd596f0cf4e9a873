package indicator

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/rbright/parley/internal/config"
)

type cueKind int

const (
	cueListenStart cueKind = iota + 1
	cueListenStop
	cueReply
	cueError
)

func (k cueKind) String() string {
	switch k {
	case cueListenStart:
		return "listen-start"
	case cueListenStop:
		return "listen-stop"
	case cueReply:
		return "reply"
	case cueError:
		return "error"
	default:
		return "unknown"
	}
}

const cueSampleRate = 16000

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

var cueTones = map[cueKind][]toneSpec{
	cueListenStart: {
		{frequencyHz: 880, duration: 70 * time.Millisecond, volume: 0.18},
		{frequencyHz: 1175, duration: 70 * time.Millisecond, volume: 0.18},
	},
	cueListenStop: {
		{frequencyHz: 620, duration: 120 * time.Millisecond, volume: 0.18},
	},
	cueReply: {
		{frequencyHz: 740, duration: 65 * time.Millisecond, volume: 0.16},
		{frequencyHz: 988, duration: 90 * time.Millisecond, volume: 0.16},
	},
	cueError: {
		{frequencyHz: 480, duration: 75 * time.Millisecond, volume: 0.18},
		{frequencyHz: 360, duration: 90 * time.Millisecond, volume: 0.18},
	},
}

var cuePCM = func() map[cueKind][]int16 {
	pcm := make(map[cueKind][]int16, len(cueTones))
	for kind, tones := range cueTones {
		pcm[kind] = synthesizeCue(tones)
	}
	return pcm
}()

// playCue prefers a configured sound file and falls back to the synthesized tone.
func playCue(ctx context.Context, kind cueKind, cfg config.IndicatorConfig) error {
	if path := cuePath(kind, cfg); path != "" {
		if err := playCueFile(ctx, path); err == nil {
			return nil
		}
	}

	samples := cuePCM[kind]
	if len(samples) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return playSynthCue(samples)
}

func cuePath(kind cueKind, cfg config.IndicatorConfig) string {
	var raw string
	switch kind {
	case cueListenStart:
		raw = cfg.SoundStartFile
	case cueListenStop:
		raw = cfg.SoundStopFile
	case cueReply:
		raw = cfg.SoundReplyFile
	case cueError:
		raw = cfg.SoundErrorFile
	}
	return expandUserPath(raw)
}

func expandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(raw, "~"), "/"))
}

func playCueFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 4*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

func playSynthCue(samples []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("parley"),
		pulse.ClientApplicationIconName("audio-volume-medium"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if cursor >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("parley cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

// synthesizeCue joins tones with a short silence between them.
func synthesizeCue(parts []toneSpec) []int16 {
	gap := samplesForDuration(22 * time.Millisecond)

	var pcm []int16
	for i, part := range parts {
		pcm = append(pcm, synthesizeTone(part)...)
		if i < len(parts)-1 {
			pcm = append(pcm, make([]int16, gap)...)
		}
	}
	return pcm
}

// synthesizeTone renders a sine with a short linear attack and release to avoid clicks.
func synthesizeTone(spec toneSpec) []int16 {
	n := samplesForDuration(spec.duration)
	if n <= 0 || spec.frequencyHz <= 0 || spec.volume <= 0 {
		return nil
	}

	ramp := min(n/10, cueSampleRate/200)
	ramp = max(ramp, 1)

	pcm := make([]int16, n)
	for i := range n {
		envelope := 1.0
		if i < ramp {
			envelope = float64(i) / float64(ramp)
		}
		if tail := n - i - 1; tail < ramp {
			envelope = math.Min(envelope, float64(tail)/float64(ramp))
		}
		t := float64(i) / cueSampleRate
		pcm[i] = int16(math.Round(math.Sin(2*math.Pi*spec.frequencyHz*t) * spec.volume * envelope * 32767))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
