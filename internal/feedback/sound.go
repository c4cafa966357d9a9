package feedback

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
)

type cueKind int

const (
	cueSelect cueKind = iota + 1
	cueSpeak
	cueClear
)

const cueSampleRate = 16000

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

var (
	selectCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 1046, duration: 45 * time.Millisecond, volume: 0.16},
	})
	speakCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 660, duration: 60 * time.Millisecond, volume: 0.18},
		{frequencyHz: 880, duration: 60 * time.Millisecond, volume: 0.18},
		{frequencyHz: 1175, duration: 80 * time.Millisecond, volume: 0.18},
	})
	clearCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 587, duration: 70 * time.Millisecond, volume: 0.16},
		{frequencyHz: 440, duration: 90 * time.Millisecond, volume: 0.16},
	})
)

// emitCue prefers a configured cue file and falls back to the synthesized tone.
func (f *Feedback) emitCue(ctx context.Context, kind cueKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if path := f.cuePath(kind); path != "" {
		err := playCueFile(ctx, path)
		if err == nil {
			return nil
		}
		f.log("cue file playback failed; using synthesized cue", err)
	}

	samples := cueSamples(kind)
	if len(samples) == 0 {
		return nil
	}
	return f.player.Play(ctx, samples)
}

func (f *Feedback) cuePath(kind cueKind) string {
	switch kind {
	case cueSelect:
		return expandUserPath(f.cfg.SelectFile)
	case cueSpeak:
		return expandUserPath(f.cfg.SpeakFile)
	case cueClear:
		return expandUserPath(f.cfg.ClearFile)
	default:
		return ""
	}
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
	return filepath.Join(home, strings.TrimPrefix(raw, "~"))
}

func playCueFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}

	playCtx, cancel := context.WithTimeout(ctx, 4*time.Second)
	defer cancel()

	cmd := exec.CommandContext(playCtx, "pw-play", "--media-role", "Notification", path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

// pulsePlayer plays cues on the default PulseAudio sink.
type pulsePlayer struct {
	appName string
}

func (p pulsePlayer) Play(ctx context.Context, samples []int16) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := p.appName
	if name == "" {
		name = "tilebuddy"
	}
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(name),
		pulse.ClientApplicationIconName("input-tablet"),
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
		pulse.PlaybackMediaName(name+" cue"),
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

func cueSamples(kind cueKind) []int16 {
	switch kind {
	case cueSelect:
		return selectCuePCM
	case cueSpeak:
		return speakCuePCM
	case cueClear:
		return clearCuePCM
	default:
		return nil
	}
}

// synthesizeCue concatenates tones separated by short silences.
func synthesizeCue(parts []toneSpec) []int16 {
	gap := samplesForDuration(22 * time.Millisecond)

	var pcm []int16
	for i, part := range parts {
		if i > 0 {
			pcm = append(pcm, make([]int16, gap)...)
		}
		pcm = append(pcm, synthesizeTone(part)...)
	}
	return pcm
}

// synthesizeTone renders a sine with a linear attack/release ramp of at most 5ms.
func synthesizeTone(spec toneSpec) []int16 {
	n := samplesForDuration(spec.duration)
	if n <= 0 || spec.frequencyHz <= 0 || spec.volume <= 0 {
		return nil
	}

	ramp := max(1, min(n/10, cueSampleRate/200))

	pcm := make([]int16, n)
	for i := 0; i < n; i++ {
		envelope := min(1.0, float64(i)/float64(ramp), float64(n-i-1)/float64(ramp))
		t := float64(i) / cueSampleRate
		sample := math.Sin(2 * math.Pi * spec.frequencyHz * t)
		pcm[i] = int16(math.Round(sample * spec.volume * envelope * 32767))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
