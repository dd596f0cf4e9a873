package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Capture format shared with the recognition transport.
const (
	SampleRate = 16000
	Channels   = 1
	// ChunkBytes is 20ms of s16 mono audio.
	ChunkBytes = 640
)

// CaptureOptions tunes a capture.
type CaptureOptions struct {
	// Retain keeps every captured byte so it can be dumped afterwards.
	Retain bool
}

// Capture streams fixed-size PCM chunks from one source.
type Capture struct {
	device  Device
	options CaptureOptions

	client *pulse.Client
	stream *pulse.RecordStream

	chunks chan []byte
	stopCh chan struct{}

	mu       sync.Mutex
	pending  []byte
	retained []byte
	stopped  bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

// StartCapture opens a record stream on device. Cancelling ctx stops the capture.
func StartCapture(ctx context.Context, device Device, options CaptureOptions) (*Capture, error) {
	client, err := connect("audio-input-microphone")
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: resolve source %q: %v", ErrNoDevice, device.ID, err)
	}

	c := newCapture(device, options)
	c.client = client

	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(c.onPCM), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(ChunkBytes),
		pulse.RecordMediaName("parley voice input"),
	)
	if err != nil {
		_ = c.Stop()
		return nil, fmt.Errorf("create record stream: %w", err)
	}
	c.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Stop()
		case <-c.stopCh:
		}
	}()

	return c, nil
}

func newCapture(device Device, options CaptureOptions) *Capture {
	return &Capture{
		device:  device,
		options: options,
		chunks:  make(chan []byte, 128),
		stopCh:  make(chan struct{}),
	}
}

// Device returns the source being captured.
func (c *Capture) Device() Device {
	return c.device
}

// Chunks is closed after Stop flushes the final partial chunk.
func (c *Capture) Chunks() <-chan []byte {
	return c.chunks
}

// BytesCaptured reports the total bytes accepted from the server.
func (c *Capture) BytesCaptured() int64 {
	return c.bytes.Load()
}

// Retained returns a copy of all captured PCM when Retain was set.
func (c *Capture) Retained() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.retained...)
}

// Stop halts recording, flushes residual PCM, and closes Chunks. It is idempotent.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()

	c.mu.Lock()
	tail := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(tail) > 0 {
		select {
		case c.chunks <- tail:
		default:
		}
	}
	close(c.chunks)
	return nil
}

// onPCM slices server frames into ChunkBytes chunks.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same lock that guards stopped so Stop's Wait cannot race it.
	c.inflight.Add(1)
	defer c.inflight.Done()

	if c.options.Retain {
		c.retained = append(c.retained, buffer...)
	}
	c.pending = append(c.pending, buffer...)
	var ready [][]byte
	for len(c.pending) >= ChunkBytes {
		ready = append(ready, append([]byte(nil), c.pending[:ChunkBytes]...))
		c.pending = c.pending[ChunkBytes:]
	}
	c.mu.Unlock()

	c.bytes.Add(int64(len(buffer)))

	for _, chunk := range ready {
		select {
		case c.chunks <- chunk:
		case <-c.stopCh:
			return 0, io.EOF
		}
	}
	return len(buffer), nil
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
