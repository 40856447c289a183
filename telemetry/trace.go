package telemetry

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// TraceAgent is one boid's global pose in a trace frame.
type TraceAgent struct {
	ID uint32     `json:"id"`
	P  [3]float64 `json:"p"`
	Q  [4]float64 `json:"q"` // w, x, y, z
}

// TraceFrame is one line of a trajectory trace.
type TraceFrame struct {
	Tick   int32        `json:"tick"`
	Agents []TraceAgent `json:"agents"`
}

// TraceWriter writes frames as zstd-compressed JSON lines. Traces are for
// offline plotting only; nothing reloads them into a simulation.
type TraceWriter struct {
	path  string
	every int
	f     *os.File
	enc   *zstd.Encoder
	w     *bufio.Writer
}

// NewTraceWriter creates path and writes every n-th tick to it.
func NewTraceWriter(path string, every int) (*TraceWriter, error) {
	if every < 1 {
		every = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating trace directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating trace: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("creating trace encoder: %w", err)
	}
	return &TraceWriter{
		path:  path,
		every: every,
		f:     f,
		enc:   enc,
		w:     bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

// Due reports whether tick should be recorded.
func (tw *TraceWriter) Due(tick int32) bool {
	return tw != nil && int(tick)%tw.every == 0
}

// Write appends one frame.
func (tw *TraceWriter) Write(frame TraceFrame) error {
	if tw == nil {
		return nil
	}
	b, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encoding trace frame %d: %w", frame.Tick, err)
	}
	if _, err := tw.w.Write(b); err != nil {
		return fmt.Errorf("writing trace frame %d: %w", frame.Tick, err)
	}
	return tw.w.WriteByte('\n')
}

// Path returns the trace file path.
func (tw *TraceWriter) Path() string {
	if tw == nil {
		return ""
	}
	return tw.path
}

// Close flushes the encoder and closes the file.
func (tw *TraceWriter) Close() error {
	if tw == nil {
		return nil
	}
	return errors.Join(tw.w.Flush(), tw.enc.Close(), tw.f.Close())
}

// ReadTrace decodes every frame of a trace written by TraceWriter.
func ReadTrace(path string) ([]TraceFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("creating trace decoder: %w", err)
	}
	defer dec.Close()

	var frames []TraceFrame
	jd := json.NewDecoder(dec)
	for {
		var frame TraceFrame
		if err := jd.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return frames, fmt.Errorf("decoding trace frame %d: %w", len(frames), err)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}
