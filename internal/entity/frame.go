package entity

import "time"

// Frame is a raw camera image. Pixels are owned by whoever holds the value;
// share a frame across goroutines only through Clone.
type Frame struct {
	Seq        uint64
	CapturedAt time.Time
	Width      int
	Height     int
	Pixels     []byte
}

func (f Frame) Clone() Frame {
	if f.Pixels != nil {
		f.Pixels = append(make([]byte, 0, len(f.Pixels)), f.Pixels...)
	}
	return f
}

// Snapshot is one detection result. Artifact is only meant for display.
type Snapshot struct {
	Board    Board
	Artifact any
}
