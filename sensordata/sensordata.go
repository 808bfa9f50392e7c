// Package sensordata defines the per-cycle fused state shared between the processing pipeline,
// the navigator and the renderer, along with the motor command type.
package sensordata

import (
	"image"
	"time"

	"github.com/google/uuid"
)

// Detection is a single object found in one camera frame.
type Detection struct {
	Label string
	Score float64
	Box   image.Rectangle
}

// Track correlates detections of the same object across cycles.
type Track struct {
	ID    int
	Label string
	Box   image.Rectangle
	Age   int
}

// FusedState is the snapshot produced by one pipeline cycle. Once published it must be treated
// as immutable: modules only write to the state of the cycle they are part of.
type FusedState struct {
	// Cycle is the pipeline sequence number, starting at 1.
	Cycle      uint64
	CycleID    uuid.UUID
	CapturedAt time.Time

	LeftFrame  image.Image
	RightFrame image.Image

	LeftFrameAnnotated  image.Image
	RightFrameAnnotated image.Image

	LeftDetections  []Detection
	RightDetections []Detection

	LeftTracks  []Track
	RightTracks []Track

	Direction Direction
}

// NewFusedState returns a fresh state seeded with a frame pair.
func NewFusedState(left, right image.Image) *FusedState {
	return &FusedState{
		CycleID:    uuid.New(),
		CapturedAt: time.Now(),
		LeftFrame:  left,
		RightFrame: right,
	}
}

// Clone returns a shallow copy whose detection and track slices are independent of the
// receiver's. Images are shared; they are never drawn on in place.
func (s *FusedState) Clone() *FusedState {
	if s == nil {
		return nil
	}
	cloned := *s
	cloned.LeftDetections = cloneSlice(s.LeftDetections)
	cloned.RightDetections = cloneSlice(s.RightDetections)
	cloned.LeftTracks = cloneSlice(s.LeftTracks)
	cloned.RightTracks = cloneSlice(s.RightTracks)
	return &cloned
}

// Frame returns the raw frame of the given camera.
func (s *FusedState) Frame(cam Camera) image.Image {
	if cam == RightCamera {
		return s.RightFrame
	}
	return s.LeftFrame
}

// Annotated returns the annotated frame of the given camera, which may be nil.
func (s *FusedState) Annotated(cam Camera) image.Image {
	if cam == RightCamera {
		return s.RightFrameAnnotated
	}
	return s.LeftFrameAnnotated
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
