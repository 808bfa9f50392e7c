package sensordata

import "github.com/pkg/errors"

// Camera names one side of the stereo pair.
type Camera string

// The two cameras.
const (
	LeftCamera  = Camera("left")
	RightCamera = Camera("right")
)

// ParseCamera accepts "left" or "right"; empty defaults to left.
func ParseCamera(name string) (Camera, error) {
	switch Camera(name) {
	case "", LeftCamera:
		return LeftCamera, nil
	case RightCamera:
		return RightCamera, nil
	default:
		return "", errors.Errorf("unknown camera %q, expected left or right", name)
	}
}
