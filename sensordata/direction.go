package sensordata

import (
	"strings"

	"github.com/pkg/errors"
)

// Direction is the categorical decision token written by perception. The zero value means no
// perception module set a direction.
type Direction string

// The recognized directions.
const (
	DirectionNone    = Direction("")
	DirectionForward = Direction("forward")
	DirectionLeft    = Direction("left")
	DirectionRight   = Direction("right")
	DirectionStop    = Direction("stop")
)

// Directions lists every recognized direction.
var Directions = []Direction{DirectionForward, DirectionLeft, DirectionRight, DirectionStop}

// Valid reports whether d is one of the recognized directions.
func (d Direction) Valid() bool {
	switch d {
	case DirectionForward, DirectionLeft, DirectionRight, DirectionStop:
		return true
	default:
		return false
	}
}

// ErrInvalidDirection is returned when text cannot be read as a direction.
var ErrInvalidDirection = errors.New("invalid direction")

// longForms are the phrasings requested by older prompts.
var longForms = map[string]Direction{
	"move forward": DirectionForward,
	"go forward":   DirectionForward,
	"turn left":    DirectionLeft,
	"turn right":   DirectionRight,
}

// ParseDirection reads a direction out of model output. Surrounding whitespace, case, quotes,
// braces and a trailing period are ignored; nothing else is guessed at.
func ParseDirection(text string) (Direction, error) {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	cleaned = strings.TrimSuffix(cleaned, ".")
	cleaned = strings.Trim(cleaned, "{}'\"` ")
	if d, ok := longForms[cleaned]; ok {
		return d, nil
	}
	if d := Direction(cleaned); d.Valid() {
		return d, nil
	}
	return DirectionNone, errors.Wrapf(ErrInvalidDirection, "%q", text)
}
