package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestClamp(t *testing.T) {
	test.That(t, Clamp(2, -1, 1), test.ShouldEqual, 1.0)
	test.That(t, Clamp(-3, -1, 1), test.ShouldEqual, -1.0)
	test.That(t, Clamp(0.25, -1, 1), test.ShouldEqual, 0.25)
	test.That(t, Clamp(math.NaN(), -1, 1), test.ShouldEqual, 0.0)
	test.That(t, Clamp(math.NaN(), 0.5, 1), test.ShouldEqual, 0.5)
	test.That(t, Clamp(math.Inf(1), 0, 1), test.ShouldEqual, 1.0)
}

func TestScaleByPct(t *testing.T) {
	test.That(t, ScaleByPct(0, 0), test.ShouldEqual, 0)
	test.That(t, ScaleByPct(255, .5), test.ShouldEqual, 127)
	test.That(t, ScaleByPct(255, 2), test.ShouldEqual, 255)
	test.That(t, ScaleByPct(255, -2), test.ShouldEqual, 0)
	test.That(t, MaxInt(3, 7), test.ShouldEqual, 7)
}
