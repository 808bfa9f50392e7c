package jobmanager

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"github.com/e2e-ad/rover/logging"
)

func TestJobManager(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	jm, err := New(logger)
	test.That(t, err, test.ShouldBeNil)

	runs := atomic.NewInt32(0)
	test.That(t, jm.Add("count", "20ms", func(ctx context.Context) error {
		runs.Inc()
		return nil
	}), test.ShouldBeNil)
	test.That(t, jm.Add("broken", "20ms", func(ctx context.Context) error {
		return errors.New("nothing to report")
	}), test.ShouldBeNil)
	test.That(t, jm.Add("count", "1s", func(context.Context) error { return nil }), test.ShouldNotBeNil)
	test.That(t, jm.Add("bad", "every tuesday", func(context.Context) error { return nil }), test.ShouldNotBeNil)
	test.That(t, jm.Add("negative", "-1s", func(context.Context) error { return nil }), test.ShouldNotBeNil)
	test.That(t, jm.Add("cron", "*/5 * * * *", func(context.Context) error { return nil }), test.ShouldBeNil)
	test.That(t, jm.Jobs(), test.ShouldHaveLength, 3)

	jm.Start()
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, runs.Load(), test.ShouldBeGreaterThanOrEqualTo, int32(2))
		test.That(tb, logs.FilterMessage("job failed").Len(), test.ShouldBeGreaterThan, 0)
	})
	test.That(t, jm.Shutdown(), test.ShouldBeNil)
}
