package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/e2e-ad/rover/logging"
)

const fileCameras = `"cameras": {"left": {"type": "file", "path": "l.png"}, "right": {"type": "file", "path": "r.png"}}`

func TestWatcher(t *testing.T) {
	logger := logging.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "rover.json")
	test.That(t, os.WriteFile(path, []byte(`{`+fileCameras+`}`), 0o600), test.ShouldBeNil)

	w, err := NewWatcher(context.Background(), path, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, w.Close(), test.ShouldBeNil)
	}()

	// Invalid files are skipped.
	test.That(t, os.WriteFile(path, []byte(`{"cameras": `), 0o600), test.ShouldBeNil)
	time.Sleep(2 * watchQuietPeriod)
	select {
	case <-w.Config():
		t.Fatal("an unparsable config was emitted")
	default:
	}

	test.That(t, os.WriteFile(path, []byte(`{`+fileCameras+`, "log": {"level": "debug"}}`), 0o600), test.ShouldBeNil)
	select {
	case cfg := <-w.Config():
		test.That(t, cfg.Log.Level, test.ShouldEqual, "debug")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the changed config")
	}
}
