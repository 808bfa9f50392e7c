// Package config defines the rover's JSON configuration and how it is read from disk.
package config

import (
	"fmt"
	"image"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/e2e-ad/rover/logging"
)

// Defaults applied by Ensure.
const (
	DefaultRobotHost          = "192.168.43.199"
	DefaultWebsocketPort      = 8000
	DefaultDecisionIntervalMs = 500
	DefaultIdleIntervalMs     = 10
	DefaultErrorBackoffMs     = 100
	DefaultPollIntervalMs     = 33
	DefaultPerceptionURL      = "http://127.0.0.1:11434"
	DefaultPerceptionModel    = "moondream"
	DefaultPerceptionTimeout  = 10000
	DefaultWriteTimeoutMs     = 1000
	DefaultRenderAddress      = "localhost:8090"
	DefaultStatusSchedule     = "1m"
)

// Image source types.
const (
	SourceSnapshot = "snapshot"
	SourceFile     = "file"
)

// Config is the whole rover configuration.
type Config struct {
	ConfigFilePath string `json:"-"`

	Robot      Robot          `json:"robot"`
	Cameras    Cameras        `json:"cameras"`
	Pipeline   Pipeline       `json:"pipeline"`
	Perception Perception     `json:"perception"`
	Navigation Navigation     `json:"navigation"`
	Channel    Channel        `json:"channel"`
	Render     Render         `json:"render"`
	Jobs       []JobConfig    `json:"jobs"`
	Log        logging.Config `json:"log"`
}

// JobConfig schedules one housekeeping job.
type JobConfig struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// Schedule is a Go duration such as "30s" or a five field cron spec.
	Schedule string `json:"schedule"`
}

// Validate ensures the job is complete.
func (jc *JobConfig) Validate(path string) error {
	switch {
	case jc.Name == "":
		return errors.Errorf("%s: \"name\" is required", path)
	case jc.Type == "":
		return errors.Errorf("%s: \"type\" is required", path)
	case jc.Schedule == "":
		return errors.Errorf("%s: \"schedule\" is required", path)
	}
	return nil
}

// Robot addresses the robot on the network.
type Robot struct {
	Host          string `json:"host"`
	WebsocketPort int    `json:"websocket_port,omitempty"`
}

// ImageSource configures one camera feed.
type ImageSource struct {
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
	Path string `json:"path,omitempty"`
}

// Validate ensures the source is complete.
func (src *ImageSource) Validate(path string) error {
	switch src.Type {
	case SourceSnapshot:
		if src.URL == "" {
			return errors.Errorf("%s: \"url\" is required for a snapshot source", path)
		}
	case SourceFile:
		if src.Path == "" {
			return errors.Errorf("%s: \"path\" is required for a file source", path)
		}
	case "":
		return errors.Errorf("%s: \"type\" is required", path)
	default:
		return errors.Errorf("%s: unknown image source type %q", path, src.Type)
	}
	return nil
}

// Rect is a crop window in pixel coordinates. The zero value means no crop.
type Rect struct {
	XMin int `json:"x_min"`
	YMin int `json:"y_min"`
	XMax int `json:"x_max"`
	YMax int `json:"y_max"`
}

// Rectangle converts to an image.Rectangle.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.XMin, r.YMin, r.XMax, r.YMax)
}

// Cameras configures the stereo pair.
type Cameras struct {
	Left           ImageSource `json:"left"`
	Right          ImageSource `json:"right"`
	PollIntervalMs int         `json:"poll_interval_ms,omitempty"`
	LeftCrop       Rect        `json:"left_crop,omitempty"`
	RightCrop      Rect        `json:"right_crop,omitempty"`
}

// PollInterval is the delay between reads of each camera.
func (c *Cameras) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Pipeline configures the processing modules and the loop driving them.
type Pipeline struct {
	// Modules run in the listed order.
	Modules        []Component `json:"modules"`
	IdleIntervalMs int         `json:"idle_interval_ms,omitempty"`
	ErrorBackoffMs int         `json:"error_backoff_ms,omitempty"`
	// MaxFPS caps how many cycles run per second. Zero means no cap.
	MaxFPS float64 `json:"max_fps,omitempty"`
}

// IdleInterval is how long the driver waits when no frame pair is ready.
func (p *Pipeline) IdleInterval() time.Duration {
	return time.Duration(p.IdleIntervalMs) * time.Millisecond
}

// ErrorBackoff is how long the driver waits after a frame source error.
func (p *Pipeline) ErrorBackoff() time.Duration {
	return time.Duration(p.ErrorBackoffMs) * time.Millisecond
}

// Perception configures the vision language model server.
type Perception struct {
	URL       string `json:"url"`
	Model     string `json:"model"`
	Prompt    string `json:"prompt,omitempty"`
	TimeoutMs int    `json:"timeout_ms,omitempty"`
}

// Timeout bounds a single model request.
func (p *Perception) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// Navigation configures the autonomous navigator.
type Navigation struct {
	DecisionIntervalMs int       `json:"decision_interval_ms,omitempty"`
	Strategy           Component `json:"strategy"`
	// StartEnabled turns autonomy on at startup instead of waiting for an operator.
	StartEnabled bool `json:"start_enabled,omitempty"`
}

// DecisionInterval is the navigator's tick period.
func (n *Navigation) DecisionInterval() time.Duration {
	return time.Duration(n.DecisionIntervalMs) * time.Millisecond
}

// Channel configures the command channel to the robot.
type Channel struct {
	URL            string `json:"url,omitempty"`
	WriteTimeoutMs int    `json:"write_timeout_ms,omitempty"`
}

// WriteTimeout bounds a single command send.
func (c *Channel) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMs) * time.Millisecond
}

// Render configures the HTTP viewer and control surface.
type Render struct {
	Disabled bool   `json:"disabled,omitempty"`
	Address  string `json:"address,omitempty"`
	Enriched bool   `json:"enriched,omitempty"`
	Pprof    bool   `json:"pprof,omitempty"`
}

// Ensure fills in defaults and validates the config.
func (c *Config) Ensure() error {
	if c.Robot.Host == "" {
		c.Robot.Host = DefaultRobotHost
	}
	if c.Robot.WebsocketPort == 0 {
		c.Robot.WebsocketPort = DefaultWebsocketPort
	}
	if c.Channel.URL == "" {
		c.Channel.URL = fmt.Sprintf("ws://%s:%d/ws", c.Robot.Host, c.Robot.WebsocketPort)
	}
	if c.Channel.WriteTimeoutMs == 0 {
		c.Channel.WriteTimeoutMs = DefaultWriteTimeoutMs
	}
	if c.Cameras.PollIntervalMs == 0 {
		c.Cameras.PollIntervalMs = DefaultPollIntervalMs
	}
	if c.Pipeline.Modules == nil {
		c.Pipeline.Modules = []Component{{Type: "direction"}, {Type: "visualize"}}
	}
	if c.Pipeline.IdleIntervalMs == 0 {
		c.Pipeline.IdleIntervalMs = DefaultIdleIntervalMs
	}
	if c.Pipeline.ErrorBackoffMs == 0 {
		c.Pipeline.ErrorBackoffMs = DefaultErrorBackoffMs
	}
	if c.Perception.URL == "" {
		c.Perception.URL = DefaultPerceptionURL
	}
	if c.Perception.Model == "" {
		c.Perception.Model = DefaultPerceptionModel
	}
	if c.Perception.TimeoutMs == 0 {
		c.Perception.TimeoutMs = DefaultPerceptionTimeout
	}
	if c.Navigation.DecisionIntervalMs == 0 {
		c.Navigation.DecisionIntervalMs = DefaultDecisionIntervalMs
	}
	if c.Navigation.Strategy.Type == "" {
		c.Navigation.Strategy.Type = "direction"
	}
	if c.Render.Address == "" {
		c.Render.Address = DefaultRenderAddress
	}
	if c.Jobs == nil {
		c.Jobs = []JobConfig{{Name: "status", Type: "status_report", Schedule: DefaultStatusSchedule}}
	}
	return c.Validate()
}

// Validate returns every problem found in the config.
func (c *Config) Validate() error {
	var errs error
	errs = multierr.Append(errs, c.Cameras.Left.Validate("cameras.left"))
	errs = multierr.Append(errs, c.Cameras.Right.Validate("cameras.right"))
	if c.Cameras.PollIntervalMs < 0 {
		errs = multierr.Append(errs, errors.New("cameras.poll_interval_ms cannot be negative"))
	}
	for i := range c.Pipeline.Modules {
		errs = multierr.Append(errs, c.Pipeline.Modules[i].Validate(fmt.Sprintf("pipeline.modules.%d", i)))
	}
	if c.Pipeline.MaxFPS < 0 {
		errs = multierr.Append(errs, errors.New("pipeline.max_fps cannot be negative"))
	}
	if c.Pipeline.IdleIntervalMs < 0 || c.Pipeline.ErrorBackoffMs < 0 {
		errs = multierr.Append(errs, errors.New("pipeline intervals cannot be negative"))
	}
	if c.Navigation.DecisionIntervalMs <= 0 {
		errs = multierr.Append(errs, errors.New("navigation.decision_interval_ms must be positive"))
	}
	errs = multierr.Append(errs, c.Navigation.Strategy.Validate("navigation.strategy"))
	if c.Perception.TimeoutMs < 0 {
		errs = multierr.Append(errs, errors.New("perception.timeout_ms cannot be negative"))
	}
	if c.Channel.WriteTimeoutMs < 0 {
		errs = multierr.Append(errs, errors.New("channel.write_timeout_ms cannot be negative"))
	}
	for i := range c.Jobs {
		errs = multierr.Append(errs, c.Jobs[i].Validate(fmt.Sprintf("jobs.%d", i)))
	}
	errs = multierr.Append(errs, c.Log.Validate("log"))
	return errs
}
