// Package main asks a vision language model which way to drive for a single image. It is used to
// check a model and prompt before putting them on the rover.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/e2e-ad/rover/camera/imagefile"
	"github.com/e2e-ad/rover/config"
	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/perception"
	"github.com/e2e-ad/rover/perception/ollama"
	"github.com/e2e-ad/rover/sensordata"
)

const (
	flagImage   = "image"
	flagModel   = "model"
	flagURL     = "url"
	flagPrompt  = "prompt"
	flagTimeout = "timeout"
	flagDebug   = "debug"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "vlmprobe",
		Usage:     "ask a vision language model which way to drive",
		UsageText: "vlmprobe --image frame.jpg [--model qwen2.5vl:3b]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     flagImage,
				Aliases:  []string{"i"},
				Required: true,
				Usage:    "image `FILE` to send",
			},
			&cli.StringFlag{
				Name:    flagModel,
				Aliases: []string{"m"},
				Value:   config.DefaultPerceptionModel,
				Usage:   "model name",
			},
			&cli.StringFlag{
				Name:  flagURL,
				Value: config.DefaultPerceptionURL,
				Usage: "model server URL",
			},
			&cli.StringFlag{
				Name:  flagPrompt,
				Value: perception.DefaultPrompt,
				Usage: "prompt sent along with the image",
			},
			&cli.DurationFlag{
				Name:  flagTimeout,
				Value: time.Duration(config.DefaultPerceptionTimeout) * time.Millisecond,
				Usage: "request timeout",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Action: probe,
	}
}

func probe(c *cli.Context) error {
	logger := logging.NewLogger("vlmprobe")
	if c.Bool(flagDebug) {
		logger = logging.NewDebugLogger("vlmprobe")
	}

	src, err := imagefile.New(c.String(flagImage))
	if err != nil {
		return err
	}
	img, err := src.Read(c.Context)
	if err != nil {
		return err
	}

	client, err := ollama.NewClient(ollama.Config{
		URL:     c.String(flagURL),
		Model:   c.String(flagModel),
		Prompt:  c.String(flagPrompt),
		Timeout: c.Duration(flagTimeout),
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Debugw("failed to close client", "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(c.Context, c.Duration(flagTimeout))
	defer cancel()
	start := time.Now()
	dir, err := client.Direction(ctx, img)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "model:     %s\nimage:     %s\ndirection: %s\nlatency:   %s\n",
		c.String(flagModel), c.String(flagImage), colorize(dir), time.Since(start).Round(time.Millisecond))
	return nil
}

func colorize(dir sensordata.Direction) string {
	switch dir {
	case sensordata.DirectionForward:
		return color.GreenString(string(dir))
	case sensordata.DirectionLeft, sensordata.DirectionRight:
		return color.YellowString(string(dir))
	default:
		return color.RedString(string(dir))
	}
}
