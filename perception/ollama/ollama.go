// Package ollama implements a perception model backed by an Ollama server's chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/perception"
	"github.com/e2e-ad/rover/sensordata"
)

const jpegQuality = 85

// Config configures a Client.
type Config struct {
	URL     string
	Model   string
	Prompt  string
	Timeout time.Duration
}

// Client asks an Ollama hosted vision model for a direction.
type Client struct {
	url    string
	model  string
	prompt string
	http   *http.Client
	logger logging.Logger
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// NewClient returns a client for the Ollama server at conf.URL.
func NewClient(conf Config, logger logging.Logger) (*Client, error) {
	if conf.URL == "" {
		return nil, errors.New("ollama url is required")
	}
	if conf.Model == "" {
		return nil, errors.New("ollama model is required")
	}
	prompt := conf.Prompt
	if prompt == "" {
		prompt = perception.DefaultPrompt
	}
	return &Client{
		url:    strings.TrimSuffix(conf.URL, "/") + "/api/chat",
		model:  conf.Model,
		prompt: prompt,
		http:   &http.Client{Timeout: conf.Timeout},
		logger: logger,
	}, nil
}

// Direction sends img and the prompt to the model and parses its answer.
func (c *Client) Direction(ctx context.Context, img image.Image) (sensordata.Direction, error) {
	if img == nil {
		return sensordata.DirectionNone, errors.New("no image to send")
	}
	content, err := c.chat(ctx, img)
	if err != nil {
		return sensordata.DirectionNone, err
	}
	c.logger.Debugw("model response", "model", c.model, "content", content)
	return sensordata.ParseDirection(content)
}

func (c *Client) chat(ctx context.Context, img image.Image) (string, error) {
	var encoded bytes.Buffer
	if err := jpeg.Encode(&encoded, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", errors.Wrap(err, "failed to encode image")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{{
			Role:    "user",
			Content: c.prompt,
			Images:  []string{base64.StdEncoding.EncodeToString(encoded.Bytes())},
		}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "ollama request failed")
	}
	defer func() {
		//nolint:errcheck
		io.Copy(io.Discard, resp.Body)
		//nolint:errcheck
		resp.Body.Close()
	}()

	var decoded chatResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&decoded)
	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && decoded.Error != "" {
			return "", errors.Errorf("ollama returned %s: %s", resp.Status, decoded.Error)
		}
		return "", errors.Errorf("ollama returned %s", resp.Status)
	}
	if decodeErr != nil {
		return "", errors.Wrap(decodeErr, "failed to decode ollama response")
	}
	return decoded.Message.Content, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
