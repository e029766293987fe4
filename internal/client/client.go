// Package client talks to the remote vision-analysis backend.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sightline/internal/encode"
	"sightline/internal/models"
)

const (
	// DefaultFrameTimeout bounds a single frame-analysis request.
	DefaultFrameTimeout = 15 * time.Second

	// DefaultVideoTimeout bounds a whole-video upload, which the backend
	// processes synchronously.
	DefaultVideoTimeout = 5 * time.Minute

	// errorBodyLimit is how much of a non-2xx response body is kept for
	// diagnostics.
	errorBodyLimit = 120

	// bypassHeader suppresses the interstitial warning page that tunnel
	// providers inject in front of forwarded URLs.
	bypassHeader = "Bypass-Tunnel-Reminder"
)

// ErrTimeout marks a request that was aborted because it exceeded its
// deadline, as opposed to a generic transport failure.
var ErrTimeout = errors.New("analysis request timed out")

// Options tunes a Client. Zero values fall back to the defaults above.
type Options struct {
	FrameTimeout time.Duration
	VideoTimeout time.Duration
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

// Client issues requests against one backend base URL.
type Client struct {
	baseURL      string
	http         *http.Client
	frameTimeout time.Duration
	videoTimeout time.Duration
	logger       *slog.Logger
}

// New creates a client for the given base URL.
func New(baseURL string, opts Options) *Client {
	if opts.FrameTimeout <= 0 {
		opts.FrameTimeout = DefaultFrameTimeout
	}
	if opts.VideoTimeout <= 0 {
		opts.VideoTimeout = DefaultVideoTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         opts.HTTPClient,
		frameTimeout: opts.FrameTimeout,
		videoTimeout: opts.VideoTimeout,
		logger:       opts.Logger,
	}
}

// BaseURL returns the backend base URL the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type frameRequest struct {
	Data      string `json:"data"`
	Timestamp int64  `json:"timestamp"`
	Question  string `json:"question"`
}

type frameResponse struct {
	Success  bool   `json:"success"`
	Answer   string `json:"answer"`
	Question string `json:"question"`
	Error    string `json:"error"`
}

// AnalyzeFrame sends one encoded frame and returns the normalized answer.
// The request is bounded by the frame timeout regardless of the parent
// context; on timeout the returned error wraps ErrTimeout. Failures are
// never retried here - the capture loop simply proceeds to its next tick.
func (c *Client) AnalyzeFrame(ctx context.Context, frame *encode.EncodedFrame, question string) (string, error) {
	body, err := json.Marshal(frameRequest{
		Data:      frame.DataURI,
		Timestamp: frame.Timestamp,
		Question:  question,
	})
	if err != nil {
		return "", fmt.Errorf("encode frame request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.frameTimeout)
	defer cancel()

	resp, err := c.post(reqCtx, "/analyze/frame", "application/json", bytes.NewReader(body))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, c.frameTimeout)
		}
		return "", fmt.Errorf("cannot reach analysis backend at %s (check the URL): %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var parsed frameResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("malformed backend response: %w", err)
	}
	if !parsed.Success {
		if parsed.Error != "" {
			return "", fmt.Errorf("analysis failed: %s", parsed.Error)
		}
		return "", errors.New("analysis failed")
	}
	if parsed.Answer == "" {
		return "", errors.New("backend response missing answer")
	}

	c.logger.Debug("frame analyzed", "answer", parsed.Answer, "timestamp", frame.Timestamp)
	return NormalizeAnswer(parsed.Answer), nil
}

type vqaRequest struct {
	ImageData string `json:"image_data"`
	Question  string `json:"question"`
}

type vqaResponse struct {
	Answer string `json:"answer"`
}

// AskVQA runs one visual question against a still image. The image is sent
// as bare base64, without the data-URI prefix.
func (c *Client) AskVQA(ctx context.Context, imageData []byte, question string) (string, error) {
	body, err := json.Marshal(vqaRequest{
		ImageData: base64.StdEncoding.EncodeToString(imageData),
		Question:  question,
	})
	if err != nil {
		return "", fmt.Errorf("encode vqa request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.frameTimeout)
	defer cancel()

	resp, err := c.post(reqCtx, "/vqa", "application/json", bytes.NewReader(body))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, c.frameTimeout)
		}
		return "", fmt.Errorf("cannot reach analysis backend at %s (check the URL): %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var parsed vqaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("malformed backend response: %w", err)
	}
	if parsed.Answer == "" {
		return "", errors.New("backend response missing answer")
	}

	return parsed.Answer, nil
}

type videoResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Results struct {
		Info   models.VideoProcessingInfo `json:"video_processing_info"`
		Frames []models.FrameObservation  `json:"frame_analyses"`
	} `json:"results"`
}

// AnalyzeVideo uploads a recorded video for batched analysis. duration is
// the clip length in seconds (0 omits the field); targetAnalyses is how many
// frames the backend should sample and describe.
func (c *Client) AnalyzeVideo(ctx context.Context, videoPath string, duration float64, targetAnalyses int) (*models.VideoAnalysis, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return nil, fmt.Errorf("open video '%s': %w", videoPath, err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("video", filepath.Base(videoPath))
	if err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("read video '%s': %w", videoPath, err)
	}
	if duration > 0 {
		if err := writer.WriteField("duration", strconv.FormatFloat(duration, 'f', -1, 64)); err != nil {
			return nil, fmt.Errorf("build upload form: %w", err)
		}
	}
	if err := writer.WriteField("target_analyses", strconv.Itoa(targetAnalyses)); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.videoTimeout)
	defer cancel()

	resp, err := c.post(reqCtx, "/analyze/video", writer.FormDataContentType(), &body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, c.videoTimeout)
		}
		return nil, fmt.Errorf("cannot reach analysis backend at %s (check the URL): %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var parsed videoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("malformed backend response: %w", err)
	}
	if parsed.Error != "" && !parsed.Success {
		return nil, fmt.Errorf("video analysis failed: %s", parsed.Error)
	}

	return &models.VideoAnalysis{
		Info:   parsed.Results.Info,
		Frames: parsed.Results.Frames,
	}, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(bypassHeader, "true")
	return c.http.Do(req)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return fmt.Errorf("backend returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
}

// NormalizeAnswer maps the backend's sentinel non-answers to the generic
// token "object" so downstream narration stays grammatically uniform.
func NormalizeAnswer(answer string) string {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "unanswerable", "unsuitable":
		return "object"
	}
	return strings.TrimSpace(answer)
}
