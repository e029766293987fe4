package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sightline/internal/encode"
)

func testFrame() *encode.EncodedFrame {
	return &encode.EncodedFrame{
		DataURI:   "data:image/jpeg;base64,dGVzdA==",
		Timestamp: 1700000000000,
	}
}

func TestAnalyzeFrameSuccess(t *testing.T) {
	var gotBody map[string]any
	var gotHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/analyze/frame", r.URL.Path)
		gotHeader = r.Header.Get("Bypass-Tunnel-Reminder")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "answer": "dog"})
	}))
	defer server.Close()

	c := New(server.URL, Options{})
	answer, err := c.AnalyzeFrame(context.Background(), testFrame(), "what is ahead?")

	require.NoError(t, err)
	assert.Equal(t, "dog", answer)
	assert.Equal(t, "true", gotHeader)
	assert.Equal(t, "data:image/jpeg;base64,dGVzdA==", gotBody["data"])
	assert.Equal(t, float64(1700000000000), gotBody["timestamp"])
	assert.Equal(t, "what is ahead?", gotBody["question"])
}

func TestAnalyzeFrameNormalizesSentinels(t *testing.T) {
	for _, sentinel := range []string{"unanswerable", "unsuitable", "Unanswerable"} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "answer": sentinel})
		}))

		c := New(server.URL, Options{})
		answer, err := c.AnalyzeFrame(context.Background(), testFrame(), "q")
		server.Close()

		require.NoError(t, err)
		assert.Equal(t, "object", answer, "sentinel %q must normalize", sentinel)
	}
}

func TestAnalyzeFrameTruncatesErrorBody(t *testing.T) {
	longDetail := strings.Repeat("x", 300)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(longDetail))
	}))
	defer server.Close()

	c := New(server.URL, Options{})
	_, err := c.AnalyzeFrame(context.Background(), testFrame(), "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), strings.Repeat("x", 120))
	assert.NotContains(t, err.Error(), strings.Repeat("x", 121))
}

func TestAnalyzeFrameServerDetailSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model overloaded"}`))
	}))
	defer server.Close()

	c := New(server.URL, Options{})
	_, err := c.AnalyzeFrame(context.Background(), testFrame(), "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestAnalyzeFrameTimeoutIsDistinct(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "answer": "dog"})
	}))
	defer server.Close()

	c := New(server.URL, Options{FrameTimeout: 30 * time.Millisecond})
	_, err := c.AnalyzeFrame(context.Background(), testFrame(), "q")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestAnalyzeFrameNetworkErrorIsNotTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // unreachable

	c := New(server.URL, Options{})
	_, err := c.AnalyzeFrame(context.Background(), testFrame(), "q")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "cannot reach analysis backend")
}

func TestAnalyzeFrameUnsuccessfulResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "no frame received"})
	}))
	defer server.Close()

	c := New(server.URL, Options{})
	_, err := c.AnalyzeFrame(context.Background(), testFrame(), "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no frame received")
}

func TestAnalyzeFrameMissingAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer server.Close()

	c := New(server.URL, Options{})
	_, err := c.AnalyzeFrame(context.Background(), testFrame(), "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing answer")
}

func TestAnalyzeFrameMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	c := New(server.URL, Options{})
	_, err := c.AnalyzeFrame(context.Background(), testFrame(), "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed backend response")
}

func TestAskVQASendsBareBase64(t *testing.T) {
	imageData := []byte{0xff, 0xd8, 0xff, 0xe0, 0x01, 0x02}
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/vqa", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{"answer": "a red door"})
	}))
	defer server.Close()

	c := New(server.URL, Options{})
	answer, err := c.AskVQA(context.Background(), imageData, "what color is the door?")

	require.NoError(t, err)
	assert.Equal(t, "a red door", answer)
	assert.False(t, strings.HasPrefix(gotBody["image_data"], "data:"))
	decoded, err := base64.StdEncoding.DecodeString(gotBody["image_data"])
	require.NoError(t, err)
	assert.Equal(t, imageData, decoded)
	assert.Equal(t, "what color is the door?", gotBody["question"])
}

func TestAnalyzeVideoUploadsMultipart(t *testing.T) {
	videoPath := writeTempVideo(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/analyze/video", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "12.5", r.FormValue("duration"))
		assert.Equal(t, "5", r.FormValue("target_analyses"))

		file, header, err := r.FormFile("video")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "clip.mp4", header.Filename)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"results": map[string]any{
				"video_processing_info": map[string]any{
					"fps":                 30.0,
					"video_duration":      12.5,
					"processing_duration": 4.2,
					"total_frames":        375,
					"analyzed_frames":     5,
				},
				"frame_analyses": []map[string]any{
					{
						"timestamp":   2.5,
						"description": "a dog in a hallway",
						"objects": []map[string]any{
							{"object": "dog", "confidence": 0.91},
						},
					},
				},
			},
		})
	}))
	defer server.Close()

	c := New(server.URL, Options{})
	analysis, err := c.AnalyzeVideo(context.Background(), videoPath, 12.5, 5)

	require.NoError(t, err)
	assert.Equal(t, 30.0, analysis.Info.FPS)
	assert.Equal(t, 375, analysis.Info.TotalFrames)
	assert.Equal(t, 5, analysis.Info.AnalyzedFrames)
	require.Len(t, analysis.Frames, 1)
	assert.Equal(t, "a dog in a hallway", analysis.Frames[0].Description)
	require.Len(t, analysis.Frames[0].Objects, 1)
	assert.Equal(t, "dog", analysis.Frames[0].Objects[0].Object)
	assert.InDelta(t, 0.91, analysis.Frames[0].Objects[0].Confidence, 1e-9)
}

func TestAnalyzeVideoOmitsZeroDuration(t *testing.T) {
	videoPath := writeTempVideo(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, hasDuration := r.MultipartForm.Value["duration"]
		assert.False(t, hasDuration)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "results": map[string]any{}})
	}))
	defer server.Close()

	c := New(server.URL, Options{})
	_, err := c.AnalyzeVideo(context.Background(), videoPath, 0, 3)
	require.NoError(t, err)
}

func TestNormalizeAnswer(t *testing.T) {
	assert.Equal(t, "object", NormalizeAnswer("unanswerable"))
	assert.Equal(t, "object", NormalizeAnswer("unsuitable"))
	assert.Equal(t, "object", NormalizeAnswer(" Unsuitable "))
	assert.Equal(t, "dog", NormalizeAnswer("dog"))
	assert.Equal(t, "dog", NormalizeAnswer("  dog  "))
}

func writeTempVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("fake video bytes"), 0644))
	return path
}
