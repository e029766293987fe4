package models

// VideoProcessingInfo summarizes how the backend sampled an uploaded video.
type VideoProcessingInfo struct {
	FPS                float64 `json:"fps"`
	VideoDuration      float64 `json:"video_duration"`
	ProcessingDuration float64 `json:"processing_duration"`
	TotalFrames        int     `json:"total_frames"`
	AnalyzedFrames     int     `json:"analyzed_frames"`
}

// DetectedObject is one object the backend recognized in a frame.
type DetectedObject struct {
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence"`
}

// FrameObservation is the backend's analysis of a single sampled frame.
type FrameObservation struct {
	Timestamp   float64          `json:"timestamp"`
	Description string           `json:"description"`
	Objects     []DetectedObject `json:"objects"`
}

// VideoAnalysis is the parsed result of a whole-video upload.
type VideoAnalysis struct {
	Info   VideoProcessingInfo
	Frames []FrameObservation
}
