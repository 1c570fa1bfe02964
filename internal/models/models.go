package models

import (
	"errors"
	"image"
	"time"
)

// Origin tags where an image came from
type Origin string

const (
	OriginCamera  Origin = "camera"
	OriginGallery Origin = "gallery"
)

// ImageHandle is an opaque reference to acquired, not-yet-decoded image data
type ImageHandle struct {
	URI       string    `json:"uri"`
	Origin    Origin    `json:"origin"`
	MimeType  string    `json:"mime_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizedImage is a decoded bitmap ready for recognition
type NormalizedImage struct {
	Width        int
	Height       int
	SourceWidth  int
	SourceHeight int
	Format       string
	Pixels       *image.NRGBA
}

// Scaled reports whether the pixels were downscaled from the source dimensions
func (n *NormalizedImage) Scaled() bool {
	return n.Width != n.SourceWidth || n.Height != n.SourceHeight
}

// TempAssetRecord tracks a temporary file owned by the asset manager
type TempAssetRecord struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Origin    Origin    `json:"origin"`
	CreatedAt time.Time `json:"created_at"`
}

// RecognitionResult is either a success carrying text or a typed failure
type RecognitionResult struct {
	Text    string    `json:"text" yaml:"text"`
	Failed  bool      `json:"failed" yaml:"failed"`
	Kind    ErrorKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Message string    `json:"message,omitempty" yaml:"message,omitempty"`
}

func Success(text string) RecognitionResult {
	return RecognitionResult{Text: text}
}

func Failure(kind ErrorKind, message string) RecognitionResult {
	return RecognitionResult{Failed: true, Kind: kind, Message: message}
}

// FailureFromError converts any error into a failure result, keeping its kind when typed
func FailureFromError(err error) RecognitionResult {
	var e *Error
	if errors.As(err, &e) {
		msg := e.Message
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return Failure(e.Kind, msg)
	}
	return Failure(UnknownError, err.Error())
}

// Phase is the lifecycle position of a request
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseAwaitingSource Phase = "awaiting_source"
	PhaseNormalizing    Phase = "normalizing"
	PhaseRecognizing    Phase = "recognizing"
	PhaseCompleted      Phase = "completed"
)

// RequestState is the observable state of a pipeline
type RequestState struct {
	Phase      Phase              `json:"phase" yaml:"phase"`
	Generation uint64             `json:"generation" yaml:"generation"`
	RequestID  string             `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Origin     Origin             `json:"origin,omitempty" yaml:"origin,omitempty"`
	Width      int                `json:"width,omitempty" yaml:"width,omitempty"`
	Height     int                `json:"height,omitempty" yaml:"height,omitempty"`
	Result     *RecognitionResult `json:"result,omitempty" yaml:"result,omitempty"`
	UpdatedAt  time.Time          `json:"updated_at" yaml:"updated_at"`
}

// Terminal reports whether the state is Completed
func (s RequestState) Terminal() bool {
	return s.Phase == PhaseCompleted
}
