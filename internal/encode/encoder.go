// Package encode turns captured frames into compressed payloads ready to
// send to the analysis backend.
package encode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/draw"
	"image/jpeg"
	"strings"
	"time"

	"sightline/internal/capture"
)

// DefaultQuality matches the JPEG quality factor the backend expects.
const DefaultQuality = 70

// ErrNoFrame is returned when there is nothing to encode. Callers treat it
// as a transient condition and retry on the next tick.
var ErrNoFrame = errors.New("no frame available to encode")

// EncodedFrame is a compressed still image plus its capture timestamp in
// epoch milliseconds. Immutable once produced; discarded after the request
// that carries it completes or fails.
type EncodedFrame struct {
	DataURI   string
	Timestamp int64
}

// Base64Data returns the payload without the data-URI prefix, as the VQA
// endpoint expects.
func (f *EncodedFrame) Base64Data() string {
	return strings.TrimPrefix(f.DataURI, "data:image/jpeg;base64,")
}

// Encoder rasterizes frames into a reusable scratch buffer and serializes
// them as JPEG data URIs. The scratch buffer amortizes allocation across
// ticks, so an Encoder is not safe for concurrent use; the capture loop
// guarantees at most one cycle runs at a time.
type Encoder struct {
	mirror  bool
	quality int
	scratch *image.RGBA
	buf     bytes.Buffer
}

// NewEncoder creates an encoder. When mirror is true the output is flipped
// horizontally so a mirrored camera preview is transmitted in real-world
// orientation.
func NewEncoder(mirror bool, quality int) *Encoder {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Encoder{mirror: mirror, quality: quality}
}

// Encode renders the frame and serializes it. Returns ErrNoFrame when the
// frame is missing or has zero dimensions.
func (e *Encoder) Encode(frame *capture.Frame) (*EncodedFrame, error) {
	if frame == nil || frame.Image == nil {
		return nil, ErrNoFrame
	}
	bounds := frame.Image.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, ErrNoFrame
	}

	e.ensureScratch(bounds.Dx(), bounds.Dy())
	draw.Draw(e.scratch, e.scratch.Bounds(), frame.Image, bounds.Min, draw.Src)
	if e.mirror {
		mirrorHorizontal(e.scratch)
	}

	e.buf.Reset()
	if err := jpeg.Encode(&e.buf, e.scratch, &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, err
	}

	capturedAt := frame.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}

	return &EncodedFrame{
		DataURI:   "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(e.buf.Bytes()),
		Timestamp: capturedAt.UnixMilli(),
	}, nil
}

func (e *Encoder) ensureScratch(w, h int) {
	if e.scratch == nil || e.scratch.Bounds().Dx() != w || e.scratch.Bounds().Dy() != h {
		e.scratch = image.NewRGBA(image.Rect(0, 0, w, h))
	}
}

// mirrorHorizontal flips the image in place around its vertical axis.
func mirrorHorizontal(img *image.RGBA) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w/2; x++ {
			l := x * 4
			r := (w - 1 - x) * 4
			for i := 0; i < 4; i++ {
				row[l+i], row[r+i] = row[r+i], row[l+i]
			}
		}
	}
}
