package imageprep

import (
	"image"
	"math"

	"github.com/joseph-ayodele/notescan/internal/entity"
)

// FrameCrop returns the rectangle of a w×h image that matches what the user saw
// inside the on-screen scan frame: the frame's aspect ratio, centered, then
// shifted by the frame's offset from the screen center and clamped to the image.
func FrameCrop(w, h int, f entity.FramingInfo) image.Rectangle {
	frameAR := f.FrameWidth / f.FrameHeight
	imageAR := float64(w) / float64(h)

	var cropW, cropH int
	if imageAR > frameAR {
		cropH = h
		cropW = int(math.Round(float64(h) * frameAR))
	} else {
		cropW = w
		cropH = int(math.Round(float64(w) / frameAR))
	}
	cropW = clamp(cropW, 1, w)
	cropH = clamp(cropH, 1, h)

	frameCenterY := f.FrameTop + f.FrameHeight/2
	normY := (frameCenterY - f.ScreenHeight/2) / math.Max(1, f.ScreenHeight)
	baseY := float64(h-cropH) / 2
	originY := clamp(int(math.Round(baseY+normY*float64(h))), 0, h-cropH)

	frameCenterX := f.FrameLeft + f.FrameWidth/2
	normX := (frameCenterX - f.ScreenWidth/2) / math.Max(1, f.ScreenWidth)
	baseX := float64(w-cropW) / 2
	originX := clamp(int(math.Round(baseX+normX*float64(w))), 0, w-cropW)

	return image.Rect(originX, originY, originX+cropW, originY+cropH)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
