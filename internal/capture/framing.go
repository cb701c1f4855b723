package capture

import (
	"math"

	"github.com/joseph-ayodele/notescan/internal/entity"
)

// Viewport is the screen area the camera preview fills, in points.
type Viewport struct {
	Width   float64
	Height  float64
	SafeTop float64 // inset of the status bar / notch
}

const (
	frameWidthRatio = 0.82
	frameMaxWidth   = 340
	frameAspect     = 1.15 // height / width
	frameLiftMax    = 100
	frameLiftRatio  = 0.12
	frameTopMargin  = 12
)

// FramingFor lays out the on-screen scan frame: a portrait rectangle centered
// horizontally and lifted above the vertical center, never under the safe area.
func FramingFor(v Viewport) entity.FramingInfo {
	fw := math.Min(v.Width*frameWidthRatio, frameMaxWidth)
	fh := fw * frameAspect
	lift := math.Min(frameLiftMax, v.Height*frameLiftRatio)
	top := math.Max((v.Height-fh)/2-lift, v.SafeTop+frameTopMargin)
	left := math.Max((v.Width-fw)/2, 0)
	return entity.FramingInfo{
		ScreenWidth:  v.Width,
		ScreenHeight: v.Height,
		FrameTop:     top,
		FrameLeft:    left,
		FrameWidth:   fw,
		FrameHeight:  fh,
	}
}
