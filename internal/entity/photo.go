package entity

// FramingInfo records the on-screen scan frame at capture time, in screen points.
type FramingInfo struct {
	ScreenWidth  float64 `json:"screen_width"`
	ScreenHeight float64 `json:"screen_height"`
	FrameTop     float64 `json:"frame_top"`
	FrameLeft    float64 `json:"frame_left"`
	FrameWidth   float64 `json:"frame_width"`
	FrameHeight  float64 `json:"frame_height"`
}

// Valid reports whether the frame geometry can be used for cropping.
func (f *FramingInfo) Valid() bool {
	return f != nil && f.FrameWidth > 0 && f.FrameHeight > 0
}

// CapturedPhoto is a single camera shot. Base64 may be empty when only URI is known.
type CapturedPhoto struct {
	URI     string       `json:"uri,omitempty"`
	Base64  string       `json:"base64,omitempty"`
	Width   int          `json:"width,omitempty"`
	Height  int          `json:"height,omitempty"`
	Framing *FramingInfo `json:"framing,omitempty"`
}

// HasData reports whether the photo carries any bytes or a file reference.
func (p CapturedPhoto) HasData() bool {
	return p.Base64 != "" || p.URI != ""
}
