package pipeline

import (
	"github.com/joseph-ayodele/notescan/constants"
	"github.com/joseph-ayodele/notescan/internal/entity"
)

// DefaultProfiles is the preparation ladder tried for every photo, largest first.
// The demo key is limited to engine 1 and small uploads.
func DefaultProfiles(demoKey bool) []entity.PreparationProfile {
	if demoKey {
		return []entity.PreparationProfile{
			{TargetWidth: 1080, Compression: 0.9, Engine: 1, Format: constants.FormatPNG},
			{TargetWidth: 900, Compression: 0.85, Engine: 1, Format: constants.FormatPNG},
			{TargetWidth: 720, Compression: 0.7, Engine: 1, Format: constants.FormatJPEG},
			{TargetWidth: 576, Compression: 0.65, Engine: 1, Format: constants.FormatJPEG},
		}
	}
	return []entity.PreparationProfile{
		{TargetWidth: 1600, Compression: 0.92, Engine: 2, Format: constants.FormatPNG},
		{TargetWidth: 1440, Compression: 0.9, Engine: 2, Format: constants.FormatPNG},
		{TargetWidth: 1280, Compression: 0.88, Engine: 2, Format: constants.FormatJPEG},
		{TargetWidth: 1024, Compression: 0.82, Engine: 2, Format: constants.FormatJPEG},
		{TargetWidth: 864, Compression: 0.75, Engine: 1, Format: constants.FormatJPEG},
		{TargetWidth: 720, Compression: 0.7, Engine: 1, Format: constants.FormatJPEG},
	}
}
