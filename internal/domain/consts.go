package domain

// Default publishing window applied when an owner has not configured one.
const (
	DefaultStartHour     = 10
	DefaultEndHour       = 20
	DefaultIntervalHours = 2
)

// Supported media types. Anything else is sent as a document.
const (
	MediaPhoto     = "photo"
	MediaVideo     = "video"
	MediaAudio     = "audio"
	MediaAnimation = "animation"
	MediaDocument  = "document"
)
