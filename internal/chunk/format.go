package chunk

import "strings"

// SampleWidth returns the size in bytes of one sample of a GStreamer raw
// audio format (e.g. "S16LE" → 2). Unknown formats return 0.
func SampleWidth(format string) int {
	f := strings.ToUpper(strings.TrimSpace(format))

	switch {
	case f == "S8" || f == "U8":
		return 1
	case strings.HasPrefix(f, "S16") || strings.HasPrefix(f, "U16"):
		return 2
	// S24_32 packs 24-bit samples into 32-bit words.
	case strings.HasPrefix(f, "S24_32") || strings.HasPrefix(f, "U24_32"):
		return 4
	case strings.HasPrefix(f, "S24") || strings.HasPrefix(f, "U24"):
		return 3
	case strings.HasPrefix(f, "S20") || strings.HasPrefix(f, "U20"):
		return 3
	case strings.HasPrefix(f, "S18") || strings.HasPrefix(f, "U18"):
		return 3
	case strings.HasPrefix(f, "S32") || strings.HasPrefix(f, "U32") || strings.HasPrefix(f, "F32"):
		return 4
	case strings.HasPrefix(f, "F64"):
		return 8
	default:
		return 0
	}
}

// BytesPerFrame resolves an audio format into its fixed frame size
// (sample width × channels). Returns 0 when the layout cannot be resolved.
func BytesPerFrame(f *Format) int {
	if f == nil || f.Channels <= 0 {
		return 0
	}
	return SampleWidth(f.SampleFormat) * f.Channels
}
