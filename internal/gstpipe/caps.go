package gstpipe

import (
	"strings"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/chunk"
)

// FormatFromCaps decodes the first structure of caps into a chunk.Format.
// Returns nil when caps are absent or empty.
func FormatFromCaps(caps *gst.Caps) *chunk.Format {
	if caps == nil || caps.GetSize() == 0 {
		return nil
	}

	st := caps.GetStructureAt(0)
	if st == nil {
		return nil
	}

	return formatFromValues(st.Name(), func(key string) interface{} {
		v, err := st.GetValue(key)
		if err != nil {
			return nil
		}
		return v
	})
}

// formatFromValues builds a Format from a caps structure name and a field
// lookup. Fields that are missing or of an unexpected type stay zero.
func formatFromValues(media string, get func(key string) interface{}) *chunk.Format {
	f := &chunk.Format{Media: media}

	switch {
	case strings.HasPrefix(media, "video/"):
		f.Width = toInt(get("width"))
		f.Height = toInt(get("height"))
		f.PixelFormat = toString(get("format"))
	case strings.HasPrefix(media, "audio/"):
		f.Rate = toInt(get("rate"))
		f.Channels = toInt(get("channels"))
		f.SampleFormat = toString(get("format"))
	}

	return f
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		return int(n)
	default:
		return 0
	}
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}
