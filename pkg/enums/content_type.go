package enums

import "fmt"

// ContentType tags gated content for display.
type ContentType string

const (
	ContentTypeArticle  ContentType = "article"
	ContentTypeVideo    ContentType = "video"
	ContentTypeAudio    ContentType = "audio"
	ContentTypeDownload ContentType = "download"
	ContentTypeEvent    ContentType = "event"
)

var validContentTypes = []ContentType{
	ContentTypeArticle,
	ContentTypeVideo,
	ContentTypeAudio,
	ContentTypeDownload,
	ContentTypeEvent,
}

// String implements fmt.Stringer.
func (c ContentType) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c ContentType) IsValid() bool {
	for _, candidate := range validContentTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseContentType converts raw input into a ContentType.
func ParseContentType(value string) (ContentType, error) {
	for _, candidate := range validContentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid content type %q", value)
}
