package xtream

import (
	"fmt"
	"strings"

	"github.com/couchgate/couchgate/internal/models"
)

// Stream types accepted by BuildStreamURL.
const (
	StreamTypeLive   = "live"
	StreamTypeMovie  = "movie"
	StreamTypeSeries = "series"
)

const defaultExtension = "m3u8"

// BuildStreamURL constructs the playable URL for a stream. It is a pure
// string construction; no existence check is made against the provider.
// An unrecognized stream type fails before anything is built.
func BuildStreamURL(creds *models.ProviderCredentials, streamType, streamID, extension string) (string, error) {
	switch streamType {
	case StreamTypeLive, StreamTypeMovie, StreamTypeSeries:
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStreamType, streamType)
	}

	if extension == "" {
		extension = defaultExtension
	}

	base := strings.TrimSuffix(creds.BaseURL, "/")
	return fmt.Sprintf("%s/%s/%s/%s/%s.%s", base, streamType, creds.Username, creds.Password, streamID, extension), nil
}
