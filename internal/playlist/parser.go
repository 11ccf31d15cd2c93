package playlist

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// Channel is one entry parsed from a provider M3U playlist. StreamID holds
// an int when a numeric id could be derived (tvg-id, URL segment, or
// ordinal fallback) and a string otherwise; clients index their catalogs
// numerically where possible.
type Channel struct {
	StreamID  interface{} `json:"stream_id"`
	Name      string      `json:"name"`
	Logo      string      `json:"logo,omitempty"`
	Category  string      `json:"category_id"`
	StreamURL string      `json:"stream_url"`
}

// urlIDPattern matches a numeric id segment like /48213. in a media URL.
var urlIDPattern = regexp.MustCompile(`/(\d+)\.`)

// parser state: either waiting for the next #EXTINF metadata line, or
// holding a pending channel and waiting for its media URL line.
type state int

const (
	awaitingExtinf state = iota
	awaitingURL
)

// pending accumulates one channel between its metadata and URL lines.
type pending struct {
	tvgID    string
	name     string
	logo     string
	category string
}

// Parse converts M3U text into channels in file order. It never fails on
// malformed input lines: anything outside the two recognized line forms is
// skipped, and a metadata line with no following URL line emits nothing.
// An empty result is the caller's signal that the playlist was unusable.
func Parse(text string) []Channel {
	channels := make([]Channel, 0)

	st := awaitingExtinf
	var cur pending

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "#EXTINF:") {
			// A new metadata line always resets the pending slot; an
			// incomplete previous channel is dropped, never emitted.
			cur = parseExtinf(line)
			st = awaitingURL
			continue
		}

		if st != awaitingURL || line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Media URL line completes the pending channel.
		channels = append(channels, Channel{
			StreamID:  deriveStreamID(cur.tvgID, line, len(channels)),
			Name:      cur.name,
			Logo:      cur.logo,
			Category:  cur.category,
			StreamURL: line,
		})
		st = awaitingExtinf
		cur = pending{}
	}

	return channels
}

// FilterByCategory retains only channels whose category label exactly
// equals the filter, preserving order. Filtering happens after parsing so
// ordinal fallback ids stay stable regardless of the filter.
func FilterByCategory(channels []Channel, category string) []Channel {
	out := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if ch.Category == category {
			out = append(out, ch)
		}
	}
	return out
}

func parseExtinf(line string) pending {
	p := pending{
		tvgID:    attrValue(line, "tvg-id"),
		name:     attrValue(line, "tvg-name"),
		logo:     attrValue(line, "tvg-logo"),
		category: attrValue(line, "group-title"),
	}

	// Display name after the last comma is the fallback when no tvg-name
	// attribute is present.
	if p.name == "" {
		if idx := strings.LastIndex(line, ","); idx != -1 {
			p.name = strings.TrimSpace(line[idx+1:])
		}
	}

	return p
}

// attrValue extracts a quoted attribute like tvg-id="..." from an EXTINF line.
func attrValue(line, key string) string {
	marker := key + `="`
	start := strings.Index(line, marker)
	if start == -1 {
		return ""
	}
	rest := line[start+len(marker):]
	end := strings.Index(rest, `"`)
	if end == -1 {
		return ""
	}
	return rest[:end]
}

// deriveStreamID resolves the channel id with three fallbacks: the tvg-id
// attribute (int-coerced when numeric), a /<digits>. segment in the media
// URL, and finally the 1-based position among accepted channels.
func deriveStreamID(tvgID, mediaURL string, accepted int) interface{} {
	if tvgID != "" {
		if n, err := strconv.Atoi(tvgID); err == nil {
			return n
		}
		return tvgID
	}
	if m := urlIDPattern.FindStringSubmatch(mediaURL); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return accepted + 1
}
