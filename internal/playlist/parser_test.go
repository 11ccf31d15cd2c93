package playlist

import (
	"reflect"
	"testing"
)

const samplePlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="42" tvg-name="News Channel" tvg-logo="http://logo.example/news.png" group-title="News",News Channel
http://host.example/live/user/pass/42.ts
#EXTINF:-1 tvg-name="Sports One" group-title="Sports",Sports One
http://host.example/live/user/pass/777.ts
#EXTINF:-1 group-title="Music",Music Hits
http://host.example/stream/music
`

func TestParseSamplePlaylist(t *testing.T) {
	channels := Parse(samplePlaylist)
	if len(channels) != 3 {
		t.Fatalf("expected 3 channels, got %d", len(channels))
	}

	first := channels[0]
	if first.StreamID != 42 {
		t.Errorf("expected stream id 42 from tvg-id, got %v (%T)", first.StreamID, first.StreamID)
	}
	if first.Name != "News Channel" {
		t.Errorf("expected name from tvg-name, got %q", first.Name)
	}
	if first.Logo != "http://logo.example/news.png" {
		t.Errorf("unexpected logo %q", first.Logo)
	}
	if first.Category != "News" {
		t.Errorf("unexpected category %q", first.Category)
	}
	if first.StreamURL != "http://host.example/live/user/pass/42.ts" {
		t.Errorf("unexpected stream url %q", first.StreamURL)
	}

	// No tvg-id: numeric segment in the URL wins.
	if channels[1].StreamID != 777 {
		t.Errorf("expected stream id 777 from URL, got %v", channels[1].StreamID)
	}

	// No tvg-id and no numeric URL segment: 1-based ordinal.
	if channels[2].StreamID != 3 {
		t.Errorf("expected ordinal stream id 3, got %v", channels[2].StreamID)
	}
	if channels[2].Name != "Music Hits" {
		t.Errorf("expected last-comma fallback name, got %q", channels[2].Name)
	}
}

func TestParseNonNumericTvgID(t *testing.T) {
	text := "#EXTINF:-1 tvg-id=\"bbc.uk\" group-title=\"News\",BBC\nhttp://host.example/stream/bbc\n"
	channels := Parse(text)
	if len(channels) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(channels))
	}
	if channels[0].StreamID != "bbc.uk" {
		t.Errorf("expected string id bbc.uk, got %v (%T)", channels[0].StreamID, channels[0].StreamID)
	}
}

func TestParseDropsIncompleteMetadata(t *testing.T) {
	// Two EXTINF lines in a row: the first has no URL and must vanish.
	text := `#EXTM3U
#EXTINF:-1 tvg-name="Orphan",Orphan
#EXTINF:-1 tvg-name="Kept",Kept
http://host.example/live/1.ts
`
	channels := Parse(text)
	if len(channels) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(channels))
	}
	if channels[0].Name != "Kept" {
		t.Errorf("expected the second channel, got %q", channels[0].Name)
	}
}

func TestParseIgnoresStrayLines(t *testing.T) {
	text := `#EXTM3U
http://host.example/orphan-url.ts
#EXTVLCOPT:http-user-agent=foo
#EXTINF:-1 tvg-name="Valid",Valid
#EXTGRP:ignored
http://host.example/live/5.ts
`
	channels := Parse(text)
	if len(channels) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(channels))
	}
	if channels[0].StreamID != 5 {
		t.Errorf("expected id 5, got %v", channels[0].StreamID)
	}
}

func TestParseEmptyInput(t *testing.T) {
	if got := Parse(""); len(got) != 0 {
		t.Errorf("expected no channels, got %d", len(got))
	}
	if got := Parse("#EXTM3U\n"); len(got) != 0 {
		t.Errorf("expected no channels from a bare header, got %d", len(got))
	}
}

func TestParseIsDeterministic(t *testing.T) {
	a := Parse(samplePlaylist)
	b := Parse(samplePlaylist)
	if !reflect.DeepEqual(a, b) {
		t.Error("parsing the same text twice produced different results")
	}
}

func TestFilterByCategory(t *testing.T) {
	channels := Parse(samplePlaylist)

	news := FilterByCategory(channels, "News")
	if len(news) != 1 || news[0].Name != "News Channel" {
		t.Fatalf("unexpected News filter result: %+v", news)
	}

	// Ordinal ids are assigned before filtering, so the Music channel keeps
	// id 3 even when it is the only match.
	music := FilterByCategory(channels, "Music")
	if len(music) != 1 || music[0].StreamID != 3 {
		t.Fatalf("expected Music channel with ordinal id 3, got %+v", music)
	}

	if got := FilterByCategory(channels, "Documentary"); len(got) != 0 {
		t.Errorf("expected no matches, got %d", len(got))
	}

	// Match is exact, not case-insensitive.
	if got := FilterByCategory(channels, "news"); len(got) != 0 {
		t.Errorf("expected case-sensitive match to miss, got %d", len(got))
	}
}

func TestAttrValue(t *testing.T) {
	line := `#EXTINF:-1 tvg-id="42" tvg-name="A \"quoted\" name" group-title="News",Display`
	if got := attrValue(line, "tvg-id"); got != "42" {
		t.Errorf("tvg-id = %q", got)
	}
	if got := attrValue(line, "tvg-logo"); got != "" {
		t.Errorf("missing attribute should be empty, got %q", got)
	}
	if got := attrValue(`tvg-id="unterminated`, "tvg-id"); got != "" {
		t.Errorf("unterminated quote should be empty, got %q", got)
	}
}
