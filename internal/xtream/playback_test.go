package xtream

import (
	"errors"
	"testing"

	"github.com/couchgate/couchgate/internal/models"
)

func TestBuildStreamURL(t *testing.T) {
	creds := &models.ProviderCredentials{
		BaseURL:  "http://provider.example:8080",
		Username: "user1",
		Password: "pass1",
	}

	tests := []struct {
		name       string
		streamType string
		streamID   string
		extension  string
		want       string
	}{
		{"live default extension", StreamTypeLive, "42", "", "http://provider.example:8080/live/user1/pass1/42.m3u8"},
		{"movie custom extension", StreamTypeMovie, "100", "mkv", "http://provider.example:8080/movie/user1/pass1/100.mkv"},
		{"series episode", StreamTypeSeries, "5512", "mp4", "http://provider.example:8080/series/user1/pass1/5512.mp4"},
		{"live ts", StreamTypeLive, "42", "ts", "http://provider.example:8080/live/user1/pass1/42.ts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildStreamURL(creds, tt.streamType, tt.streamID, tt.extension)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildStreamURLTrimsTrailingSlash(t *testing.T) {
	creds := &models.ProviderCredentials{
		BaseURL:  "http://provider.example/",
		Username: "u",
		Password: "p",
	}
	got, err := BuildStreamURL(creds, StreamTypeLive, "1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "http://provider.example/live/u/p/1.m3u8" {
		t.Errorf("got %q", got)
	}
}

func TestBuildStreamURLRejectsUnknownType(t *testing.T) {
	creds := &models.ProviderCredentials{BaseURL: "http://provider.example", Username: "u", Password: "p"}

	for _, bad := range []string{"", "vod", "radio", "LIVE"} {
		if _, err := BuildStreamURL(creds, bad, "1", ""); !errors.Is(err, ErrInvalidStreamType) {
			t.Errorf("type %q: expected ErrInvalidStreamType, got %v", bad, err)
		}
	}
}
