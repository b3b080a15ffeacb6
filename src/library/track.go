package library

import (
	"fmt"
	"time"
)

// Track holds all information associated with a single playable song.
//
// A track is identified by its ID, which is stable for the lifetime of the
// catalog entry. The media locators are absolute URLs that can be fetched
// directly by whatever output ends up playing the track.
type Track struct {
	ID       string        `json:"id"`
	Title    string        `json:"title,omitempty"`
	Artist   string        `json:"artist,omitempty"`
	AudioURL string        `json:"audio_url,omitempty"`
	CoverURL string        `json:"cover_image_url,omitempty"`
	VideoURL string        `json:"video_url,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Playable reports whether the track has an audio resource to load. Tracks
// without one are shown but never started.
func (track Track) Playable() bool {
	return track.AudioURL != ""
}

// Attr gets an attribute of a track by its name. Accepted names are:
//
//	"id"
//	"title"
//	"artist"
//	"audiourl"
//	"coverurl"
//	"videourl"
//	"duration"
func (track *Track) Attr(attr string) interface{} {
	switch attr {
	case "id":
		return track.ID
	case "title":
		return track.Title
	case "artist":
		return track.Artist
	case "audiourl":
		return track.AudioURL
	case "coverurl":
		return track.CoverURL
	case "videourl":
		return track.VideoURL
	case "duration":
		return int64(track.Duration / time.Second)
	}
	return nil
}

func (track Track) String() string {
	return fmt.Sprintf("%s - %s (%v)", track.Artist, track.Title, track.Duration)
}
