// Package streaming decides how a library file reaches a client: direct
// byte-range serving when the client can play it as stored, or a live
// transcode when it cannot.
package streaming

import "regexp"

// ClientCapabilities describes the codecs and containers a client can play.
// Sets are lower-cased codec/container names. A capability set is never
// empty: negotiation always lands on at least the universal fallback.
type ClientCapabilities struct {
	VideoCodecs map[string]bool
	AudioCodecs map[string]bool
	Containers  map[string]bool

	// Source names the matched rule, for logging only.
	Source string
}

// capabilityRule pairs a User-Agent pattern with the capability set to
// assume for clients that match it.
type capabilityRule struct {
	pattern *regexp.Regexp
	source  string
	video   []string
	audio   []string
	cont    []string
}

// Rules are evaluated in order and the first match wins. Order matters:
// most real User-Agents carry several browser tokens (Android Chrome
// contains "Chrome" and "Safari", Edge contains both too), so the more
// specific families come first.
var capabilityRules = []capabilityRule{
	{
		pattern: regexp.MustCompile(`(?i)tizen|web0s|webos|bravia|roku|crkey|smart-?tv|hbbtv`),
		source:  "smart-tv",
		video:   []string{"h264", "hevc"},
		audio:   []string{"aac", "ac3", "eac3", "mp3"},
		cont:    []string{"mp4"},
	},
	{
		pattern: regexp.MustCompile(`(?i)iphone|ipad|ipod`),
		source:  "ios",
		video:   []string{"h264", "hevc"},
		audio:   []string{"aac", "mp3", "flac"},
		cont:    []string{"mp4", "mov"},
	},
	{
		pattern: regexp.MustCompile(`(?i)android`),
		source:  "android",
		video:   []string{"h264", "hevc", "vp8", "vp9", "av1"},
		audio:   []string{"aac", "mp3", "opus", "vorbis", "flac"},
		cont:    []string{"mp4", "webm", "matroska"},
	},
	{
		pattern: regexp.MustCompile(`(?i)firefox/`),
		source:  "firefox",
		video:   []string{"h264", "vp8", "vp9", "av1"},
		audio:   []string{"aac", "mp3", "opus", "vorbis", "flac"},
		cont:    []string{"mp4", "webm"},
	},
	{
		pattern: regexp.MustCompile(`(?i)edg(e|a|ios)?/|chrome/|chromium/|opr/`),
		source:  "chromium",
		video:   []string{"h264", "vp8", "vp9", "av1"},
		audio:   []string{"aac", "mp3", "opus", "vorbis", "flac"},
		cont:    []string{"mp4", "webm"},
	},
	{
		pattern: regexp.MustCompile(`(?i)safari/`),
		source:  "safari",
		video:   []string{"h264", "hevc"},
		audio:   []string{"aac", "mp3", "flac"},
		cont:    []string{"mp4", "mov"},
	},
}

// fallbackCapabilities is what every unknown client is assumed to play.
var fallbackCapabilities = capabilityRule{
	source: "fallback",
	video:  []string{"h264"},
	audio:  []string{"aac"},
	cont:   []string{"mp4"},
}

// Negotiate maps a User-Agent string to a capability set. It is total:
// unknown or empty agents get the universal h264/aac/mp4 fallback.
func Negotiate(userAgent string) ClientCapabilities {
	for _, rule := range capabilityRules {
		if userAgent != "" && rule.pattern.MatchString(userAgent) {
			return rule.capabilities()
		}
	}
	return fallbackCapabilities.capabilities()
}

func (r capabilityRule) capabilities() ClientCapabilities {
	return ClientCapabilities{
		VideoCodecs: toSet(r.video),
		AudioCodecs: toSet(r.audio),
		Containers:  toSet(r.cont),
		Source:      r.source,
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
