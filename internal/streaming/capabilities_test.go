package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	chromeUA  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	firefoxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	safariUA  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"
	iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"
	androidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Mobile Safari/537.36"
	tizenUA   = "Mozilla/5.0 (SMART-TV; Linux; Tizen 6.5) AppleWebKit/537.36 (KHTML, like Gecko) 85.0.4183.93/6.5 TV Safari/537.36"
)

func TestNegotiate_KnownClients(t *testing.T) {
	tests := []struct {
		name       string
		userAgent  string
		wantSource string
		wantVP9    bool
		wantHEVC   bool
	}{
		{"chrome", chromeUA, "chromium", true, false},
		{"firefox", firefoxUA, "firefox", true, false},
		{"desktop safari", safariUA, "safari", false, true},
		{"iphone", iphoneUA, "ios", false, true},
		{"android chrome", androidUA, "android", true, true},
		{"tizen tv", tizenUA, "smart-tv", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := Negotiate(tt.userAgent)
			assert.Equal(t, tt.wantSource, caps.Source)
			assert.Equal(t, tt.wantVP9, caps.VideoCodecs["vp9"])
			assert.Equal(t, tt.wantHEVC, caps.VideoCodecs["hevc"])
			assert.True(t, caps.VideoCodecs["h264"], "every rule keeps the h264 floor")
		})
	}
}

func TestNegotiate_FallbackNeverEmpty(t *testing.T) {
	for _, ua := range []string{"", "curl/8.5.0", "SomeUnknownPlayer/1.0"} {
		caps := Negotiate(ua)
		assert.Equal(t, "fallback", caps.Source)
		assert.True(t, caps.VideoCodecs["h264"])
		assert.True(t, caps.AudioCodecs["aac"])
		assert.True(t, caps.Containers["mp4"])
	}
}

func TestNegotiate_ChromeBeforeSafariToken(t *testing.T) {
	// The Chrome UA also contains "Safari/537.36"; the chromium rule must win.
	caps := Negotiate(chromeUA)
	assert.Equal(t, "chromium", caps.Source)
	assert.True(t, caps.Containers["webm"])
}
