package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		size      int64
		want      *ByteRange
		wantErr   error
		wholeFile bool
	}{
		{name: "no header", header: "", size: 100, wholeFile: true},
		{name: "open ended", header: "bytes=1000-", size: 5000, want: &ByteRange{1000, 4999}},
		{name: "explicit end", header: "bytes=0-499", size: 5000, want: &ByteRange{0, 499}},
		{name: "end clamped to size", header: "bytes=4000-9999", size: 5000, want: &ByteRange{4000, 4999}},
		{name: "suffix form", header: "bytes=-500", size: 5000, want: &ByteRange{4500, 4999}},
		{name: "suffix larger than file", header: "bytes=-9999", size: 5000, want: &ByteRange{0, 4999}},
		{name: "start past end", header: "bytes=5000-", size: 5000, wantErr: ErrUnsatisfiableRange},
		{name: "start way past end", header: "bytes=99999-", size: 5000, wantErr: ErrUnsatisfiableRange},
		{name: "not a bytes unit", header: "items=0-10", size: 5000, wholeFile: true},
		{name: "multiple ranges ignored", header: "bytes=0-1,5-9", size: 5000, wholeFile: true},
		{name: "garbage ignored", header: "bytes=abc-def", size: 5000, wholeFile: true},
		{name: "end before start ignored", header: "bytes=100-50", size: 5000, wholeFile: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.header, tt.size)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.wholeFile {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestByteRange_ContentRange(t *testing.T) {
	rng := ByteRange{Start: 1000, End: 4999}
	assert.Equal(t, "bytes 1000-4999/5000", rng.ContentRange(5000))
	assert.Equal(t, int64(4000), rng.Length())
}
