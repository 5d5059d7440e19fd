package mediacms

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMediaInfo_KeepsEncodingOrder(t *testing.T) {
	info, err := ParseMediaInfo([]byte(`{
		"title": "x",
		"encodings_info": {
			"480": {"h264": {"url": "/a"}},
			"auto": {"h264": {"url": "/auto"}},
			"720": {"h264": {"url": "/b"}, "vp9": {"url": "/b.webm"}},
			"1080": {"vp9": {"url": "/c.webm"}}
		}
	}`))
	require.NoError(t, err)

	want := []Encoding{
		{Label: "480", H264URL: "/a"},
		{Label: "auto", H264URL: "/auto"},
		{Label: "720", H264URL: "/b"},
		{Label: "1080"},
	}
	if diff := cmp.Diff(want, info.Encodings); diff != "" {
		t.Fatalf("encodings mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMediaInfo_ToleratesShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"hls null", `{"hls_info": null}`},
		{"hls list", `{"hls_info": []}`},
		{"master not string", `{"hls_info": {"master_file": 7}}`},
		{"encodings list", `{"encodings_info": [1,2]}`},
		{"variant not object", `{"encodings_info": {"720": "nope"}}`},
		{"url not string", `{"encodings_info": {"720": {"h264": {"url": null}}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseMediaInfo([]byte(tt.body))
			require.NoError(t, err)
			src := SelectSource(info, "https://h/view?m=x")
			assert.Equal(t, SourceFallback, src.Kind)
		})
	}
}

func TestParseMediaInfo_RejectsNonObject(t *testing.T) {
	for _, body := range []string{`[]`, `null`, `"str"`, `{bad`} {
		_, err := ParseMediaInfo([]byte(body))
		assert.Error(t, err, body)
	}
}

func TestSelectSource(t *testing.T) {
	const fallback = "https://h/view?m=tok"

	tests := []struct {
		name string
		info *MediaInfo
		want Source
	}{
		{
			name: "nil info falls back",
			info: nil,
			want: Source{URL: fallback, MimeType: MimeProgressive, Kind: SourceFallback},
		},
		{
			name: "relative hls master",
			info: &MediaInfo{BaseURL: "https://host", MasterFile: "/x/master.m3u8"},
			want: Source{URL: "https://host/x/master.m3u8", MimeType: MimeHLS, Kind: SourceHLS},
		},
		{
			name: "absolute hls master",
			info: &MediaInfo{BaseURL: "https://host", MasterFile: "https://cdn/x.m3u8"},
			want: Source{URL: "https://cdn/x.m3u8", MimeType: MimeHLS, Kind: SourceHLS},
		},
		{
			name: "hls wins over encodings",
			info: &MediaInfo{
				BaseURL:    "https://host",
				MasterFile: "/m.m3u8",
				Encodings:  []Encoding{{Label: "720", H264URL: "/b"}},
			},
			want: Source{URL: "https://host/m.m3u8", MimeType: MimeHLS, Kind: SourceHLS},
		},
		{
			name: "highest resolution",
			info: &MediaInfo{
				BaseURL:   "https://host",
				Encodings: []Encoding{{Label: "480", H264URL: "/a"}, {Label: "720", H264URL: "/b"}},
			},
			want: Source{URL: "https://host/b", MimeType: MimeProgressive, Kind: SourceProgressive},
		},
		{
			name: "skips resolutions without h264",
			info: &MediaInfo{
				BaseURL:   "https://host",
				Encodings: []Encoding{{Label: "1080"}, {Label: "240", H264URL: "https://cdn/240.mp4"}},
			},
			want: Source{URL: "https://cdn/240.mp4", MimeType: MimeProgressive, Kind: SourceProgressive},
		},
		{
			name: "non numeric labels rank lowest and keep order",
			info: &MediaInfo{
				BaseURL:   "https://host",
				Encodings: []Encoding{{Label: "auto", H264URL: "/first"}, {Label: "hd", H264URL: "/second"}},
			},
			want: Source{URL: "https://host/first", MimeType: MimeProgressive, Kind: SourceProgressive},
		},
		{
			name: "numeric beats non numeric",
			info: &MediaInfo{
				BaseURL:   "https://host",
				Encodings: []Encoding{{Label: "auto", H264URL: "/auto"}, {Label: "144", H264URL: "/144"}},
			},
			want: Source{URL: "https://host/144", MimeType: MimeProgressive, Kind: SourceProgressive},
		},
		{
			name: "no usable source",
			info: &MediaInfo{BaseURL: "https://host", Encodings: []Encoding{{Label: "720"}}},
			want: Source{URL: fallback, MimeType: MimeProgressive, Kind: SourceFallback},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectSource(tt.info, fallback))
		})
	}
}

func TestSelectSource_DoesNotReorderInput(t *testing.T) {
	info := &MediaInfo{Encodings: []Encoding{{Label: "480", H264URL: "/a"}, {Label: "720", H264URL: "/b"}}}
	SelectSource(info, "")
	assert.Equal(t, "480", info.Encodings[0].Label)
}
