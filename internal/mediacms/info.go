package mediacms

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MIME types of the selected playable source.
const (
	MimeHLS         = "application/x-mpegURL"
	MimeProgressive = "video/mp4"
)

// SourceKind tells which branch of source selection produced a Source.
type SourceKind string

const (
	SourceHLS         SourceKind = "hls"
	SourceProgressive SourceKind = "progressive"
	SourceFallback    SourceKind = "fallback"
)

// Encoding is one progressive rendition, in response order.
type Encoding struct {
	Label   string `json:"label"`
	H264URL string `json:"h264_url,omitempty"`
}

// MediaInfo is the subset of the media detail response the player needs.
type MediaInfo struct {
	Token      string     `json:"token"`
	BaseURL    string     `json:"base_url"`
	MasterFile string     `json:"master_file,omitempty"`
	Encodings  []Encoding `json:"encodings,omitempty"`
}

// Source is a playable URL plus its MIME type.
type Source struct {
	URL      string     `json:"url"`
	MimeType string     `json:"mime_type"`
	Kind     SourceKind `json:"kind"`
}

// ParseMediaInfo decodes a media detail response. The document must be a
// JSON object; fields of an unexpected shape are treated as absent.
func ParseMediaInfo(data []byte) (*MediaInfo, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode media detail: %w", err)
	}
	if top == nil {
		return nil, errors.New("decode media detail: not a JSON object")
	}

	info := &MediaInfo{}

	if raw, ok := top["hls_info"]; ok {
		var hls map[string]json.RawMessage
		if json.Unmarshal(raw, &hls) == nil {
			var master string
			if json.Unmarshal(hls["master_file"], &master) == nil {
				info.MasterFile = master
			}
		}
	}

	if raw, ok := top["encodings_info"]; ok {
		info.Encodings = parseEncodings(raw)
	}
	return info, nil
}

// parseEncodings walks the encodings_info object keeping key order.
func parseEncodings(raw json.RawMessage) []Encoding {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil
	}

	var out []Encoding
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return out
		}
		label, _ := keyTok.(string)

		var variant struct {
			H264 json.RawMessage `json:"h264"`
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return out
		}
		enc := Encoding{Label: label}
		if json.Unmarshal(value, &variant) == nil && len(variant.H264) > 0 {
			var h264 struct {
				URL json.RawMessage `json:"url"`
			}
			if json.Unmarshal(variant.H264, &h264) == nil {
				var u string
				if json.Unmarshal(h264.URL, &u) == nil {
					enc.H264URL = u
				}
			}
		}
		out = append(out, enc)
	}
	return out
}

// resolutionRank orders labels numerically; non-numeric labels rank as 0.
func resolutionRank(label string) int64 {
	if label == "" {
		return 0
	}
	for i := 0; i < len(label); i++ {
		if label[i] < '0' || label[i] > '9' {
			return 0
		}
	}
	n, err := strconv.ParseInt(label, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// SelectSource picks the playable source for info.
//
// The HLS master playlist wins when present. Otherwise the highest numbered
// encoding with an H.264 URL is used; labels of equal rank keep response
// order. Relative URLs are prefixed with the origin. With nothing usable,
// fallback is returned as progressive video.
func SelectSource(info *MediaInfo, fallback string) Source {
	if info == nil {
		return Source{URL: fallback, MimeType: MimeProgressive, Kind: SourceFallback}
	}

	if info.MasterFile != "" {
		return Source{URL: absolute(info.BaseURL, info.MasterFile), MimeType: MimeHLS, Kind: SourceHLS}
	}

	ordered := make([]Encoding, len(info.Encodings))
	copy(ordered, info.Encodings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return resolutionRank(ordered[i].Label) > resolutionRank(ordered[j].Label)
	})
	for _, enc := range ordered {
		if enc.H264URL != "" {
			return Source{URL: absolute(info.BaseURL, enc.H264URL), MimeType: MimeProgressive, Kind: SourceProgressive}
		}
	}

	return Source{URL: fallback, MimeType: MimeProgressive, Kind: SourceFallback}
}

func absolute(base, ref string) string {
	if strings.HasPrefix(ref, "http") {
		return ref
	}
	return base + ref
}
