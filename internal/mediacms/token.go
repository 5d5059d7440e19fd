package mediacms

import (
	"net/url"
	"regexp"
)

var pathTokenRe = regexp.MustCompile(`/(?:w|v|media)/([a-zA-Z0-9\-_]+)`)

// Ref identifies one media item on a MediaCMS instance.
type Ref struct {
	Token   string
	BaseURL string // scheme://host of the page the token came from
}

// APIURL is the media detail endpoint for the reference.
func (r Ref) APIURL() string {
	return r.BaseURL + "/api/v1/media/" + url.PathEscape(r.Token)
}

// ExtractToken finds the media token in a MediaCMS page URL.
//
// The query parameters v and m are checked first (/watch?v=, /view?m=),
// then the path is searched for /w/<token>, /v/<token> or /media/<token>.
// A missing scheme defaults to http.
func ExtractToken(raw string) (Ref, bool) {
	if raw == "" {
		return Ref{}, false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Ref{}, false
	}

	q := u.Query()
	token := firstNonEmpty(q["v"])
	if token == "" {
		token = firstNonEmpty(q["m"])
	}
	if token == "" {
		if m := pathTokenRe.FindStringSubmatch(u.EscapedPath()); m != nil {
			token = m[1]
		}
	}
	if token == "" {
		return Ref{}, false
	}

	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return Ref{Token: token, BaseURL: scheme + "://" + u.Host}, true
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
