// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package fragment

import (
	_ "embed"
	"html/template"
	"io"
	"net/url"
)

// JQueryURL is loaded before fragment scripts; block scripts depend on $.
const JQueryURL = "https://code.jquery.com/jquery-3.7.1.min.js"

//go:embed static/runtime.js
var runtimeJS string

// Page describes the standalone HTML document a fragment is embedded in.
type Page struct {
	Title string
	// HandlerBase is the URL prefix handler names are appended to.
	HandlerBase string
	// Query is appended to every handler URL (identity parameters).
	Query url.Values
	// Nonce authorizes inline scripts and styles under the page CSP.
	Nonce string
}

type pageData struct {
	Page
	Fragment   *Fragment
	CSSURLs    []string
	CSSTexts   []template.CSS
	JSURLs     []string
	JSTexts    []template.JS
	RuntimeJS  template.JS
	HandlerQS  string
	JQueryURL  string
	InitFn     string
	InitArgs   any
	HasInitArg bool
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
{{- range .CSSURLs}}
    <link rel="stylesheet" href="{{.}}">
{{- end}}
{{- range .CSSTexts}}
    <style nonce="{{$.Nonce}}">{{.}}</style>
{{- end}}
</head>
<body>
<div class="xblock" id="block-root" data-init="{{.InitFn}}">
{{.Fragment.Content}}
</div>
<script src="{{.JQueryURL}}"></script>
{{- range .JSURLs}}
<script src="{{.}}"></script>
{{- end}}
<script nonce="{{.Nonce}}">{{.RuntimeJS}}</script>
{{- range .JSTexts}}
<script nonce="{{$.Nonce}}">{{.}}</script>
{{- end}}
{{- if .InitFn}}
<script nonce="{{.Nonce}}">
mediablockBoot({{.InitFn}}, {{.HandlerBase}}, {{.HandlerQS}}, {{if .HasInitArg}}{{.InitArgs}}{{else}}null{{end}});
</script>
{{- end}}
</body>
</html>
`))

// Render writes f as a complete HTML document. Inline assets come from the
// binary and are trusted.
func (f *Fragment) Render(w io.Writer, p Page) error {
	data := pageData{
		Page:       p,
		Fragment:   f,
		CSSURLs:    f.Filter(KindURL, MimeCSS),
		JSURLs:     f.Filter(KindURL, MimeJS),
		RuntimeJS:  template.JS(runtimeJS), // #nosec G203 -- embedded asset
		HandlerQS:  p.Query.Encode(),
		JQueryURL:  JQueryURL,
		InitFn:     f.JSInitFn,
		InitArgs:   f.JSInitArgs,
		HasInitArg: f.JSInitArgs != nil,
	}
	for _, css := range f.Filter(KindText, MimeCSS) {
		data.CSSTexts = append(data.CSSTexts, template.CSS(css)) // #nosec G203 -- embedded asset
	}
	for _, js := range f.Filter(KindText, MimeJS) {
		data.JSTexts = append(data.JSTexts, template.JS(js)) // #nosec G203 -- embedded asset
	}
	return pageTemplate.Execute(w, data)
}
