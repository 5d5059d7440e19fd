// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package fragment models a renderable piece of a course page: an HTML body,
// the stylesheets and scripts it needs, and the JavaScript function that
// initializes it in the browser.
package fragment

import (
	"encoding/json"
	"html/template"
)

// Resource kinds.
const (
	KindURL  = "url"
	KindText = "text"
)

// Resource MIME types.
const (
	MimeCSS = "text/css"
	MimeJS  = "application/javascript"
)

// Resource is one stylesheet or script attached to a fragment.
type Resource struct {
	Kind     string `json:"kind"`
	MimeType string `json:"mimetype"`
	Data     string `json:"data"`
}

// Fragment is the output of a block view.
type Fragment struct {
	Content    template.HTML
	Resources  []Resource
	JSInitFn   string
	JSInitArgs any
}

// New creates a fragment with the given trusted HTML body.
func New(content template.HTML) *Fragment {
	return &Fragment{Content: content}
}

// AddCSSURL links an external stylesheet.
func (f *Fragment) AddCSSURL(url string) {
	f.add(KindURL, MimeCSS, url)
}

// AddJavaScriptURL links an external script.
func (f *Fragment) AddJavaScriptURL(url string) {
	f.add(KindURL, MimeJS, url)
}

// AddCSS inlines a stylesheet.
func (f *Fragment) AddCSS(text string) {
	f.add(KindText, MimeCSS, text)
}

// AddJavaScript inlines a script.
func (f *Fragment) AddJavaScript(text string) {
	f.add(KindText, MimeJS, text)
}

// InitializeJS names the browser function called as fn(runtime, element, args).
// args may be nil.
func (f *Fragment) InitializeJS(fn string, args any) {
	f.JSInitFn = fn
	f.JSInitArgs = args
}

// add keeps the first occurrence of a resource.
func (f *Fragment) add(kind, mime, data string) {
	for _, r := range f.Resources {
		if r.Kind == kind && r.MimeType == mime && r.Data == data {
			return
		}
	}
	f.Resources = append(f.Resources, Resource{Kind: kind, MimeType: mime, Data: data})
}

// Filter returns the resources matching kind and mime in insertion order.
func (f *Fragment) Filter(kind, mime string) []string {
	var out []string
	for _, r := range f.Resources {
		if r.Kind == kind && r.MimeType == mime {
			out = append(out, r.Data)
		}
	}
	return out
}

type fragmentJSON struct {
	Content    string     `json:"content"`
	Resources  []Resource `json:"resources"`
	JSInitFn   string     `json:"js_init_fn,omitempty"`
	JSInitArgs any        `json:"json_init_args,omitempty"`
}

// MarshalJSON encodes the fragment for hosts that assemble pages themselves.
func (f *Fragment) MarshalJSON() ([]byte, error) {
	res := f.Resources
	if res == nil {
		res = []Resource{}
	}
	return json.Marshal(fragmentJSON{
		Content:    string(f.Content),
		Resources:  res,
		JSInitFn:   f.JSInitFn,
		JSInitArgs: f.JSInitArgs,
	})
}
