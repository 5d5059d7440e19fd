// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package block

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed static
var staticFS embed.FS

var (
	studentTemplate = template.Must(template.ParseFS(staticFS, "static/html/mediacms.html"))
	studioTemplate  = template.Must(template.ParseFS(staticFS, "static/html/studio_edit.html"))

	studentCSS = mustAsset("static/css/mediacms.css")
	studentJS  = mustAsset("static/js/src/mediacms.js")
	studioJS   = mustAsset("static/js/src/studio_edit.js")
)

func mustAsset(name string) string {
	b, err := staticFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// Static exposes the bundled assets rooted at "static" for HTTP serving.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
