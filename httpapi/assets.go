package httpapi

import (
	"embed"
	"io/fs"
)

// The viewer bundle ships inside the binary so a bare `periscope serve`
// needs no asset directory on disk.
//
//go:embed assets/*
var viewerBundle embed.FS

var assetsFS fs.FS

func init() {
	stripped, err := fs.Sub(viewerBundle, "assets")
	if err != nil {
		assetsFS = viewerBundle
		return
	}
	assetsFS = stripped
}
