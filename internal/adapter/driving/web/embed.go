package web

import (
	"embed"
	"fmt"
	"os"
)

// StaticFS holds the embedded static assets (stylesheet, page scripts,
// service worker).
//
//go:embed static/*
var StaticFS embed.FS

//go:embed content/index.md
var defaultContent string

// LoadContent returns the markdown source of the landing page. An empty
// path selects the embedded default.
func LoadContent(path string) (string, error) {
	if path == "" {
		return defaultContent, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read content file: %w", err)
	}
	return string(data), nil
}
