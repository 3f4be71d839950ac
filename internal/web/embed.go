package web

import "embed"

//go:embed index.html
var content embed.FS

// Index returns the embedded upload page.
func Index() ([]byte, error) {
	return content.ReadFile("index.html")
}
