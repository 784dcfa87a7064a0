package router

import "github.com/atotto/clipboard"

// Clipboard is where copied content ends up
type Clipboard interface {
	WriteText(text string) error
}

// SystemClipboard writes to the operating system clipboard
type SystemClipboard struct{}

func (SystemClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}
