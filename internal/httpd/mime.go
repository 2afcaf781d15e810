package httpd

import (
	"path"
	"strings"
)

// DefaultMIME is returned for names whose extension is not in the table.
const DefaultMIME = "application/octet-stream"

var mimeByExt = map[string]string{
	"html": "text/html",
	"js":   "application/javascript",
	"xml":  "text/xml",
	"css":  "text/css",
	"png":  "image/png",
	"jpg":  "image/jpg",
	"gif":  "image/gif",
	"ico":  "image/ico",
	"json": "application/json",
	"txt":  "text/plain",
	"log":  "text/plain",
	"csv":  "text/csv",
}

// GuessMIME returns the content type for a resource name. A trailing
// numeric version suffix is skipped, so "app.js.3" resolves like "app.js".
func GuessMIME(name string) string {
	base := path.Base(name)

	root, ext, ok := cutLast(base, ".")
	if !ok {
		return DefaultMIME
	}
	if isDigits(ext) {
		if _, ext, ok = cutLast(root, "."); !ok {
			return DefaultMIME
		}
	}

	if mt, ok := mimeByExt[ext]; ok {
		return mt
	}
	return DefaultMIME
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
