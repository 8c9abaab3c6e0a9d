package imageqa

import (
	"encoding/base64"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// isURL reports whether path is an http(s) URL, mirroring
// ImageQuestionTool.py's is_url.
func isURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// encodeImage reads and base64-encodes a local file, the Go analogue of
// encode_image.
func encodeImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return encodeBytes(data), nil
}

func encodeBytes(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// imageFormat derives the MIME image subtype from the file extension,
// defaulting to png, the Go stand-in for get_image_type's Pillow sniff
// (no image-decoding dependency is present anywhere in the example pack, so
// this module infers format from extension instead of decoding pixels).
func imageFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".svg":
		return "svg+xml"
	case ".gif":
		return "gif"
	default:
		return "png"
	}
}

// detectContentType makes a HEAD-less best-effort content-type probe for a
// remote URL by sniffing the response's Content-Type header.
func detectContentType(resp *http.Response) string {
	return resp.Header.Get("Content-Type")
}
