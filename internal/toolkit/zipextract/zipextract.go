// Package zipextract implements the zip-extraction tool, grounded line for
// line on ExtractZipTool.py: it refuses image inputs, refuses non-.zip
// inputs, short-circuits if the sibling _EXTRACTED directory already exists,
// and otherwise extracts and lists every file it produced.
package zipextract

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit"
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".svg", ".gif", ".bmp"}

// New returns the extract_zip tool. Never cached; the cache layer excludes
// it by name regardless of what's registered here.
func New() toolkit.Tool {
	return toolkit.NewSimpleTool("extract_zip", description, schema, extract)
}

const description = `This tool extracts the contents of a zip file to a directory named after the zip file (without the .zip extension, with _EXTRACTED appended) in the same location as the zip file.
It returns a list of the paths of all extracted files. It does NOT return the content of the extracted files.
Once files have been extracted, they need to be read using a different tool such as inspect_file_as_text or image_inspector.

This tool ONLY handles files with a ".zip" extension.`

var schema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"zip_path": map[string]any{"type": "string", "description": "The full path to the zip file to extract."},
	},
	"required": []string{"zip_path"},
}

func extract(ctx context.Context, input string) (string, error) {
	zipPath := input
	var a struct {
		ZipPath string `json:"zip_path"`
	}
	if err := json.Unmarshal([]byte(input), &a); err == nil && a.ZipPath != "" {
		zipPath = a.ZipPath
	}

	for _, ext := range imageExtensions {
		if strings.HasSuffix(zipPath, ext) {
			return "Cannot use extract_zip tool with images: use the image_inspector tool instead!", nil
		}
	}
	if !strings.HasSuffix(zipPath, ".zip") {
		return "Cannot use extract_zip tool with this file: try using the inspect_file_as_text tool instead!", nil
	}

	extractDir := filepath.Join(filepath.Dir(zipPath), strings.TrimSuffix(filepath.Base(zipPath), ".zip")+"_EXTRACTED")

	if info, err := os.Stat(extractDir); err == nil && info.IsDir() {
		files, err := listFiles(extractDir)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("This zip file has already been extracted. Try using the inspect_file_as_text or image_inspector tool to inspect the following extracted files %v", files), nil
	}

	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", fmt.Errorf("creating extraction directory: %w", err)
	}

	if err := unzip(zipPath, extractDir); err != nil {
		return "", fmt.Errorf("extracting %s: %w", zipPath, err)
	}

	files, err := listFiles(extractDir)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("\nZip file extracted.\nThe extracted files have the following paths: %v.\nYou can use inspect_file_as_text or image_inspector tool to inspect the extracted files.\n", files), nil
}

func unzip(zipPath, dest string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("zip entry %q escapes extraction directory", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

func listFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}
