// Package attachment validates task files and converts them to and from the
// inline base64 form the backend stores.
package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/existflow/taskprox/internal/model"
	"github.com/gabriel-vasile/mimetype"
)

const (
	MaxFiles     = 2
	MaxFileSize  = 7.5 * 1024 * 1024 // 7.5MB per file
	MaxTotalSize = 15 * 1024 * 1024  // 15MB combined
)

var (
	ErrTooMany       = fmt.Errorf("at most %d files can be attached", MaxFiles)
	ErrEmpty         = errors.New("file is empty")
	ErrTooLarge      = errors.New("file exceeds 7.5MB")
	ErrTotalTooLarge = errors.New("combined files exceed 15MB")
	ErrType          = errors.New("file type not allowed")
	ErrDuplicate     = errors.New("file already attached")
	ErrMalformed     = errors.New("malformed attachment data")
)

var allowedTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.ms-excel":                                                  true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/zip":              true,
	"application/x-zip-compressed": true,
	"application/x-rar-compressed": true,
	"application/x-7z-compressed":  true,
	"application/x-gzip":           true,
	"application/gzip":             true,
	"application/x-bzip2":          true,
}

var allowedExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".ppt": true, ".pptx": true,
	".xls": true, ".xlsx": true, ".zip": true, ".rar": true, ".7z": true,
	".gz": true, ".bz2": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".svg": true, ".webp": true, ".bmp": true, ".tif": true,
	".tiff": true, ".ico": true, ".heic": true, ".heif": true, ".jfif": true,
	".raw": true,
}

// File is an attachment in decoded form
type File struct {
	Name    string
	Type    string
	Content []byte
}

// Size returns the content length in bytes
func (f File) Size() int {
	return len(f.Content)
}

// AllowedType reports whether a MIME type may be attached. Any image/* is accepted.
func AllowedType(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return allowedTypes[mime] || strings.HasPrefix(mime, "image/")
}

// AllowedExtension reports whether a file name has an accepted extension
func AllowedExtension(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

const octetStream = "application/octet-stream"

// Detect sniffs the MIME type of content. The declared type is only used
// when sniffing cannot tell more than octet-stream.
func Detect(content []byte, declared string) string {
	detected := mimetype.Detect(content)
	for m := detected; m != nil; m = m.Parent() {
		if AllowedType(m.String()) {
			return baseType(m.String())
		}
	}
	if declared != "" && detected.Is(octetStream) {
		return declared
	}
	return baseType(detected.String())
}

func baseType(mime string) string {
	return strings.TrimSpace(strings.SplitN(mime, ";", 2)[0])
}

// Load reads a local file and detects its type
func Load(path string) (File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read attachment: %w", err)
	}
	return File{
		Name:    filepath.Base(path),
		Type:    Detect(content, ""),
		Content: content,
	}, nil
}

// Validate checks one file against the per-file rules
func Validate(f File) error {
	if f.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmpty, f.Name)
	}
	if f.Size() > MaxFileSize {
		return fmt.Errorf("%w: %s", ErrTooLarge, f.Name)
	}
	// the content decides; the extension only settles unrecognised binaries
	typ := Detect(f.Content, f.Type)
	if !AllowedType(typ) && !(mimetype.Detect(f.Content).Is(octetStream) && AllowedExtension(f.Name)) {
		return fmt.Errorf("%w: %s (%s)", ErrType, f.Name, typ)
	}
	return nil
}

// ValidateSet checks the files that would be stored on a task: existing
// attachments plus new ones.
func ValidateSet(existing []model.Attachment, added []File) error {
	if len(existing)+len(added) > MaxFiles {
		return ErrTooMany
	}

	total := 0
	names := make(map[string]bool, len(existing)+len(added))
	for _, a := range existing {
		f, err := Decode(a)
		if err != nil {
			return err
		}
		total += f.Size()
		names[f.Name] = true
	}
	for _, f := range added {
		if err := Validate(f); err != nil {
			return err
		}
		if names[f.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicate, f.Name)
		}
		names[f.Name] = true
		total += f.Size()
	}
	if total > MaxTotalSize {
		return ErrTotalTooLarge
	}
	return nil
}

// Encode converts a file to its wire form with a data-URL payload
func Encode(f File) model.Attachment {
	mime := f.Type
	if mime == "" {
		mime = octetStream
	}
	return model.Attachment{
		Name: f.Name,
		Type: mime,
		Data: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(f.Content),
	}
}

// Decode reverses Encode. Bare base64 without a data-URL prefix is accepted.
func Decode(a model.Attachment) (File, error) {
	payload := a.Data
	mime := a.Type
	if strings.HasPrefix(payload, "data:") {
		comma := strings.Index(payload, ",")
		if comma < 0 {
			return File{}, fmt.Errorf("%w: %s", ErrMalformed, a.Name)
		}
		header := payload[len("data:"):comma]
		if mime == "" {
			mime = strings.TrimSuffix(header, ";base64")
		}
		payload = payload[comma+1:]
	}

	content, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return File{}, fmt.Errorf("%w: %s: %v", ErrMalformed, a.Name, err)
	}
	return File{Name: a.Name, Type: mime, Content: content}, nil
}

// Save writes a decoded attachment into dir and returns the path
func Save(a model.Attachment, dir string) (string, error) {
	f, err := Decode(a)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(f.Name))
	if err := os.WriteFile(path, f.Content, 0644); err != nil {
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}
	return path, nil
}
