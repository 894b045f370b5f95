package attachment

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/existflow/taskprox/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func pdf(name string) File {
	return File{Name: name, Type: "application/pdf", Content: []byte("%PDF-1.4 test")}
}

func TestAllowedType(t *testing.T) {
	assert.True(t, AllowedType("application/pdf"))
	assert.True(t, AllowedType("image/png"))
	assert.True(t, AllowedType("image/x-anything"))
	assert.True(t, AllowedType("Application/ZIP; charset=binary"))
	assert.False(t, AllowedType("text/html"))
	assert.False(t, AllowedType(""))
}

func TestValidateSetRejectsThirdFile(t *testing.T) {
	existing := []model.Attachment{Encode(pdf("a.pdf")), Encode(pdf("b.pdf"))}

	err := ValidateSet(existing, []File{pdf("c.pdf")})
	assert.ErrorIs(t, err, ErrTooMany)

	err = ValidateSet(nil, []File{pdf("a.pdf"), pdf("b.pdf"), pdf("c.pdf")})
	assert.ErrorIs(t, err, ErrTooMany)
}

func TestValidateSetAcceptsTwo(t *testing.T) {
	existing := []model.Attachment{Encode(pdf("a.pdf"))}
	assert.NoError(t, ValidateSet(existing, []File{pdf("b.pdf")}))
}

func TestValidateSetDuplicateName(t *testing.T) {
	existing := []model.Attachment{Encode(pdf("a.pdf"))}
	assert.ErrorIs(t, ValidateSet(existing, []File{pdf("a.pdf")}), ErrDuplicate)
}

func TestValidateLimits(t *testing.T) {
	assert.ErrorIs(t, Validate(File{Name: "x.pdf", Type: "application/pdf"}), ErrEmpty)

	big := File{Name: "big.pdf", Type: "application/pdf", Content: make([]byte, MaxFileSize+1)}
	assert.ErrorIs(t, Validate(big), ErrTooLarge)

	exact := File{Name: "ok.pdf", Type: "application/pdf", Content: make([]byte, MaxFileSize)}
	assert.NoError(t, Validate(exact))

	script := File{Name: "run.sh", Type: "text/x-shellscript", Content: []byte("#!/bin/sh")}
	assert.ErrorIs(t, Validate(script), ErrType)
}

func TestValidateSetTotal(t *testing.T) {
	one := File{Name: "one.pdf", Type: "application/pdf", Content: make([]byte, MaxFileSize)}
	two := File{Name: "two.pdf", Type: "application/pdf", Content: make([]byte, MaxFileSize)}
	assert.NoError(t, ValidateSet(nil, []File{one, two}))

	existing := []model.Attachment{Encode(one)}
	two.Content = append(two.Content, 0)
	assert.Error(t, ValidateSet(existing, []File{two}))
}

func TestEncodeDecode(t *testing.T) {
	f := File{Name: "pic.png", Type: "image/png", Content: pngHeader}

	a := Encode(f)
	assert.Equal(t, "pic.png", a.Name)
	assert.True(t, strings.HasPrefix(a.Data, "data:image/png;base64,"))

	got, err := Decode(a)
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestDecodeBareBase64(t *testing.T) {
	got, err := Decode(model.Attachment{Name: "n.txt", Type: "text/plain", Data: "aGVsbG8="})
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got.Content)
	assert.Equal(t, "text/plain", got.Type)
}

func TestDecodeTypeFromHeader(t *testing.T) {
	got, err := Decode(model.Attachment{Name: "d.pdf", Data: "data:application/pdf;base64,JVBERg=="})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", got.Type)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode(model.Attachment{Name: "x", Data: "data:image/png;base64"})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Decode(model.Attachment{Name: "x", Data: "not base64!!"})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDetect(t *testing.T) {
	assert.Equal(t, "image/png", Detect(pngHeader, ""))
	assert.Equal(t, "application/pdf", Detect([]byte("%PDF-1.7\n"), ""))
	assert.Equal(t, "application/msword", Detect([]byte{0x00, 0x01, 0x02, 0x03}, "application/msword"))
	assert.Equal(t, "text/plain", Detect([]byte("plain words"), "application/msword"))
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(src, pngHeader, 0644))

	f, err := Load(src)
	require.NoError(t, err)
	assert.Equal(t, "scan.png", f.Name)
	assert.Equal(t, "image/png", f.Type)

	out := filepath.Join(dir, "out")
	path, err := Save(Encode(f), out)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(pngHeader, data))
}

func TestValidateSniffsContentOverExtension(t *testing.T) {
	renamed := File{Name: "notes.pdf", Type: "application/pdf", Content: []byte("just some text\n")}
	assert.ErrorIs(t, Validate(renamed), ErrType)

	page := File{Name: "page.pdf", Content: []byte("<html><body>hi</body></html>")}
	assert.ErrorIs(t, Validate(page), ErrType)

	binary := File{Name: "archive.7z", Content: []byte{0x00, 0x01, 0x02, 0x03}}
	assert.NoError(t, Validate(binary))

	unknown := File{Name: "blob.bin", Content: []byte{0x00, 0x01, 0x02, 0x03}}
	assert.ErrorIs(t, Validate(unknown), ErrType)

	assert.NoError(t, Validate(pdf("real.pdf")))
}

func TestLoadRejectsRenamedText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not really a pdf"), 0644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", f.Type)
	assert.ErrorIs(t, ValidateSet(nil, []File{f}), ErrType)
}
