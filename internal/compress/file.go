package compress

import (
	"bytes"
	"io"
	"mime/multipart"
)

// File is the file-like input of the pipeline. Open may be called more than
// once; each call returns an independent reader.
type File interface {
	Name() string
	Type() string
	Open() (io.ReadCloser, error)
}

type bytesFile struct {
	name     string
	mimeType string
	data     []byte
}

// NewBytesFile wraps an in-memory payload. An empty mimeType is sniffed
// from the content when the file is decoded.
func NewBytesFile(name, mimeType string, data []byte) File {
	return &bytesFile{name: name, mimeType: mimeType, data: data}
}

func (f *bytesFile) Name() string { return f.name }
func (f *bytesFile) Type() string { return f.mimeType }

func (f *bytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

type formFile struct {
	header *multipart.FileHeader
}

// NewFormFile adapts an uploaded multipart file. The type comes from the
// part's Content-Type header.
func NewFormFile(h *multipart.FileHeader) File {
	return &formFile{header: h}
}

func (f *formFile) Name() string { return f.header.Filename }
func (f *formFile) Type() string { return f.header.Header.Get("Content-Type") }

func (f *formFile) Open() (io.ReadCloser, error) {
	return f.header.Open()
}
