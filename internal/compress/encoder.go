package compress

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	contentTypeJPEG = "image/jpeg"
	contentTypePNG  = "image/png"
	contentTypeGIF  = "image/gif"
	contentTypeBMP  = "image/bmp"
	contentTypeTIFF = "image/tiff"
)

// Blob is an encoded image with its mime type.
type Blob struct {
	Data []byte
	Type string
}

// Size returns the byte length of the blob.
func (b *Blob) Size() int {
	return len(b.Data)
}

// Result is what Compress resolves with: a data URL for ResultBase64 or a
// blob for ResultBlob.
type Result struct {
	Format  ResultFormat
	DataURL string
	Blob    *Blob
	Width   int
	Height  int
}

// MimeType returns the mime type of the encoded output.
func (r *Result) MimeType() string {
	if r.Blob != nil {
		return r.Blob.Type
	}
	return MimeTypeOf(r.DataURL)
}

// Bytes returns the encoded image bytes regardless of the result format.
func (r *Result) Bytes() ([]byte, error) {
	if r.Blob != nil {
		return r.Blob.Data, nil
	}
	_, payload, err := parseDataURL(r.DataURL)
	return payload, err
}

// resolveFormat maps a mime type to an imaging format. Unsupported types fall
// back to PNG, matching what a canvas does for types it cannot encode.
func resolveFormat(mime string) (imaging.Format, string) {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case contentTypeJPEG, "image/jpg":
		return imaging.JPEG, contentTypeJPEG
	case contentTypeGIF:
		return imaging.GIF, contentTypeGIF
	case contentTypeBMP:
		return imaging.BMP, contentTypeBMP
	case contentTypeTIFF:
		return imaging.TIFF, contentTypeTIFF
	default:
		return imaging.PNG, contentTypePNG
	}
}

// jpegQuality turns a 0.0..1.0 ratio into the 1..100 range of the JPEG encoder.
func jpegQuality(ratio float64) int {
	q := int(math.Round(ratio * 100))
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

// encodeBytes encodes img as mime at the given quality ratio and returns the
// bytes together with the mime type actually produced.
func encodeBytes(img image.Image, mime string, quality float64) ([]byte, string, error) {
	format, actual := resolveFormat(mime)

	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, img, format, imaging.JPEGQuality(jpegQuality(quality))); err != nil {
		return nil, "", newError(KindEncode, "encode", fmt.Errorf("failed to encode %s: %w", actual, err))
	}

	return buf.Bytes(), actual, nil
}

// EncodeDataURL serializes img as a base64 data URL. quality is a ratio in
// 0.0..1.0 and only affects lossy formats.
func EncodeDataURL(img image.Image, mime string, quality float64) (string, error) {
	data, actual, err := encodeBytes(img, mime, quality)
	if err != nil {
		return "", err
	}

	return buildDataURL(actual, data), nil
}

// BlobExporter turns a surface into a binary blob.
type BlobExporter interface {
	ExportBlob(img image.Image, mime string, quality float64) (*Blob, error)
}

// NewBlobExporter selects the blob implementation once, at construction.
// When native is false the exporter goes through the data URL path.
func NewBlobExporter(native bool) BlobExporter {
	if native {
		return nativeBlobExporter{}
	}
	return dataURLBlobExporter{}
}

type nativeBlobExporter struct{}

func (nativeBlobExporter) ExportBlob(img image.Image, mime string, quality float64) (*Blob, error) {
	data, actual, err := encodeBytes(img, mime, quality)
	if err != nil {
		return nil, err
	}
	return &Blob{Data: data, Type: actual}, nil
}

// dataURLBlobExporter rebuilds the blob from the base64 data URL, for hosts
// that can only export data URLs.
type dataURLBlobExporter struct{}

func (dataURLBlobExporter) ExportBlob(img image.Image, mime string, quality float64) (*Blob, error) {
	dataURL, err := EncodeDataURL(img, mime, quality)
	if err != nil {
		return nil, err
	}

	return blobFromDataURL(dataURL, mime)
}

// blobFromDataURL decodes the payload after the comma into a fixed-size
// buffer. The blob type is the requested mime, or image/png if none.
func blobFromDataURL(dataURL, mime string) (*Blob, error) {
	_, b64, ok := strings.Cut(dataURL, ",")
	if !ok {
		return nil, newError(KindEncode, "blob", fmt.Errorf("data url has no payload"))
	}

	bin, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, newError(KindEncode, "blob", fmt.Errorf("failed to decode data url: %w", err))
	}

	arr := make([]byte, len(bin))
	copy(arr, bin)

	if mime == "" {
		mime = contentTypePNG
	}

	return &Blob{Data: arr, Type: mime}, nil
}

// Encoder serializes surfaces into the requested result format.
type Encoder struct {
	blobs BlobExporter
}

// NewEncoder creates an Encoder using the given blob exporter.
func NewEncoder(blobs BlobExporter) *Encoder {
	return &Encoder{blobs: blobs}
}

// Encode produces a data URL (default) or a blob from the surface.
func (e *Encoder) Encode(s *Surface, opts Options) (*Result, error) {
	res := &Result{Format: opts.Result, Width: s.Width, Height: s.Height}

	if opts.Result == ResultBlob {
		blob, err := e.blobs.ExportBlob(s.Image, opts.MimeType, opts.QualityRatio())
		if err != nil {
			return nil, err
		}
		res.Blob = blob
		return res, nil
	}

	dataURL, err := EncodeDataURL(s.Image, opts.MimeType, opts.QualityRatio())
	if err != nil {
		return nil, err
	}
	res.Format = ResultBase64
	res.DataURL = dataURL

	return res, nil
}
