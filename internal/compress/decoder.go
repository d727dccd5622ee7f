package compress

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const base64Marker = ";base64,"

// FileToBase64 reads the whole file and returns it as a data URL:
// "data:<mime>;base64,<payload>".
func FileToBase64(ctx context.Context, f File) (string, error) {
	if f == nil {
		return "", newError(KindMissingInput, "read", ErrMissingInput)
	}

	data, err := readFile(ctx, f)
	if err != nil {
		return "", err
	}

	return buildDataURL(fileMimeType(f, data), data), nil
}

func readFile(ctx context.Context, f File) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(KindRead, "read", err)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, newError(KindRead, "open", fmt.Errorf("open %s: %w", f.Name(), err))
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, newError(KindRead, "read", fmt.Errorf("read %s: %w", f.Name(), err))
	}

	return data, nil
}

// fileMimeType prefers the declared type and falls back to sniffing.
func fileMimeType(f File, data []byte) string {
	if t := strings.TrimSpace(f.Type()); t != "" {
		return t
	}

	mt, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return strings.TrimSpace(mt)
}

func buildDataURL(mime string, data []byte) string {
	var b strings.Builder
	b.Grow(len("data:") + len(mime) + len(base64Marker) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(base64Marker)
	b.WriteString(base64.StdEncoding.EncodeToString(data))

	return b.String()
}

// parseDataURL splits "data:[mime];base64,[payload]" and decodes the payload.
func parseDataURL(dataURL string) (mime string, payload []byte, err error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", nil, errors.New("invalid data url: missing data: prefix")
	}

	head, b64, ok := strings.Cut(strings.TrimPrefix(dataURL, "data:"), base64Marker)
	if !ok {
		return "", nil, errors.New("invalid data url: expected 'data:[mediatype];base64,[data]'")
	}

	payload, err = base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", nil, fmt.Errorf("invalid data url payload: %w", err)
	}

	return head, payload, nil
}

// MimeTypeOf returns the media type declared by a data URL.
func MimeTypeOf(dataURL string) string {
	head, _, ok := strings.Cut(strings.TrimPrefix(dataURL, "data:"), base64Marker)
	if !ok {
		return ""
	}
	return head
}
