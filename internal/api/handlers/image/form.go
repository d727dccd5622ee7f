package image

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/image-compressor/internal/compress"
)

// maxUploadMemory is how much of a multipart body is kept in memory; the
// rest spills to temporary files.
const maxUploadMemory = 32 << 20

// formFile returns the uploaded "image" part, or nil if the form has none.
func formFile(c *ginext.Context) (compress.File, error) {
	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, fmt.Errorf("failed to parse the form: %w", err)
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve the file: %w", err)
	}
	_ = file.Close()

	return compress.NewFormFile(header), nil
}

// parseOverrides reads the compression options from the form. Absent fields
// keep the configured defaults.
func parseOverrides(c *ginext.Context) (compress.Overrides, error) {
	var ov compress.Overrides

	if v := c.PostForm("result"); v != "" {
		r := compress.ResultFormat(v)
		ov.Result = &r
	}

	if v := c.PostForm("fix"); v != "" {
		fix, err := strconv.ParseBool(v)
		if err != nil {
			return ov, fmt.Errorf("invalid fix: %w", err)
		}
		ov.Fix = &fix
	}

	ints := []struct {
		field string
		dst   **int
	}{
		{"max_width", &ov.MaxWidth},
		{"max_height", &ov.MaxHeight},
		{"quality", &ov.Quality},
	}
	for _, f := range ints {
		v := c.PostForm(f.field)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return ov, fmt.Errorf("invalid %s: %w", f.field, err)
		}
		*f.dst = &n
	}

	return ov, nil
}
