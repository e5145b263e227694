package storage

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

const maxImageFormMemory = 10 << 20

// Image is an uploaded file taken from a multipart form.
type Image struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// IsMultipartForm reports whether r carries a multipart/form-data body.
func IsMultipartForm(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.EqualFold(mediaType, "multipart/form-data")
}

// ReadImageForm parses the multipart form of r and returns the file under
// field, or nil when the field is absent or empty.
func ReadImageForm(r *http.Request, field string) (*Image, error) {
	if err := r.ParseMultipartForm(maxImageFormMemory); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("form file %s: %w", field, err)
	}
	if header.Size == 0 {
		_ = file.Close()
		return nil, nil
	}

	// multipart keeps small files in memory and bigger ones in temp files
	// which are removed together with the form at the end of the request
	return &Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, nil
}
