package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"slices"
	"strings"

	"go-tube-auth/internal/media"
	"go-tube-auth/pkg/apierror"
)

const maxFormValue = 4 << 10

// multipartForm is a parsed multipart body whose file parts were spooled to
// temp files. Paths not handed to a service must be released.
type multipartForm struct {
	values map[string]string
	files  map[string]string
}

func (f *multipartForm) value(name string) string {
	return f.values[name]
}

// take hands a file over to the caller, who becomes responsible for it.
func (f *multipartForm) take(name string) string {
	path := f.files[name]
	delete(f.files, name)
	return path
}

func (f *multipartForm) release() {
	for name, path := range f.files {
		_ = os.Remove(path)
		delete(f.files, name)
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// readMultipart streams the body, keeping text fields in memory and writing
// the named file fields into tempDir. Unknown file fields are discarded.
func readMultipart(w http.ResponseWriter, r *http.Request, maxSize int64, tempDir string, fileFields ...string) (*multipartForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	reader, err := r.MultipartReader()
	if err != nil {
		return nil, apierror.Validation("invalid multipart body", "")
	}

	form := &multipartForm{values: map[string]string{}, files: map[string]string{}}
	for {
		part, nextErr := reader.NextPart()
		if errors.Is(nextErr, io.EOF) {
			return form, nil
		}
		if nextErr != nil {
			form.release()
			if isPayloadTooLarge(nextErr) {
				return nil, payloadTooLarge()
			}
			return nil, apierror.Validation("invalid multipart stream", "")
		}

		name := part.FormName()
		if part.FileName() == "" {
			raw, readErr := io.ReadAll(io.LimitReader(part, maxFormValue+1))
			_ = part.Close()
			if readErr != nil {
				form.release()
				if isPayloadTooLarge(readErr) {
					return nil, payloadTooLarge()
				}
				return nil, apierror.Validation("invalid multipart stream", "")
			}
			if len(raw) > maxFormValue {
				form.release()
				return nil, apierror.Validation("form field is too long", fmt.Sprintf("%s exceeds %d bytes", name, maxFormValue))
			}
			// Values are kept verbatim; passwords must reach the service unchanged.
			form.values[name] = string(raw)
			continue
		}

		if !slices.Contains(fileFields, name) || form.files[name] != "" {
			_ = part.Close()
			continue
		}

		path, saveErr := media.SaveTemp(tempDir, part.FileName(), func(f *os.File) error {
			_, err := io.Copy(f, part)
			return err
		})
		_ = part.Close()
		if saveErr != nil {
			form.release()
			if isPayloadTooLarge(saveErr) {
				return nil, payloadTooLarge()
			}
			return nil, apierror.Internal(saveErr)
		}
		form.files[name] = path
	}
}

func isPayloadTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

func payloadTooLarge() error {
	return apierror.New("PAYLOAD_TOO_LARGE", "request body exceeds MAX_UPLOAD_SIZE", "MAX_UPLOAD_SIZE", http.StatusRequestEntityTooLarge)
}
