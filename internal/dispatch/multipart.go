// internal/dispatch/multipart.go
// Multipart calls carry the method name as the first form field. The
// remaining parts stay on the wire until the call is routed and
// authenticated; only then are file parts checked and stored, with the
// handler seeing the stored file's reference in place of the file content.

package dispatch

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/carpediem-app/carpediem-backend/internal/apperr"
)

const maxFieldValueSize = 64 * 1024

// openMultipartCall reads the leading method field and defers the rest of
// the form behind an argumentsFunc.
func (d *Dispatcher) openMultipartCall(r *http.Request) (string, argumentsFunc, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return "", nil, apperr.New(apperr.KindInvalidRequest, "Invalid request")
	}

	first, err := reader.NextPart()
	if err != nil || first.FormName() != "method" || first.FileName() != "" {
		return "", nil, apperr.New(apperr.KindInvalidRequest, "Multipart data must starts with field 'method'")
	}
	method, err := readFieldValue(first)
	if err != nil || method == "" {
		return "", nil, apperr.New(apperr.KindInvalidRequest, "Multipart data must starts with field 'method'")
	}

	arguments := func() ([]byte, error) {
		return d.readMultipartArguments(r, reader, method)
	}
	return method, arguments, nil
}

// readMultipartArguments streams the remaining form parts, stores any file
// parts and flattens the fields into a JSON document the typed request
// structs can decode.
func (d *Dispatcher) readMultipartArguments(r *http.Request, reader *multipart.Reader, method string) ([]byte, error) {
	fields := map[string]json.RawMessage{
		"method": mustJSONString(method),
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.New(apperr.KindInvalidRequest, "Invalid request")
		}

		if part.FileName() == "" {
			value, err := readFieldValue(part)
			if err != nil {
				return nil, apperr.New(apperr.KindInvalidRequest, "Invalid request")
			}
			fields[part.FormName()] = fieldToJSON(value)
			continue
		}

		ref, err := d.storeFilePart(r, part)
		if err != nil {
			return nil, err
		}
		fields[part.FormName()] = mustJSONString(ref)
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidRequest, "Invalid request")
	}
	return body, nil
}

// storeFilePart validates a file against the declared size and stores it,
// returning the stored reference.
func (d *Dispatcher) storeFilePart(r *http.Request, part *multipart.Part) (string, error) {
	declaredSize := r.ContentLength
	if header := part.Header.Get("Content-Length"); header != "" {
		if parsed, err := strconv.ParseInt(header, 10, 64); err == nil {
			declaredSize = parsed
		}
	}

	if err := d.uploads.CheckFile(part.FileName(), declaredSize); err != nil {
		return "", err
	}
	return d.uploads.SaveStream(r.Context(), part.FileName(), part)
}

func readFieldValue(part *multipart.Part) (string, error) {
	value, err := io.ReadAll(io.LimitReader(part, maxFieldValueSize))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(value)), nil
}

// fieldToJSON keeps structured field values (numbers, coordinate arrays)
// structured, and treats everything else as a plain string.
func fieldToJSON(value string) json.RawMessage {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) > 0 {
		switch trimmed[0] {
		case '{', '[', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			if json.Valid([]byte(trimmed)) {
				return json.RawMessage(trimmed)
			}
		}
	}
	return mustJSONString(value)
}

func mustJSONString(value string) json.RawMessage {
	encoded, _ := json.Marshal(value)
	return json.RawMessage(encoded)
}
