/*
Package req provides helper functions for HTTP request parsing and data binding.

It decodes JSON request bodies into destination structs, enforcing the content type,
a body size ceiling, and the absence of unknown fields or trailing data.
*/
package req

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"chatyni/internal/pkg/errs"
)

// MaxJSONBodySize defines the maximum accepted JSON body (4 MB, enough for a data-URL avatar).
const MaxJSONBodySize int64 = 4 << 20

// BindJSON attempts to bind the JSON data from the HTTP request body to the destination struct dst.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	return decode(w, r, dst)
}

// BindOptionalJSON behaves like BindJSON but accepts an empty body, leaving dst untouched.
func BindOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	if r.ContentLength == 0 || r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	return BindJSON(w, r, dst)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		if errors.Is(err, io.EOF) {
			return errs.NewError(errs.ErrInvalidParams)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
