package httptransport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "gestora/pkg/domain-errors"
)

// maxBodyBytes caps request bodies. Record documents are small; anything
// near this limit is abuse, not data.
const maxBodyBytes = 1 << 20

// decodeBody parses a JSON object body. An empty body decodes to an empty
// map so create/update handlers have one shape to deal with.
func decodeBody(r *http.Request) (map[string]any, error) {
	body := make(map[string]any)
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return body, nil
		}
		return nil, dErrors.New(dErrors.CodeValidation, "request body must be a JSON object")
	}
	return body, nil
}

// decodeInto parses a JSON body into a typed request.
func decodeInto[T any](r *http.Request) (T, error) {
	var req T
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return req, dErrors.New(dErrors.CodeValidation, "request body must be a JSON object")
	}
	return req, nil
}
