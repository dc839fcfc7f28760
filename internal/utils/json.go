package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes bounds request bodies; a 19x19 symmetries request is well below it.
const maxBodyBytes = 1 << 20

func DecodeJSONRequest(r *http.Request, dst interface{}) error {
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if err == io.EOF {
			return fmt.Errorf("empty request body")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
