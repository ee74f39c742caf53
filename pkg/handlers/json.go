package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

var errEmptyBody = errors.New("empty body")

// decodeJSON attempts to decode the request body into the provided destination.
// The body is limited to 1MB. Unknown fields cause an error so clients cannot
// send unexpected data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return errEmptyBody
	}
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if dec.More() {
		return errors.New("extra data in request body")
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("encode response")
	}
}

// respondJSONError writes {"error": msg} with the given status.
func respondJSONError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
