// Package httputil contains shared HTTP plumbing for services.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/coachloop/backend/libs/golog"
)

// JSONContentType is the value used for the Content-Type header on JSON responses.
const JSONContentType = "application/json"

// JSONResponse writes the provided object encoded as JSON with an appropriate
// Content-Type header.
func JSONResponse(w http.ResponseWriter, statusCode int, res interface{}) {
	w.Header().Set("Content-Type", JSONContentType)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		golog.LogDepthf(1, golog.ERR, "%s", err)
	}
}
