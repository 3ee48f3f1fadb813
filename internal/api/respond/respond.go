// Package respond writes the API's uniform JSON envelope.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/wb-go/wbf/zlog"
)

type response struct {
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to encode response")
	}
}

func OK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, response{Data: data})
}

func Fail(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, response{Error: err.Error()})
}
