// Package httpx holds the small request/response helpers shared by handlers.
package httpx

import (
	"encoding/json"
	"log"
	"net/http"

	"classquiz/internal/apperr"
)

type errorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// Error writes err as {"error": {"kind", "message"}}. Internal causes are
// logged, never sent.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.From(err)
	if e.Kind == apperr.KindInternal {
		log.Printf("[%s] %s %s: %v", RequestID(r.Context()), r.Method, r.URL.Path, err)
	}
	JSON(w, e.Kind.Status(), map[string]errorBody{
		"error": {Kind: e.Kind, Message: e.Message},
	})
}
