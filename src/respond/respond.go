package respond

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// Error is the body of every non-2xx response.
type Error struct {
	Detail string `json:"detail"`
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		log.WithError(err).Error("Error encoding response")
	}
}

func Detail(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, Error{Detail: detail})
}

// Unauthorized sends a 401 with the bearer challenge header.
func Unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	Detail(w, http.StatusUnauthorized, detail)
}
