package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/workroomapp/workroom-server/internal/domain"
)

// decodeJSON reads and decodes a JSON request body using json/v2.
func decodeJSON(r *http.Request, dst any) error {
	return json.UnmarshalRead(r.Body, dst)
}

// sanitizeUser strips credential material before a user leaves the API.
func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clean := *user
	clean.PasswordHash = ""
	return &clean
}
