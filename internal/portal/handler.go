// Package portal exposes the administrative CRUD surface of the club:
// funds and memberships, assemblies, portfolio companies and investments,
// profiles and account linking.
package portal

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

// pathID extracts the UUID that follows the named resource segment, e.g.
// "/api/v1/funds/<id>/members" with resource "funds".
func pathID(path, resource string) (uuid.UUID, bool) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, segment := range segments {
		if segment != resource || i+1 >= len(segments) {
			continue
		}
		id, err := uuid.Parse(segments[i+1])
		if err != nil {
			return uuid.Nil, false
		}
		return id, true
	}
	return uuid.Nil, false
}

// lastSegment returns the final path segment.
func lastSegment(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}
