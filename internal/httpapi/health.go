package httpapi

import (
	"encoding/json"
	"net/http"
)

// handleHealth implements spec §6's readiness probe: plain {status:"ok"},
// not the {code,data,msg} envelope the rest of the surface uses.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
