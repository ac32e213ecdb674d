package httpapi

import (
	"encoding/json"
	"net/http"
)

// envelope is spec §6's uniform response shape: {code:int, data:any,
// msg:string}; code=0 is success. HTTP status stays 200 except for auth
// failures (401) and transport errors.
type envelope struct {
	Code int    `json:"code"`
	Data any    `json:"data,omitempty"`
	Msg  string `json:"msg"`
}

func writeOK(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, envelope{Code: 0, Data: data, Msg: "ok"})
}

func writeErr(w http.ResponseWriter, status, code int, msg string) {
	writeEnvelope(w, status, envelope{Code: code, Msg: msg})
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	writeEnvelope(w, http.StatusUnauthorized, envelope{Code: 401, Msg: msg})
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}
