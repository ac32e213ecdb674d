package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_ReturnsOK(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/aitoys/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterLoginMe_RoundTrips(t *testing.T) {
	srv, _ := newTestServer(t)

	_, reg := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "", registerRequest{
		LoginName: "alice", Password: "s3cret", DisplayName: "Alice",
	})
	require.Equal(t, float64(0), reg["code"])
	data := reg["data"].(map[string]any)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)

	_, login := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", loginRequest{
		LoginName: "alice", Password: "s3cret",
	})
	require.Equal(t, float64(0), login["code"])

	resp, me := doJSON(t, http.MethodGet, srv.URL+"/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	meData := me["data"].(map[string]any)
	assert.Equal(t, "alice", meData["login_name"])
}

func TestLogin_RejectsWrongPassword(t *testing.T) {
	srv, _ := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/auth/register", "", registerRequest{LoginName: "bob", Password: "correct"})

	_, login := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", loginRequest{LoginName: "bob", Password: "wrong"})
	assert.Equal(t, float64(401), login["code"])
}

func TestMe_RejectsMissingToken(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
