package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
)

func registerUser(t *testing.T, baseURL, loginName string) string {
	t.Helper()
	_, reg := doJSON(t, http.MethodPost, baseURL+"/auth/register", "", registerRequest{
		LoginName: loginName, Password: "s3cret", DisplayName: loginName,
	})
	data, ok := reg["data"].(map[string]any)
	if !ok {
		t.Fatalf("register response missing data: %+v", reg)
	}
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatalf("register response missing token: %+v", reg)
	}
	return token
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}
