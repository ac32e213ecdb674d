package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// doRequest sends a non-streaming request to OpenAI.
func (p *Provider) doRequest(ctx context.Context, req *chatRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.chatCompletionsURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Set headers
	p.setHeaders(httpReq, false)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	// Check for errors
	if resp.StatusCode >= 400 {
		return nil, p.parseError(resp)
	}

	// Read response body
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return respBody, nil
}

// doStreamRequest sends a streaming request to OpenAI.
func (p *Provider) doStreamRequest(ctx context.Context, req *chatRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.chatCompletionsURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Set headers for streaming
	p.setHeaders(httpReq, true)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	// Check for errors before returning stream
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, p.parseError(resp)
	}

	return resp.Body, nil
}

// setHeaders sets the required OpenAI API headers.
func (p *Provider) setHeaders(req *http.Request, stream bool) {
	req.Header.Set("Content-Type", "application/json")

	headerValue := p.auth.Value
	if headerValue == "" {
		headerValue = p.auth.Prefix + p.apiKey
	}
	authHeader := p.auth.Header
	if authHeader == "" {
		authHeader = "Authorization"
	}
	req.Header.Set(authHeader, headerValue)

	for key, value := range p.extraHeaders {
		req.Header.Set(key, value)
	}

	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
}

func (p *Provider) chatCompletionsURL() string {
	return strings.TrimRight(p.baseURL, "/") + p.chatCompletionsPath
}
