package orchestrator

import "encoding/base64"

// decodeAudio turns a TTS module's base64-encoded PCM chunk into raw bytes
// for the transport. Modules exchange audio as base64 through the
// registry's map[string]any call surface rather than raw []byte, since
// Call/CallStream args and StreamChunk.Data are JSON-shaped by convention.
func decodeAudio(b64 string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(b64)
}
