package utils

import (
	"fmt"
	"io"
	"net/http"
)

// ValidateResponse checks the HTTP response code and extracts a short error
// message from the body on failure. The body is left unread on success.
func ValidateResponse(resp *http.Response, maxBodyLen int64) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyLen))
	if len(b) > 0 {
		return fmt.Errorf("wrong response code %d: %s", resp.StatusCode, string(b))
	}
	return fmt.Errorf("wrong response code %d", resp.StatusCode)
}
