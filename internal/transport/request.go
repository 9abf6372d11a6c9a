package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/agentstation/rbxproducts/pkg/errors"
	"github.com/agentstation/rbxproducts/pkg/logging"
)

// maxErrorBody bounds how much of an error response ends up in a message.
const maxErrorBody = 512

// errorBody is the error envelope returned by the catalog API.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Errors  []struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// DecodeResponse decodes a successful JSON response into target. A nil
// target only drains the body. Non-2xx statuses become an
// AuthenticationError for 401/403 and an APIError otherwise.
func DecodeResponse(resp *http.Response, remote string, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return StatusError(resp, remote, body)
	}

	if target == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	return nil
}

// StatusError converts a failed response into a typed error.
func StatusError(resp *http.Response, remote string, body []byte) error {
	message := errorMessage(body)
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	endpoint := ""
	if resp.Request != nil && resp.Request.URL != nil {
		endpoint = resp.Request.Method + " " + resp.Request.URL.Path
	}

	apiErr := &errors.APIError{
		Remote:     remote,
		StatusCode: resp.StatusCode,
		Message:    message,
		Endpoint:   endpoint,
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return errors.NewAuthenticationError(remote, "api_key", message, apiErr)
	}
	return apiErr
}

func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case eb.Message != "":
			return eb.Message
		case len(eb.Errors) > 0 && eb.Errors[0].Message != "":
			return eb.Errors[0].Message
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}
