package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"beelogical.com/chat-portal/internal/utils"
)

const (
	askPath   = "/Chat/ask"
	loginPath = "/login"
)

// Asker sends one query on behalf of a user and returns the answer text.
// An empty answer with a nil error means the backend replied without one.
type Asker interface {
	Ask(ctx context.Context, userID, query string) (string, error)
}

// BackendClient talks to the remote chat backend.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewBackendClient returns a client for baseURL. A zero timeout means calls
// run until the backend answers or the connection fails.
func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	return &BackendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *BackendClient) BaseURL() string {
	return c.baseURL
}

func (c *BackendClient) LoginURL() string {
	return utils.BuildURL(c.baseURL, loginPath, nil)
}

// Ask posts the query form-encoded to /Chat/ask?user_id=<userID> and returns
// the "answer" field of the JSON reply. The status code is not inspected:
// any JSON object body is read the same way.
func (c *BackendClient) Ask(ctx context.Context, userID, query string) (string, error) {
	endpoint := utils.BuildURL(c.baseURL, askPath, utils.UserQuery(userID))
	form := url.Values{"query": {query}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "build chat request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "send chat request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read chat response")
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", errors.Wrapf(err, "decode chat response (status %d)", resp.StatusCode)
	}
	if payload == nil {
		return "", errors.Errorf("chat response is null (status %d)", resp.StatusCode)
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return "", nil
	}
	return answerText(obj["answer"]), nil
}

// answerText turns the answer field into display text. Absent and falsy
// values (null, "", false, 0) count as no answer.
func answerText(v any) string {
	switch a := v.(type) {
	case nil:
		return ""
	case string:
		return a
	case bool:
		if !a {
			return ""
		}
		return "true"
	case float64:
		if a == 0 {
			return ""
		}
		return fmt.Sprint(a)
	default:
		b, err := json.Marshal(a)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
