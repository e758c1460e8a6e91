//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

type guestInfo struct {
	ID          string
	AccessToken string
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func baseURL() string {
	return envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
}

func createGuest(t *testing.T, displayName string) guestInfo {
	t.Helper()

	payload := map[string]string{
		"display_name": fmt.Sprintf("%s-%d", displayName, time.Now().Unix()),
	}
	var out struct {
		UserID      string `json:"user_id"`
		AccessToken string `json:"access_token"`
	}
	status := call(t, http.MethodPost, "/v1/auth/guest", "", payload, &out)
	if status != http.StatusCreated {
		t.Fatalf("unexpected guest response status: %d", status)
	}
	if out.AccessToken == "" {
		t.Fatalf("empty access token in guest response")
	}

	return guestInfo{
		ID:          out.UserID,
		AccessToken: out.AccessToken,
	}
}

// call sends a JSON request and decodes the JSON response into out when out is non-nil.
func call(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL()+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type startedSession struct {
	Session struct {
		SessionID string `json:"sessionId"`
		State     string `json:"state"`
		Total     int    `json:"questionCount"`
		TimeLeft  int    `json:"timeLeft"`
	} `json:"session"`
	Questions []struct {
		ID      string   `json:"id"`
		Options []string `json:"options"`
	} `json:"questions"`
	Source string `json:"source"`
}

func startSession(t *testing.T, token, topicID string, count int) startedSession {
	t.Helper()
	var started startedSession
	body := map[string]any{
		"topic": map[string]string{"id": topicID, "name": topicID, "section": "general_knowledge"},
		"count": count,
	}
	if status := call(t, http.MethodPost, "/v1/sessions", token, body, &started); status != http.StatusCreated {
		t.Fatalf("start session status: %d", status)
	}
	return started
}
