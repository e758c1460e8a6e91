//go:build integration
// +build integration

package integration

import (
	"net/http"
	"testing"
)

func TestExamFlow(t *testing.T) {
	guest := createGuest(t, "cadet")

	var before struct {
		Used int `json:"used"`
	}
	if status := call(t, http.MethodGet, "/v1/quota", guest.AccessToken, nil, &before); status != http.StatusOK {
		t.Fatalf("quota status: %d", status)
	}

	started := startSession(t, guest.AccessToken, "polity", 5)
	if started.Session.State != "in_progress" {
		t.Fatalf("unexpected state %q", started.Session.State)
	}
	if len(started.Questions) == 0 {
		t.Fatalf("no questions supplied (source %s)", started.Source)
	}
	for _, q := range started.Questions {
		if len(q.Options) != 4 {
			t.Fatalf("question %s has %d options", q.ID, len(q.Options))
		}
	}

	base := "/v1/sessions/" + started.Session.SessionID
	if status := call(t, http.MethodPost, base+"/select", guest.AccessToken, map[string]int{"option": 0}, nil); status != http.StatusOK {
		t.Fatalf("select status: %d", status)
	}
	if status := call(t, http.MethodPost, base+"/select", guest.AccessToken, map[string]int{"option": 9}, nil); status != http.StatusBadRequest {
		t.Fatalf("invalid option status: %d", status)
	}
	if status := call(t, http.MethodPost, base+"/submit", guest.AccessToken, nil, nil); status != http.StatusOK {
		t.Fatalf("submit status: %d", status)
	}

	var result struct {
		Score struct {
			Correct int    `json:"correctCount"`
			Wrong   int    `json:"wrongCount"`
			Skipped int    `json:"skippedCount"`
			Display string `json:"displayScore"`
		} `json:"score"`
		Questions []struct {
			ID string `json:"id"`
		} `json:"questions"`
	}
	if status := call(t, http.MethodPost, base+"/submit/confirm", guest.AccessToken, nil, &result); status != http.StatusOK {
		t.Fatalf("confirm status: %d", status)
	}
	total := result.Score.Correct + result.Score.Wrong + result.Score.Skipped
	if total != len(started.Questions) {
		t.Fatalf("score covers %d of %d questions", total, len(started.Questions))
	}
	if result.Score.Correct+result.Score.Wrong != 1 {
		t.Fatalf("expected exactly one attempted question, got %+v", result.Score)
	}

	if status := call(t, http.MethodGet, base+"/result", guest.AccessToken, nil, nil); status != http.StatusOK {
		t.Fatalf("result status: %d", status)
	}

	var brief struct {
		Brief struct {
			CorePrinciple string `json:"corePrinciple"`
		} `json:"brief"`
	}
	path := base + "/questions/" + result.Questions[0].ID + "/brief"
	if status := call(t, http.MethodGet, path, guest.AccessToken, nil, &brief); status != http.StatusOK {
		t.Fatalf("brief status: %d", status)
	}
	if brief.Brief.CorePrinciple == "" {
		t.Fatalf("brief has no core principle")
	}

	var attempts struct {
		Attempts []struct {
			SessionID string `json:"session_id"`
		} `json:"attempts"`
	}
	if status := call(t, http.MethodGet, "/v1/attempts", guest.AccessToken, nil, &attempts); status != http.StatusOK {
		t.Fatalf("attempts status: %d", status)
	}
	found := false
	for _, a := range attempts.Attempts {
		found = found || a.SessionID == started.Session.SessionID
	}
	if !found {
		t.Fatalf("finished session missing from attempt history")
	}

	var board struct {
		Entries []struct {
			UserID string `json:"user_id"`
		} `json:"entries"`
	}
	if status := call(t, http.MethodGet, "/v1/standings/polity?window=daily&limit=100", guest.AccessToken, nil, &board); status != http.StatusOK {
		t.Fatalf("standings status: %d", status)
	}
	listed := false
	for _, e := range board.Entries {
		listed = listed || e.UserID == guest.ID
	}
	if !listed {
		t.Fatalf("candidate missing from daily standings")
	}

	var after struct {
		Used int `json:"used"`
	}
	call(t, http.MethodGet, "/v1/quota", guest.AccessToken, nil, &after)
	if after.Used != before.Used+1 {
		t.Fatalf("quota used %d -> %d, expected one unit", before.Used, after.Used)
	}
}

func TestSessionsAreNotShared(t *testing.T) {
	owner := createGuest(t, "owner")
	other := createGuest(t, "other")

	started := startSession(t, owner.AccessToken, "mod-gandhi", 3)
	path := "/v1/sessions/" + started.Session.SessionID

	if status := call(t, http.MethodGet, path, other.AccessToken, nil, nil); status != http.StatusNotFound {
		t.Fatalf("foreign session status: %d", status)
	}
	if status := call(t, http.MethodDelete, path, owner.AccessToken, nil, nil); status != http.StatusNoContent {
		t.Fatalf("discard status: %d", status)
	}
	if status := call(t, http.MethodGet, path, owner.AccessToken, nil, nil); status != http.StatusNotFound {
		t.Fatalf("discarded session status: %d", status)
	}
}
