package usecase

import (
	"testing"

	"github.com/polkiloo/fulfillrelay/internal/config"
)

func TestNewDevMode(t *testing.T) {
	cases := []struct {
		name     string
		approval config.ApprovalConfig
		want     DevMode
	}{
		{"prod", config.ApprovalConfig{Environment: "prod"}, DevMode{}},
		{"dev environment", config.ApprovalConfig{Environment: "dev"}, DevMode{Enabled: true, Repo: "services"}},
		{"pr stage", config.ApprovalConfig{Environment: "prod", Stage: "-pr-42"}, DevMode{Enabled: true, Repo: "services", PRNumber: 42}},
		{"explicit pr wins", config.ApprovalConfig{Environment: "dev", Stage: "-pr-42", DevPRNumber: 7}, DevMode{Enabled: true, Repo: "services", PRNumber: 7}},
		{"other stage", config.ApprovalConfig{Environment: "prod", Stage: "staging"}, DevMode{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewDevMode(&config.Config{Approval: tc.approval}); got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestDevModeAllows(t *testing.T) {
	off := DevMode{}
	if !off.Allows("anything", 1) {
		t.Fatal("disabled dev mode must allow everything")
	}

	repoOnly := DevMode{Enabled: true, Repo: "services"}
	if !repoOnly.Allows("services", 5) || repoOnly.Allows("website", 5) {
		t.Fatal("unexpected repository filtering")
	}

	pinned := DevMode{Enabled: true, Repo: "services", PRNumber: 42}
	if !pinned.Allows("services", 42) || pinned.Allows("services", 41) {
		t.Fatal("unexpected pull request filtering")
	}
}
