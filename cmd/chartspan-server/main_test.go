package main

import "testing"

func TestServeCmd(t *testing.T) {
	cmd := serveCmd()
	if cmd.Use != "serve" {
		t.Errorf("expected use serve, got %s", cmd.Use)
	}
	if cmd.RunE == nil {
		t.Error("expected RunE to be set")
	}
}

func TestCheckConfigCmdFailsWithoutDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cmd := checkConfigCmd()
	if err := cmd.RunE(cmd, nil); err == nil {
		t.Error("expected error without DATABASE_URL")
	}
}
