package models

import "testing"

func TestExecutionContextString(t *testing.T) {
	if Interactive.String() != "interactive" {
		t.Errorf("Interactive.String() = %q", Interactive.String())
	}
	if Background.String() != "background" {
		t.Errorf("Background.String() = %q", Background.String())
	}
}

func TestSpecialistString(t *testing.T) {
	cases := map[Specialist]string{
		SpecialistToolCaller: "tool_caller",
		SpecialistReasoner:   "reasoner",
		SpecialistQuick:      "quick",
		SpecialistCoder:      "coder",
		Specialist(99):       "unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("Specialist(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestToolLocationString(t *testing.T) {
	if LocationServer.String() != "server" {
		t.Errorf("LocationServer.String() = %q", LocationServer.String())
	}
	if LocationClient.String() != "client" {
		t.Errorf("LocationClient.String() = %q", LocationClient.String())
	}
}
