package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestAppListsCommands(t *testing.T) {
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out

	if err := app.Run([]string{"gradingdb", "--help"}); err != nil {
		t.Fatalf("help failed: %v", err)
	}

	for _, name := range []string{"migrate", "import-roster", "create-exam", "list-exams", "finalize-exam", "create-grader"} {
		if !strings.Contains(out.String(), name) {
			t.Errorf("Expected help to list %q", name)
		}
	}
}

func TestFinalizeRequiresID(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}

	if err := app.Run([]string{"gradingdb", "finalize-exam"}); err == nil {
		t.Error("Expected missing --id to fail")
	}
}
