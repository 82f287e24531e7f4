package mail

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func makeRecipients(n int) []Recipient {
	recipients := make([]Recipient, n)
	for i := range recipients {
		recipients[i] = Recipient{Email: fmt.Sprintf("user%d@example.com", i)}
	}
	return recipients
}

func TestValidate_NoRecipients(t *testing.T) {
	_, err := Content{Subject: "s", Template: "b"}.Validate()
	if !errors.Is(err, ErrNoRecipients) {
		t.Errorf("Validate() = %v, want ErrNoRecipients", err)
	}
}

func TestValidate_RecipientLimit(t *testing.T) {
	over := Content{Recipients: makeRecipients(MaxRecipients + 1)}
	if _, err := over.Validate(); !errors.Is(err, ErrTooManyRecipients) {
		t.Errorf("Validate() with %d recipients = %v, want ErrTooManyRecipients", MaxRecipients+1, err)
	}

	atLimit := Content{Recipients: makeRecipients(MaxRecipients)}
	if _, err := atLimit.Validate(); err != nil {
		t.Errorf("Validate() with %d recipients = %v, want nil", MaxRecipients, err)
	}
}

func TestValidate_DedupLaterWins(t *testing.T) {
	content := Content{
		Recipients: []Recipient{
			{Email: "a@example.com", Context: map[string]any{"name": "first"}},
			{Email: "b@example.com", Context: map[string]any{"name": "other"}},
			{Email: "a@example.com", Context: map[string]any{"name": "second"}},
		},
	}

	validated, err := content.Validate()
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if len(validated.Recipients) != 2 {
		t.Fatalf("expected 2 recipients after dedup, got %d", len(validated.Recipients))
	}

	// The duplicate keeps its first-occurrence position but the later
	// recipient's context wins.
	if validated.Recipients[0].Email != "a@example.com" {
		t.Errorf("expected a@example.com first, got %s", validated.Recipients[0].Email)
	}
	if got := validated.Recipients[0].Context["name"]; got != "second" {
		t.Errorf("expected later context to win, got %v", got)
	}
	if validated.Recipients[1].Email != "b@example.com" {
		t.Errorf("expected b@example.com second, got %s", validated.Recipients[1].Email)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	content := Content{
		Recipients: []Recipient{
			{Email: "a@example.com", Context: map[string]any{"n": 1}},
			{Email: "a@example.com", Context: map[string]any{"n": 2}},
			{Email: "b@example.com"},
		},
	}

	once, err := content.Validate()
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	twice, err := once.Validate()
	if err != nil {
		t.Fatalf("second Validate() error = %v", err)
	}

	if len(once.Recipients) != len(twice.Recipients) {
		t.Fatalf("recipient count changed: %d vs %d", len(once.Recipients), len(twice.Recipients))
	}
	for i := range once.Recipients {
		if once.Recipients[i].Email != twice.Recipients[i].Email {
			t.Errorf("recipient %d changed: %s vs %s", i, once.Recipients[i].Email, twice.Recipients[i].Email)
		}
	}
}

func TestValidate_TemplatePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "receipt.html")
	if err := os.WriteFile(path, []byte("<p>{{.name}}</p>"), 0o600); err != nil {
		t.Fatal(err)
	}

	content := Content{
		Recipients:   makeRecipients(1),
		TemplatePath: path,
	}

	validated, err := content.Validate()
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if validated.Template != "<p>{{.name}}</p>" {
		t.Errorf("template not resolved, got %q", validated.Template)
	}
	if validated.TemplatePath != "" {
		t.Error("TemplatePath should be cleared once resolved")
	}
}

func TestValidate_TemplateNotFound(t *testing.T) {
	content := Content{
		Recipients:   makeRecipients(1),
		TemplatePath: filepath.Join(t.TempDir(), "missing.html"),
	}

	if _, err := content.Validate(); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Validate() = %v, want ErrTemplateNotFound", err)
	}
}

func TestAttachment_ReadRewinds(t *testing.T) {
	att := BlobAttachment("report.csv", []byte("a,b,c"))

	first, err := att.read()
	if err != nil {
		t.Fatalf("first read error = %v", err)
	}
	// A second read must start from the beginning, not from the exhausted
	// stream position.
	second, err := att.read()
	if err != nil {
		t.Fatalf("second read error = %v", err)
	}

	if string(first) != "a,b,c" || string(second) != "a,b,c" {
		t.Errorf("reads differ: %q vs %q", first, second)
	}
}

func TestAttachment_PathUnreadable(t *testing.T) {
	att := FileAttachment(filepath.Join(t.TempDir(), "gone.pdf"))
	if _, err := att.read(); !errors.Is(err, ErrAttachmentUnreadable) {
		t.Errorf("read() = %v, want ErrAttachmentUnreadable", err)
	}
}
