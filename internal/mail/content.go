// Package mail provides batch templated email composition and delivery.
package mail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MaxRecipients is the largest batch a single dispatch accepts.
const MaxRecipients = 5000

// Validation errors. These are detected before any transport I/O and fail
// the whole call; no partial batch state is ever produced.
var (
	// ErrNoRecipients indicates an empty recipient list.
	ErrNoRecipients = errors.New("a minimum of one recipient is required")
	// ErrTooManyRecipients indicates the batch exceeds MaxRecipients.
	ErrTooManyRecipients = errors.New("too many recipients in batch")
	// ErrTemplateNotFound indicates a template file path could not be read.
	ErrTemplateNotFound = errors.New("template file not found")
	// ErrAttachmentUnreadable indicates an attachment could not be
	// materialized for a recipient. Recorded per recipient, never fatal
	// to the batch.
	ErrAttachmentUnreadable = errors.New("attachment unreadable")
)

// Attachment is either a reference to a file path resolved at send time, or
// a named in-memory blob. An attachment belongs to the Content or Recipient
// that declares it; it is never shared across dispatch calls.
type Attachment struct {
	Name string
	// Path names a file read from disk at send time.
	Path string
	// Content holds in-memory data. It is rewound to the start before
	// every read, so the same attachment can serve every recipient in a
	// batch.
	Content io.ReadSeeker
}

// FileAttachment references a file on disk, named after its base name.
func FileAttachment(path string) Attachment {
	return Attachment{Name: filepath.Base(path), Path: path}
}

// BlobAttachment wraps an in-memory byte blob.
func BlobAttachment(name string, data []byte) Attachment {
	return Attachment{Name: name, Content: bytes.NewReader(data)}
}

// read materializes the attachment bytes for one recipient's message.
func (a Attachment) read() ([]byte, error) {
	if a.Path != "" {
		data, err := os.ReadFile(a.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrAttachmentUnreadable, a.Path, err)
		}
		return data, nil
	}

	if a.Content == nil {
		return nil, fmt.Errorf("%w: %s: no content", ErrAttachmentUnreadable, a.Name)
	}

	// A previous send in the same batch may have consumed the stream;
	// rewind so every recipient gets the full attachment.
	if _, err := a.Content.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAttachmentUnreadable, a.Name, err)
	}
	data, err := io.ReadAll(a.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAttachmentUnreadable, a.Name, err)
	}
	return data, nil
}

// Recipient is one destination of a batch email.
type Recipient struct {
	Email string
	// Context supplies per-recipient template substitutions.
	Context map[string]any
	// Attachments specific to this recipient, combined with the batch-level ones.
	Attachments []Attachment
}

// Content is one batch-send request: a shared subject/body template
// personalized per recipient.
type Content struct {
	From       string
	Recipients []Recipient
	// Subject is a template string rendered per recipient.
	Subject string
	// Template is the HTML body template. When TemplatePath is set instead,
	// the file is read once during Validate and becomes the Template.
	Template     string
	TemplatePath string
	// Attachments shared by every recipient in the batch.
	Attachments []Attachment
}

// Validate checks batch limits, de-duplicates recipients and resolves a
// file-based template. De-duplication is silent: when two recipients share
// an email address the later one wins, keeping the position of the first
// occurrence. Validate is idempotent once the template file has been
// resolved.
func (c Content) Validate() (Content, error) {
	if len(c.Recipients) == 0 {
		return Content{}, ErrNoRecipients
	}
	if len(c.Recipients) > MaxRecipients {
		return Content{}, fmt.Errorf("%w: %d exceeds the maximum of %d", ErrTooManyRecipients, len(c.Recipients), MaxRecipients)
	}

	index := make(map[string]int, len(c.Recipients))
	deduped := make([]Recipient, 0, len(c.Recipients))
	for _, r := range c.Recipients {
		if i, seen := index[r.Email]; seen {
			deduped[i] = r
			continue
		}
		index[r.Email] = len(deduped)
		deduped = append(deduped, r)
	}
	c.Recipients = deduped

	if c.TemplatePath != "" {
		data, err := os.ReadFile(c.TemplatePath)
		if err != nil {
			return Content{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, c.TemplatePath)
		}
		c.Template = string(data)
		c.TemplatePath = ""
	}

	return c, nil
}
