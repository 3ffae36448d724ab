package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileDropNotifier writes each message as a timestamped text file in a
// directory, for deployments without a local MTA.
type FileDropNotifier struct {
	dir string
}

// NewFileDropNotifier returns a Notifier that drops files into dir.
func NewFileDropNotifier(dir string) *FileDropNotifier {
	return &FileDropNotifier{dir: dir}
}

func (f *FileDropNotifier) Notify(msg Message) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("notify: create drop dir: %w", err)
	}

	slug := sanitizeFilename(msg.Subject)
	name := fmt.Sprintf("%d_%s.txt", timestamp().Unix(), slug)
	path := filepath.Join(f.dir, name)

	var body strings.Builder
	fmt.Fprintf(&body, "To: %s\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&body, "Subject: %s\n\n", msg.Subject)
	body.WriteString(msg.Body)

	if err := os.WriteFile(path, []byte(body.String()), 0o644); err != nil {
		return fmt.Errorf("notify: write drop file: %w", err)
	}
	return nil
}

func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if len(out) > 60 {
		out = out[:60]
	}
	if out == "" {
		return "notification"
	}
	return out
}
