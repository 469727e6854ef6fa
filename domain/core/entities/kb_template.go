package entities

import (
	"fmt"
	"strings"
	"unicode"

	"kbweb/domain/core/valueobjects"
)

// ExampleTemplateContent is the body of the built-in template shown before any user template
const ExampleTemplateContent = "/* Write your node identifier here: \n" +
	" -Press \"Create\" to create node with your identifier \n" +
	" -Press \"Search\" to view result in SCg \n" +
	" */\n"

// KBTemplate is an SCs template stored in the knowledge base for a user
type KBTemplate struct {
	Addr    valueobjects.Addr `json:"addr,omitempty"`
	Title   string            `json:"title"`
	Content string            `json:"content"`
}

// ExampleTemplate returns the built-in template
func ExampleTemplate() KBTemplate {
	return KBTemplate{Title: "Example", Content: ExampleTemplateContent}
}

// BuiltIn reports whether the template lives outside the knowledge base
func (t KBTemplate) BuiltIn() bool {
	return !t.Addr.IsValid()
}

// LastLine returns the last non-empty line of text, trimmed. The editor
// treats it as the identifier to find or create.
func LastLine(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\r\n \t"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// ValidateIdentifier accepts system identifiers: letters, digits, '_' and '.'
func ValidateIdentifier(idtf string) error {
	if idtf == "" {
		return fmt.Errorf("identifier is required")
	}
	if len(idtf) > 255 {
		return fmt.Errorf("identifier must be at most 255 characters")
	}
	if strings.IndexFunc(idtf, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.')
	}) >= 0 {
		return fmt.Errorf("identifier %q may only contain letters, digits, '_' and '.'", idtf)
	}
	return nil
}
