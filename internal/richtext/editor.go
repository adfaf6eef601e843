package richtext

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
)

type CommandName string

const (
	CommandBold           CommandName = "bold"
	CommandItalic         CommandName = "italic"
	CommandUnderline      CommandName = "underline"
	CommandUnorderedList  CommandName = "insertUnorderedList"
	CommandOrderedList    CommandName = "insertOrderedList"
	CommandScriptureQuote CommandName = "scriptureQuote"
)

const (
	ScriptureQuoteClass       = "border-l-4 border-primary bg-blue-50 p-4 my-6 italic font-serif"
	ScriptureQuotePlaceholder = "Enter your scripture quote here..."
)

var (
	ErrUnknownCommand    = errors.New("unknown editor command")
	ErrEmptySelection    = errors.New("command needs a selection")
	ErrSelectionNotFound = errors.New("selection not found in content")
)

// Command is one formatting action. Selection is the plain text the user had
// highlighted; an empty selection means "insert at the end".
type Command struct {
	Name      CommandName `json:"command"`
	Selection string      `json:"selection"`
}

// ScriptureQuote renders the styled quotation block around text, falling back
// to the placeholder prompt when text is blank.
func ScriptureQuote(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		text = ScriptureQuotePlaceholder
	}
	return `<blockquote class="` + ScriptureQuoteClass + `"><p>` + html.EscapeString(text) + `</p></blockquote>`
}

func wrapperFor(name CommandName) (string, string, error) {
	switch name {
	case CommandBold:
		return "<strong>", "</strong>", nil
	case CommandItalic:
		return "<em>", "</em>", nil
	case CommandUnderline:
		return "<u>", "</u>", nil
	case CommandUnorderedList:
		return "<ul><li>", "</li></ul>", nil
	case CommandOrderedList:
		return "<ol><li>", "</li></ol>", nil
	case CommandScriptureQuote:
		return `<blockquote class="` + ScriptureQuoteClass + `"><p>`, "</p></blockquote>", nil
	default:
		return "", "", ErrUnknownCommand
	}
}

// Apply runs cmd against content and returns the sanitized result.
func Apply(content string, cmd Command) (string, error) {
	open, closing, err := wrapperFor(cmd.Name)
	if err != nil {
		return "", err
	}
	clean := Sanitize(content)

	if strings.TrimSpace(cmd.Selection) == "" {
		switch cmd.Name {
		case CommandScriptureQuote:
			return Sanitize(clean + ScriptureQuote("")), nil
		case CommandUnorderedList, CommandOrderedList:
			return Sanitize(clean + open + "<br>" + closing), nil
		default:
			return "", ErrEmptySelection
		}
	}

	out, found := wrapFirst(clean, cmd.Selection, open, closing)
	if !found {
		return "", ErrSelectionNotFound
	}
	return Sanitize(out), nil
}

// wrapFirst wraps the first occurrence of sel that sits inside a single text
// node. content must already be sanitized since tokens are re-emitted raw.
func wrapFirst(content, sel, open, closing string) (string, bool) {
	z := html.NewTokenizer(strings.NewReader(content))
	var b strings.Builder
	found := false
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return b.String(), found
		}
		if tt != html.TextToken || found {
			b.Write(z.Raw())
			continue
		}
		text := string(z.Text())
		idx := strings.Index(text, sel)
		if idx < 0 {
			b.WriteString(html.EscapeString(text))
			continue
		}
		found = true
		b.WriteString(html.EscapeString(text[:idx]))
		b.WriteString(open)
		b.WriteString(html.EscapeString(sel))
		b.WriteString(closing)
		b.WriteString(html.EscapeString(text[idx+len(sel):]))
	}
}
