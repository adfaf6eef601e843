package richtext

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeStripsScriptsAndHandlers(t *testing.T) {
	in := `<p onclick="steal()">In the beginning<script>alert(1)</script></p><img src="javascript:alert(1)" onerror="x()"><a href="javascript:evil()">link</a>`
	got := Sanitize(in)
	for _, bad := range []string{"script", "onclick", "onerror", "javascript:", "alert"} {
		if strings.Contains(got, bad) {
			t.Fatalf("sanitized output still contains %q: %s", bad, got)
		}
	}
	if !strings.Contains(got, "<p>In the beginning</p>") {
		t.Fatalf("expected paragraph text kept: %s", got)
	}
	if !strings.Contains(got, "<a>link</a>") {
		t.Fatalf("expected anchor without unsafe href: %s", got)
	}
}

func TestSanitizeKeepsAllowedMarkup(t *testing.T) {
	in := `<h2 class="title">John 3:16</h2><p>For God <strong>so</strong> loved<br/>the world</p><a href="https://example.com/x">ref</a>`
	got := Sanitize(in)
	want := `<h2 class="title">John 3:16</h2><p>For God <strong>so</strong> loved<br>the world</p><a href="https://example.com/x" rel="nofollow noopener noreferrer">ref</a>`
	if got != want {
		t.Fatalf("unexpected output\n got: %s\nwant: %s", got, want)
	}
}

func TestSanitizeDropsUnknownTagsButKeepsText(t *testing.T) {
	got := Sanitize(`<section><marquee>Psalm 23</marquee></section>`)
	if got != "Psalm 23" {
		t.Fatalf("got %q", got)
	}
}

func TestSanitizeClosesOpenTagsAndEscapesText(t *testing.T) {
	got := Sanitize(`<p><em>unterminated &lt;b&gt;`)
	if got != `<p><em>unterminated &lt;b&gt;</em></p>` {
		t.Fatalf("got %q", got)
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	in := `<blockquote class="a  b"><p>Selah &amp; amen</p></blockquote><ul><li>one</li></ul>`
	once := Sanitize(in)
	if twice := Sanitize(once); twice != once {
		t.Fatalf("not idempotent:\n%s\n%s", once, twice)
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText(`<p>Blessed are</p><p>the <b>meek</b></p><style>p{}</style>`)
	if got != "Blessed are the meek" {
		t.Fatalf("got %q", got)
	}
}

func TestScriptureQuotePlaceholder(t *testing.T) {
	got := ScriptureQuote("  ")
	if !strings.Contains(got, ScriptureQuotePlaceholder) {
		t.Fatalf("expected placeholder: %s", got)
	}
	if !strings.Contains(got, `class="`+ScriptureQuoteClass+`"`) {
		t.Fatalf("expected quote class: %s", got)
	}
}

func TestApplyScriptureQuoteWrapsSelection(t *testing.T) {
	content := `<p>Intro. The Lord is my shepherd. Outro.</p>`
	got, err := Apply(content, Command{Name: CommandScriptureQuote, Selection: "The Lord is my shepherd."})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !strings.Contains(got, `<blockquote class="`+ScriptureQuoteClass+`"><p>The Lord is my shepherd.</p></blockquote>`) {
		t.Fatalf("quote not inserted: %s", got)
	}
	if !strings.Contains(got, "Intro. ") || !strings.Contains(got, " Outro.") {
		t.Fatalf("surrounding text lost: %s", got)
	}
}

func TestApplyScriptureQuoteWithoutSelectionAppendsPlaceholder(t *testing.T) {
	got, err := Apply(`<p>Body</p>`, Command{Name: CommandScriptureQuote})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !strings.HasPrefix(got, "<p>Body</p><blockquote") || !strings.Contains(got, ScriptureQuotePlaceholder) {
		t.Fatalf("unexpected: %s", got)
	}
}

func TestApplyInlineCommands(t *testing.T) {
	cases := map[CommandName]string{
		CommandBold:      "<strong>grace</strong>",
		CommandItalic:    "<em>grace</em>",
		CommandUnderline: "<u>grace</u>",
	}
	for name, want := range cases {
		got, err := Apply(`<p>by grace alone</p>`, Command{Name: name, Selection: "grace"})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got != "<p>by "+want+" alone</p>" {
			t.Fatalf("%s: got %s", name, got)
		}
	}
}

func TestApplyErrors(t *testing.T) {
	if _, err := Apply(`<p>x</p>`, Command{Name: "strike", Selection: "x"}); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("want ErrUnknownCommand, got %v", err)
	}
	if _, err := Apply(`<p>x</p>`, Command{Name: CommandBold}); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("want ErrEmptySelection, got %v", err)
	}
	if _, err := Apply(`<p>x</p>`, Command{Name: CommandBold, Selection: "missing"}); !errors.Is(err, ErrSelectionNotFound) {
		t.Fatalf("want ErrSelectionNotFound, got %v", err)
	}
}

func TestApplyListWithoutSelection(t *testing.T) {
	got, err := Apply(`<p>a</p>`, Command{Name: CommandOrderedList})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != "<p>a</p><ol><li><br></li></ol>" {
		t.Fatalf("got %s", got)
	}
}
