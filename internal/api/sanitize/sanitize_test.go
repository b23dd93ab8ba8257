package sanitize

import "testing"

func TestText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Anna Vermeer  ", "Anna Vermeer"},
		{"<script>alert(1)</script>", "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{"", ""},
		{"   ", ""},
	}

	for _, tc := range cases {
		if got := Text(tc.in); got != tc.want {
			t.Fatalf("Text(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestTextPtr(t *testing.T) {
	if got := TextPtr(nil); got != nil {
		t.Fatalf("expected nil passthrough, got %v", got)
	}

	in := " <b>hi</b> "
	got := TextPtr(&in)
	if got == nil || *got != "&lt;b&gt;hi&lt;/b&gt;" {
		t.Fatalf("unexpected result %v", got)
	}
}

func TestStringSlice(t *testing.T) {
	got := StringSlice([]string{" thinning ", "", "  ", "breakage"})
	if len(got) != 2 || got[0] != "thinning" || got[1] != "breakage" {
		t.Fatalf("unexpected result %v", got)
	}

	if got := StringSlice(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	if got := StringSlice([]string{"", "   "}); got != nil {
		t.Fatalf("expected nil for all-empty input, got %v", got)
	}
}

func TestNotes_StripsScriptsKeepsFormatting(t *testing.T) {
	in := `<p>Prefers <b>morning</b> slots</p><script>alert(1)</script>`
	got := Notes(in)

	if got != "<p>Prefers <b>morning</b> slots</p>" {
		t.Fatalf("unexpected sanitized notes %q", got)
	}
}

func TestNotes_AllowsCodeBlocks(t *testing.T) {
	in := `<pre><code>QH-ABCDEF</code></pre>`
	if got := Notes(in); got != in {
		t.Fatalf("expected code block to survive, got %q", got)
	}
}
