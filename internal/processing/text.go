package processing

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	markupTag   = regexp.MustCompile(`<[^>]*>`)

	// Bracketed segments that news portals prepend to headlines, e.g. "[속보]",
	// "(Reuters)", "【단독】".
	leadingTag = regexp.MustCompile(`^\s*(\[[^\]]*\]|\([^)]*\)|【[^】]*】|〈[^〉]*〉|《[^》]*》|<[^>]*>)`)

	// A trailing bracketed segment is only dropped when it is a newsroom tag
	// such as "(종합2보)" or "(Reuters)"; "(1분기)" is part of the story.
	trailingTag = regexp.MustCompile(`(?:\[([^\]]*)\]|\(([^)]*)\)|【([^】]*)】|〈([^〉]*)〉|《([^》]*)》|<([^>]*)>)\s*$`)
	newsroomTag = regexp.MustCompile(`^(?:종합\d*보?|\d+보|속보|단독|상보|재송|영상|사진|포토|인터뷰|reuters|ap|afp|bloomberg|yonhap|연합뉴스|뉴시스|뉴스1)$`)
)

// StripHTML removes markup and decodes entities. Malformed markup degrades to
// best-effort plain text; it never fails.
func StripHTML(input string) string {
	if input == "" {
		return ""
	}

	var text string
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err == nil {
		doc.Find("script, style").Remove()
		text = doc.Text()
	} else {
		text = html.UnescapeString(markupTag.ReplaceAllString(input, ""))
	}

	// Escaped markup such as "&lt;b&gt;" only becomes a tag after decoding.
	text = markupTag.ReplaceAllString(text, "")

	return squeeze(text)
}

// NormalizeTitle turns a headline into a comparison key: markup stripped, NFKC
// folded, lower-cased, source tags and punctuation removed, whitespace collapsed.
func NormalizeTitle(title string) string {
	s := norm.NFKC.String(StripHTML(title))
	s = strings.ToLower(s)

	if untagged := stripSourceTags(s); strings.TrimSpace(punctuation.ReplaceAllString(untagged, "")) != "" {
		s = untagged
	}

	s = punctuation.ReplaceAllString(s, " ")
	return squeeze(s)
}

func stripSourceTags(s string) string {
	for {
		next := leadingTag.ReplaceAllString(s, "")
		next = stripTrailingTag(next)
		if next == s {
			return s
		}
		s = next
	}
}

func stripTrailingTag(s string) string {
	m := trailingTag.FindStringSubmatchIndex(s)
	if m == nil {
		return s
	}
	var content string
	for g := 1; g < len(m)/2; g++ {
		if m[2*g] >= 0 {
			content = s[m[2*g]:m[2*g+1]]
			break
		}
	}
	if !newsroomTag.MatchString(strings.TrimSpace(content)) {
		return s
	}
	return s[:m[0]]
}

func squeeze(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
