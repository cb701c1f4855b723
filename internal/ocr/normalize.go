package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reBullets    = regexp.MustCompile(`[•·◦]`)
	reMultiSpace = regexp.MustCompile(`[ \t]{2,}`)
	reParagraph  = regexp.MustCompile(`\n{2,}`)
)

// PostProcess makes raw OCR output readable without changing its content:
// soft-wrapped sentences are reflowed, words split across lines are rejoined,
// bullets and blank runs are normalized. Paragraph breaks survive untouched.
// PostProcess(PostProcess(s)) == PostProcess(s).
func PostProcess(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reBullets.ReplaceAllString(s, "-")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		l = strings.Trim(l, " \t")
		lines[i] = reMultiSpace.ReplaceAllString(l, " ")
	}
	s = strings.Join(lines, "\n")

	paragraphs := reParagraph.Split(s, -1)
	kept := paragraphs[:0]
	for _, p := range paragraphs {
		p = strings.TrimSpace(reflow(dehyphenate(p)))
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

// dehyphenate turns "exam-\nple" into "example" when the continuation is lowercase.
func dehyphenate(p string) string {
	var b strings.Builder
	b.Grow(len(p))
	for i := 0; i < len(p); i++ {
		if p[i] == '-' && i > 0 && i+2 < len(p) &&
			p[i+1] == '\n' && isASCIILetter(p[i-1]) && isLower(p[i+2]) {
			i++ // drop "-\n"
			continue
		}
		b.WriteByte(p[i])
	}
	return b.String()
}

// reflow replaces a line break with a space when the line does not end a
// sentence and the next one continues it.
func reflow(p string) string {
	buf := []byte(p)
	for i := 1; i+1 < len(buf); i++ {
		if buf[i] != '\n' {
			continue
		}
		if strings.IndexByte(".!?:;)", buf[i-1]) >= 0 {
			continue
		}
		if next := buf[i+1]; isLower(next) || isDigit(next) || next == '(' || next == '[' {
			buf[i] = ' '
		}
	}
	return string(buf)
}

func isASCIILetter(c byte) bool { return isLower(c) || (c >= 'A' && c <= 'Z') }
func isLower(c byte) bool       { return c >= 'a' && c <= 'z' }
func isDigit(c byte) bool       { return c >= '0' && c <= '9' }
