package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)

const (
	DocumentTemplate = "{PREFIX}-{YYYY}{MM}{DD}-{SEQ4}"
	CustomerTemplate = "{PREFIX}-{SEQ4}"
)

// Render expands template for a document issued at issuedAt with sequence seq.
// It is pure: no side effects, fully deterministic.
func Render(template, prefix string, issuedAt time.Time, seq int64) (string, error) {
	if template == "" {
		return "", fmt.Errorf("reference template is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid reference sequence: %d", seq)
	}

	out := strings.ReplaceAll(template, "{PREFIX}", prefix)
	out = strings.ReplaceAll(out, "{YYYY}", issuedAt.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", issuedAt.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", issuedAt.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", issuedAt.Format("02"))
	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))

	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("unresolved token in reference format: %s", out)
	}
	return out, nil
}

// Day encodes t as yyyymmdd in UTC.
func Day(t time.Time) int {
	t = t.UTC()
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// CustomerPrefix is the first three letters of the business slug, upper-cased.
func CustomerPrefix(slug string) string {
	letters := make([]rune, 0, 3)
	for _, r := range strings.ToUpper(slug) {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			letters = append(letters, r)
		}
		if len(letters) == 3 {
			break
		}
	}
	if len(letters) == 0 {
		return "CUS"
	}
	return string(letters)
}
