// Package textcode expands RMMZ message escape codes into styled runs.
package textcode

import (
	"regexp"
	"strconv"
	"strings"
)

const esc = "\x1b"

// Font sizes used by the window text renderer.
const (
	DefaultFontSize = 26
	MinFontSize     = 24
	MaxFontSize     = 96
	fontSizeStep    = 12
)

// Resolver supplies values for the substitution codes.
type Resolver interface {
	Variable(id int) string
	ActorName(id int) string
	PartyMemberName(n int) string
	CurrencyUnit() string
}

// Run is a span of text drawn in one style. An Icon run has no text.
// A Text of "\n" marks a line break.
type Run struct {
	Text     string `json:"text,omitempty"`
	Color    int    `json:"color"`
	FontSize int    `json:"font_size"`
	Icon     int    `json:"icon,omitempty"`
}

var (
	varRe   = regexp.MustCompile(`(?i)\x1bV\[(\d+)\]`)
	actorRe = regexp.MustCompile(`(?i)\x1bN\[(\d+)\]`)
	partyRe = regexp.MustCompile(`(?i)\x1bP\[(\d+)\]`)
	goldRe  = regexp.MustCompile(`(?i)\x1bG`)
	codeRe  = regexp.MustCompile(`^(?i)([A-Z]+)(?:\[(\d+)\])?`)
)

// Convert performs the substitution pass: \V[n], \N[n], \P[n], \G and the
// \\ literal. Formatting codes are left in place for Parse.
func Convert(text string, r Resolver) string {
	text = strings.ReplaceAll(text, `\`, esc)
	text = strings.ReplaceAll(text, esc+esc, `\`)
	variable := func(id int) string { return strings.ReplaceAll(r.Variable(id), `\`, esc) }
	// Twice, so a variable may hold another variable reference.
	text = replaceID(varRe, text, variable)
	text = replaceID(varRe, text, variable)
	text = replaceID(actorRe, text, r.ActorName)
	text = replaceID(partyRe, text, r.PartyMemberName)
	text = goldRe.ReplaceAllLiteralString(text, r.CurrencyUnit())
	return text
}

func replaceID(re *regexp.Regexp, text string, fn func(int) string) string {
	return re.ReplaceAllStringFunc(text, func(match string) string {
		sub := re.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		id, err := strconv.Atoi(sub[1])
		if err != nil {
			return match
		}
		return fn(id)
	})
}

// Parse converts text and splits it into runs starting from the default
// style. Unknown codes are dropped.
func Parse(text string, r Resolver) []Run {
	text = Convert(text, r)

	var (
		runs []Run
		cur  strings.Builder
		st   = Run{FontSize: DefaultFontSize}
	)
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		runs = append(runs, Run{Text: cur.String(), Color: st.Color, FontSize: st.FontSize})
		cur.Reset()
	}

	for i := 0; i < len(text); {
		switch {
		case text[i] == '\n':
			flush()
			runs = append(runs, Run{Text: "\n", Color: st.Color, FontSize: st.FontSize})
			i++
		case strings.HasPrefix(text[i:], esc):
			i += len(esc)
			if i < len(text) && (text[i] == '{' || text[i] == '}') {
				flush()
				if text[i] == '{' {
					st.FontSize = min(st.FontSize+fontSizeStep, MaxFontSize)
				} else {
					st.FontSize = max(st.FontSize-fontSizeStep, MinFontSize)
				}
				i++
				continue
			}
			m := codeRe.FindStringSubmatch(text[i:])
			if m == nil {
				continue
			}
			i += len(m[0])
			n, _ := strconv.Atoi(m[2])
			switch strings.ToUpper(m[1]) {
			case "C":
				flush()
				st.Color = n
			case "I":
				flush()
				runs = append(runs, Run{Icon: n, Color: st.Color, FontSize: st.FontSize})
			}
		default:
			cur.WriteByte(text[i])
			i++
		}
	}
	flush()
	return runs
}

// Plain returns the text of runs with styling and icons dropped.
func Plain(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return b.String()
}
