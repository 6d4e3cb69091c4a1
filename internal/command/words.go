package command

import (
	"strings"
	"unicode"
)

// word is one whitespace-separated piece of a command line.
type word struct {
	value  string
	quoted bool
	// gap is the whitespace that preceded the word on the line.
	gap string
}

// splitLine splits line on whitespace and keeps every other character as
// typed. A quote is special only when it opens a word: the word then runs to
// the next matching quote that is followed by whitespace or the end of the
// line. An unmatched opening quote is an ordinary character.
func splitLine(line string) []word {
	var words []word

	pos := 0
	for pos < len(line) {
		start := skipSpace(line, pos)
		if start == len(line) {
			break
		}

		gap := line[pos:start]

		next, end, ok := quotedWord(line, start)
		if !ok {
			end = nextSpace(line, start)
			next = word{value: line[start:end]}
		}

		next.gap = gap
		words = append(words, next)
		pos = end
	}

	return words
}

func skipSpace(line string, pos int) int {
	offset := strings.IndexFunc(line[pos:], func(r rune) bool { return !unicode.IsSpace(r) })
	if offset < 0 {
		return len(line)
	}

	return pos + offset
}

func nextSpace(line string, pos int) int {
	offset := strings.IndexFunc(line[pos:], unicode.IsSpace)
	if offset < 0 {
		return len(line)
	}

	return pos + offset
}

// quotedWord reads a quoted word starting at start. Quote characters are
// ASCII, so scanning bytes never splits a multi-byte rune.
func quotedWord(line string, start int) (word, int, bool) {
	quote := line[start]
	if quote != '"' && quote != '\'' {
		return word{}, 0, false
	}

	for i := start + 1; i < len(line); i++ {
		if line[i] != quote {
			continue
		}

		end := i + 1
		if nextSpace(line, end) == end {
			return word{value: line[start+1 : i], quoted: true}, end, true
		}
	}

	return word{}, 0, false
}

// optionName reports the option a word names, in the -name, --name,
// -name=value and --name=value forms.
func optionName(value string) (name, inline string, hasInline, ok bool) {
	if !strings.HasPrefix(value, "-") {
		return "", "", false, false
	}

	name = strings.TrimPrefix(value[1:], "-")
	if name == "" || strings.HasPrefix(name, "-") || strings.HasPrefix(name, "=") {
		return "", "", false, false
	}

	name, inline, hasInline = strings.Cut(name, "=")

	return name, inline, hasInline, true
}
