package model

import "strings"

// SubstituteTokens replaces every {name} in text whose name is a key of
// tokens. Unknown placeholders are left verbatim and substituted values are
// not scanned again.
func SubstituteTokens(text string, tokens map[string]string) string {
	if len(tokens) == 0 || !strings.Contains(text, "{") {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); {
		if text[i] != '{' {
			b.WriteByte(text[i])
			i++
			continue
		}

		end := strings.IndexByte(text[i+1:], '}')
		if end < 0 {
			b.WriteString(text[i:])
			break
		}

		name := text[i+1 : i+1+end]
		if strings.Contains(name, "{") {
			b.WriteByte('{')
			i++
			continue
		}

		if value, ok := tokens[name]; ok {
			b.WriteString(value)
		} else {
			b.WriteString(text[i : i+end+2])
		}
		i += end + 2
	}

	return b.String()
}
