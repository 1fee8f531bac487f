package i18n

import (
	"strings"
)

// Render substitutes {name} placeholders in a template. Unknown
// placeholders are left in place so a bad template never loses data.
func Render(template string, vars map[string]string) string {
	if len(vars) == 0 {
		return template
	}

	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); {
		open := strings.IndexByte(template[i:], '{')
		if open < 0 {
			b.WriteString(template[i:])
			break
		}
		open += i
		close := strings.IndexByte(template[open:], '}')
		if close < 0 {
			b.WriteString(template[i:])
			break
		}
		close += open

		key := template[open+1 : close]
		if value, ok := vars[key]; ok {
			b.WriteString(template[i:open])
			b.WriteString(value)
		} else {
			b.WriteString(template[i : close+1])
		}
		i = close + 1
	}

	return b.String()
}

// Languages returns the supported language codes
func Languages() []string {
	return []string{"ru", "en"}
}

// IsSupported reports whether the language code has a string table
func IsSupported(lang string) bool {
	_, ok := tables[lang]
	return ok
}

// Table returns the full string table for a language
func Table(lang string) map[string]string {
	if table, ok := tables[lang]; ok {
		return table
	}
	return tables["en"]
}

// T translates a message id with placeholder substitution, falling back
// from the requested language to English and finally the id itself
func T(lang, id string, vars map[string]string) string {
	if table, ok := tables[lang]; ok {
		if msg, ok := table[id]; ok {
			return Render(msg, vars)
		}
	}
	if msg, ok := tables["en"][id]; ok {
		return Render(msg, vars)
	}
	return id
}
