package source

import "strings"

// ClassName converts a file or row name to a PascalCase class name.
// "my-app" -> "MyApp", "models" -> "Models", "myApp" -> "MyApp".
// Characters that cannot appear in a class name are treated as word breaks.
func ClassName(s string) string {
	var words []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	var prev rune
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			current.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			if i > 0 && prev >= 'a' && prev <= 'z' {
				flush()
			}
			current.WriteRune(r)
		default:
			flush()
		}
		prev = r
	}
	flush()

	var b strings.Builder
	for _, w := range words {
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(strings.ToLower(w[1:]))
	}
	if b.Len() == 0 {
		return "Script"
	}
	name := b.String()
	if name[0] >= '0' && name[0] <= '9' {
		name = "Script" + name
	}
	return name
}
