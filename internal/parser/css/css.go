// Package css parses the small stylesheets that describe block styles.
// Only type and universal selectors are meaningful to the layout surface;
// other selectors are kept but never match.
package css

import (
	"io"
	"strings"
)

// Rule represents a CSS rule
type Rule struct {
	Selectors    []string
	Declarations []Declaration
}

// Declaration represents a CSS declaration (property-value pair)
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// Stylesheet represents a parsed CSS stylesheet
type Stylesheet struct {
	Rules []Rule
}

// ParseString parses CSS from a string
func ParseString(content string) *Stylesheet {
	sheet := &Stylesheet{}
	content = stripComments(content)

	for {
		open := strings.IndexByte(content, '{')
		if open < 0 {
			break
		}
		closing := strings.IndexByte(content[open:], '}')
		if closing < 0 {
			break
		}
		closing += open

		selectors := splitList(content[:open], ",")
		decls := parseDeclarations(content[open+1 : closing])
		content = content[closing+1:]

		// At-rules such as @page carry no block styles.
		if len(selectors) == 0 || strings.HasPrefix(selectors[0], "@") {
			continue
		}
		sheet.Rules = append(sheet.Rules, Rule{Selectors: selectors, Declarations: decls})
	}
	return sheet
}

// Parse parses CSS from an io.Reader
func Parse(r io.Reader) (*Stylesheet, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseString(string(content)), nil
}

// Matches reports whether one of the rule's selectors applies to tag.
func (r Rule) Matches(tag string) bool {
	for _, sel := range r.Selectors {
		if sel == "*" || strings.EqualFold(sel, tag) {
			return true
		}
	}
	return false
}

func parseDeclarations(body string) []Declaration {
	var out []Declaration
	for _, part := range splitList(body, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		important := false
		if v, found := strings.CutSuffix(value, "!important"); found {
			important = true
			value = strings.TrimSpace(v)
		}
		if prop == "" || value == "" {
			continue
		}
		out = append(out, Declaration{Property: prop, Value: value, Important: important})
	}
	return out
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// stripComments removes /* ... */ comments; an unterminated comment
// swallows the rest of the input.
func stripComments(s string) string {
	var sb strings.Builder
	for {
		start := strings.Index(s, "/*")
		if start < 0 {
			sb.WriteString(s)
			return sb.String()
		}
		sb.WriteString(s[:start])
		end := strings.Index(s[start+2:], "*/")
		if end < 0 {
			return sb.String()
		}
		s = s[start+2+end+2:]
	}
}
