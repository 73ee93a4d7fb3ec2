// Package content holds the typed content blocks that make up blog post and
// page bodies.
package content

import "encoding/json"

// Section is one typed content block of a document.
type Section struct {
	Name        string   `json:"name"`
	Classes     []string `json:"classes"`
	ContentType string   `json:"contentType"`
	Content     string   `json:"content"`
}

// rawSection mirrors Section with pointer fields so missing and mistyped
// keys can be told apart from zero values.
type rawSection struct {
	Name        *string   `json:"name"`
	Classes     []*string `json:"classes"`
	ContentType *string   `json:"contentType"`
	Content     *string   `json:"content"`
}

// ParseSection validates one raw content block. Every field is required,
// including every element of classes.
func ParseSection(raw json.RawMessage) (Section, bool) {
	var r rawSection
	if err := json.Unmarshal(raw, &r); err != nil {
		return Section{}, false
	}
	if r.Name == nil || r.ContentType == nil || r.Content == nil || r.Classes == nil {
		return Section{}, false
	}
	classes := make([]string, 0, len(r.Classes))
	for _, c := range r.Classes {
		if c == nil {
			return Section{}, false
		}
		classes = append(classes, *c)
	}
	return Section{
		Name:        *r.Name,
		Classes:     classes,
		ContentType: *r.ContentType,
		Content:     *r.Content,
	}, true
}

// ParseSections parses an ordered document body. Malformed individual
// sections are dropped silently rather than failing the whole document, so
// partially damaged data stays recoverable. A nil result is returned only
// when the input is not a JSON array at all.
func ParseSections(raw json.RawMessage) ([]Section, bool) {
	if len(raw) == 0 {
		return []Section{}, true
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	sections := make([]Section, 0, len(items))
	for _, item := range items {
		if s, ok := ParseSection(item); ok {
			sections = append(sections, s)
		}
	}
	return sections, true
}
