package jira

import "strings"

// ExtractText flattens an Atlassian Document Format node into plain text.
// Nodes carrying "text" return it, nodes carrying "content" and plain
// sequences join their children with a single space. A bare string is
// already plain text and is returned unchanged.
func ExtractText(node any) string {
	switch n := node.(type) {
	case string:
		return n
	case map[string]any:
		if text, ok := n["text"]; ok {
			s, _ := text.(string)
			return s
		}
		if content, ok := n["content"]; ok {
			return ExtractText(content)
		}
	case []any:
		parts := make([]string, len(n))
		for i, child := range n {
			parts[i] = ExtractText(child)
		}
		return strings.Join(parts, " ")
	}
	return ""
}
