package policy

import "regexp"

// A mention token is @ followed by word characters, dots, or hyphens.
var mentionPattern = regexp.MustCompile(`@([\w.\-]+)`)

// MentionTokens extracts the distinct @name tokens from a comment body, in
// order of first appearance. Tokens are matched against user display names
// exactly; resolution happens at the service layer.
func MentionTokens(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		tokens = append(tokens, m[1])
	}
	return tokens
}
