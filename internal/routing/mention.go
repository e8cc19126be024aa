package routing

import "strings"

// TeamMember is the slice of the team roster that mention detection needs.
type TeamMember struct {
	ID      string
	Name    string
	Aliases []string
}

// DetectMention returns the first team member referenced in text, or nil.
// Matching is case-insensitive on `@Name`, the bare name, and every alias,
// on word boundaries only so "Al" does not fire inside "also". Longer
// aliases are tried first so "@Alice B" beats "@Alice".
func DetectMention(text string, team []TeamMember) *TeamMember {
	lower := strings.ToLower(text)

	type candidate struct {
		member *TeamMember
		token  string
	}
	var candidates []candidate
	for i := range team {
		m := &team[i]
		tokens := append([]string{m.Name}, m.Aliases...)
		for _, tok := range tokens {
			tok = strings.ToLower(strings.TrimSpace(tok))
			if tok == "" {
				continue
			}
			candidates = append(candidates, candidate{member: m, token: "@" + tok})
			candidates = append(candidates, candidate{member: m, token: tok})
		}
	}

	// Longest token first: more specific names win over their prefixes.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && len(candidates[j].token) > len(candidates[j-1].token); j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	for _, c := range candidates {
		if containsWord(lower, c.token) {
			return c.member
		}
	}
	return nil
}

// containsWord reports whether token occurs in text delimited by non-word
// characters (or the text edges).
func containsWord(text, token string) bool {
	for from := 0; ; {
		idx := strings.Index(text[from:], token)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(token)
		if boundary(text, start-1) && boundary(text, end) {
			return true
		}
		from = start + 1
	}
}

func boundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	c := text[i]
	return !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '@')
}
