package room

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"threadbot/model"
)

// MentionMatcher decides whether a message addresses the bot and returns the
// body with the mention removed.
type MentionMatcher interface {
	Match(msg model.MatrixMessage) (body string, mentioned bool)
}

// TokenMatcher treats a message as a mention when one of UserIDs is listed in
// its structured mentions or when any token (the user ids included) occurs
// in the body. Matching is case-insensitive.
type TokenMatcher struct {
	userIDs []string
	pattern *regexp.Regexp
}

func NewTokenMatcher(userIDs []string, tokens []string) *TokenMatcher {
	m := &TokenMatcher{userIDs: slices.Clone(userIDs)}
	var alts []string
	for _, uid := range userIDs {
		if len(strings.TrimSpace(uid)) != 0 {
			// Slack and Discord render user mentions as <@id>.
			alts = append(alts, `(?:<@)?`+tokenPattern(uid)+`>?`)
		}
	}
	for _, tok := range tokens {
		if len(strings.TrimSpace(tok)) != 0 {
			alts = append(alts, tokenPattern(tok))
		}
	}
	if len(alts) != 0 {
		m.pattern = regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)[:,]?\s*`)
	}
	return m
}

func tokenPattern(tok string) string {
	p := regexp.QuoteMeta(tok)
	if first, _ := utf8.DecodeRuneInString(tok); isWord(first) {
		p = `\b` + p
	}
	if last, _ := utf8.DecodeLastRuneInString(tok); isWord(last) {
		p += `\b`
	}
	return p
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (m *TokenMatcher) Match(msg model.MatrixMessage) (string, bool) {
	mentioned := false
	for _, uid := range msg.Mentions {
		if slices.Contains(m.userIDs, uid) {
			mentioned = true
			break
		}
	}
	if m.pattern == nil {
		return msg.Body, mentioned
	}
	// Only the first address is stripped; later occurrences are content.
	loc := m.pattern.FindStringIndex(msg.Body)
	if loc == nil {
		return msg.Body, mentioned
	}
	return strings.TrimSpace(msg.Body[:loc[0]] + msg.Body[loc[1]:]), true
}
