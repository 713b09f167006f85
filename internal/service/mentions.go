package service

import (
	"regexp"
	"strings"

	"github.com/nucleushq/ticket-engine/internal/domain"
)

// Mention tokens are a literal @ followed by exactly two words, matched
// case-insensitively against member display names. The id form exists to
// disambiguate members who share a display name.
var (
	mentionNamePattern = regexp.MustCompile(`@(\w+\s\w+)`)
	mentionIDPattern   = regexp.MustCompile(`@id:([0-9a-fA-F-]{36})`)
)

// mentionIndex is a precomputed lookup from display name to member ids,
// built once per request from the active member list.
type mentionIndex struct {
	byName map[string][]string
	byID   map[string]struct{}
}

func newMentionIndex(members []domain.Employee) *mentionIndex {
	ix := &mentionIndex{
		byName: make(map[string][]string, len(members)),
		byID:   make(map[string]struct{}, len(members)),
	}
	for _, m := range members {
		key := strings.ToLower(m.Name)
		ix.byName[key] = append(ix.byName[key], m.ID)
		ix.byID[m.ID] = struct{}{}
	}
	return ix
}

// Resolve extracts the member ids mentioned in content, deduplicated, in
// order of first appearance. Tokens that match no member stay literal text.
// A display name shared by several members never resolves by name; only the
// @id: form reaches those members.
func (ix *mentionIndex) Resolve(content string) []string {
	var resolved []string
	seen := make(map[string]struct{})

	add := func(id string) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		resolved = append(resolved, id)
	}

	for _, match := range mentionNamePattern.FindAllStringSubmatch(content, -1) {
		ids := ix.byName[strings.ToLower(match[1])]
		if len(ids) == 1 {
			add(ids[0])
		}
	}
	for _, match := range mentionIDPattern.FindAllStringSubmatch(content, -1) {
		if _, ok := ix.byID[match[1]]; ok {
			add(match[1])
		}
	}
	return resolved
}
