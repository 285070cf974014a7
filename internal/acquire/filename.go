// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"strings"
	"unicode"
)

// DefaultFilenameMaxLen bounds names built by MakeSafeFilename.
const DefaultFilenameMaxLen = 200

// nameQueryKeys are the query parameters that usually carry an article
// identifier, in order of preference.
var nameQueryKeys = []string{"accid", "id", "pmcid", "file", "filename"}

// MakeSafeFilename derives a filesystem-safe name ending in ".pdf" from a
// download URL. It prefers an identifier in the query string (accid, id,
// pmcid, file, filename), then the last path segment, then
// "<fallbackPrefix>_<sha1[:12]>.pdf". It returns "" for an empty or
// unparsable URL. maxLen <= 0 uses DefaultFilenameMaxLen.
func MakeSafeFilename(rawURL, fallbackPrefix string, maxLen int) string {
	if rawURL == "" {
		return ""
	}
	if maxLen <= 0 {
		maxLen = DefaultFilenameMaxLen
	}
	if fallbackPrefix == "" {
		fallbackPrefix = "file"
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	q := u.Query()
	for _, key := range nameQueryKeys {
		v := q.Get(key)
		if v == "" {
			continue
		}
		if name := cleanName(v, maxLen-4); name != "" {
			return withPDFSuffix(name)
		}
	}

	p := u.Path
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if p != "" {
		if hasPDFSuffix(p) {
			if name := cleanName(p, maxLen); name != "" && hasPDFSuffix(name) {
				return name
			}
		}
		if name := cleanName(p, maxLen-4); name != "" {
			return withPDFSuffix(name)
		}
	}

	return hashName(rawURL, fallbackPrefix, maxLen)
}

// hashName builds "<prefix>_<sha1[:12]>.pdf" for rawURL.
func hashName(rawURL, prefix string, maxLen int) string {
	sum := sha1.Sum([]byte(rawURL))
	return cleanName(prefix+"_"+hex.EncodeToString(sum[:])[:12]+".pdf", maxLen)
}

// cleanName keeps letters, digits, and " .-_()[]", trims surrounding
// spaces, and truncates to maxLen characters.
func cleanName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || strings.ContainsRune(" .-_()[]", r) {
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if maxLen > 0 {
		if runes := []rune(out); len(runes) > maxLen {
			out = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return out
}

func hasPDFSuffix(s string) bool {
	return strings.HasSuffix(strings.ToLower(s), ".pdf")
}

func withPDFSuffix(s string) string {
	if hasPDFSuffix(s) {
		return s
	}
	return s + ".pdf"
}
