// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"net/url"
	"regexp"
	"strings"
)

// IdentifierType classifies an input identifier.
type IdentifierType int

const (
	TypeUnknown IdentifierType = iota
	TypePMID
	TypePMCID
	TypeDOI
	TypeURL
)

func (t IdentifierType) String() string {
	switch t {
	case TypePMID:
		return "pmid"
	case TypePMCID:
		return "pmcid"
	case TypeDOI:
		return "doi"
	case TypeURL:
		return "url"
	default:
		return "unknown"
	}
}

// pmidPattern matches PubMed IDs: "35345678", "PMID:35345678", "pmid 35345678".
var pmidPattern = regexp.MustCompile(`^(?i:pmid:?\s*)?(\d{1,9})$`)

// pmcidPattern matches PubMed Central IDs: "PMC8954705", "pmc8954705".
var pmcidPattern = regexp.MustCompile(`^(?i:pmc)(\d+)$`)

// doiPattern matches DOIs: "10.1161/CIRCRESAHA.120.317447".
var doiPattern = regexp.MustCompile(`^(?i:doi:\s*)?(10\.\d{4,9}/\S+)$`)

// Classify determines the identifier type and returns the normalized form:
// bare digits for a PMID, "PMC" plus digits for a PMCID, the DOI without a
// "doi:" prefix, or the URL as given.
func Classify(identifier string) (IdentifierType, string) {
	identifier = strings.TrimSpace(identifier)

	if m := pmcidPattern.FindStringSubmatch(identifier); m != nil {
		return TypePMCID, "PMC" + m[1]
	}

	if m := pmidPattern.FindStringSubmatch(identifier); m != nil {
		return TypePMID, m[1]
	}

	if m := doiPattern.FindStringSubmatch(identifier); m != nil {
		return TypeDOI, m[1]
	}

	if u, err := url.Parse(identifier); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return TypeURL, identifier
	}

	return TypeUnknown, identifier
}
