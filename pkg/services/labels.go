package services

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// EntityLabel is the noun used for an entity type in caller-facing messages,
// e.g. "purchase_request" -> "purchase request".
func EntityLabel(entityType string) string {
	return strings.ReplaceAll(entityType, "_", " ")
}

// NormalizeEntityType maps loose agent and client spellings onto the canonical
// singular entity type: " Work_Orders " -> "work_order". Uncountable nouns
// such as "equipment" pass through unchanged.
func NormalizeEntityType(raw string) string {
	return inflection.Singular(strings.ToLower(strings.TrimSpace(raw)))
}
