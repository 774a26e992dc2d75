// Package extractor builds extraction prompts from domain schemas and parses
// model responses into candidate entities and relationships.
package extractor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/inquira/kgraph/domain/schema"
)

const systemPrompt = `You are an information extraction engine. Extract entities and relationships from the provided text using only the entity and relationship types listed. Respond with a single JSON object and nothing else, in this shape:

{
  "entities": [
    {"type": "<entity type name>", "name": "<canonical name>", "attributes": {}, "confidence": 0.0}
  ],
  "relationships": [
    {"type": "<relationship type name>", "source": "<entity name>", "target": "<entity name>", "attributes": {}}
  ]
}

Rules:
- Use only the listed type names, exactly as written.
- "confidence" is your extraction confidence between 0 and 1.
- Relationship "source" and "target" refer to entity names from your own "entities" list.
- If nothing can be extracted, return {"entities": [], "relationships": []}.`

// PromptBuilder renders schema-driven extraction prompts. Entity and
// relationship type names are data supplied per call, not compiled in.
type PromptBuilder struct{}

// NewPromptBuilder creates a PromptBuilder.
func NewPromptBuilder() PromptBuilder {
	return PromptBuilder{}
}

// System returns the fixed system prompt.
func (PromptBuilder) System() string {
	return systemPrompt
}

// User renders the user prompt for one chunk under the given schema
// definition.
func (b PromptBuilder) User(def schema.Definition, content string) string {
	var sb strings.Builder

	sb.WriteString("Entity types:\n")
	for _, t := range sortedEntityTypes(def) {
		sb.WriteString("- ")
		sb.WriteString(t.Name())
		if attrs := t.Attributes(); len(attrs) > 0 {
			sb.WriteString(" (attributes: ")
			sb.WriteString(renderAttributes(attrs))
			sb.WriteString(")")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nRelationship types:\n")
	for _, t := range sortedRelationshipTypes(def) {
		sb.WriteString("- ")
		sb.WriteString(t.Name())
		sb.WriteString("\n")
	}

	sb.WriteString("\nText:\n")
	sb.WriteString(content)
	return sb.String()
}

func sortedEntityTypes(def schema.Definition) []schema.EntityType {
	types := def.EntityTypes()
	sort.Slice(types, func(i, j int) bool { return types[i].Position() < types[j].Position() })
	return types
}

func sortedRelationshipTypes(def schema.Definition) []schema.RelationshipType {
	types := def.RelationshipTypes()
	sort.Slice(types, func(i, j int) bool { return types[i].Position() < types[j].Position() })
	return types
}

func renderAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		if attrs[k] == "" {
			parts[i] = k
			continue
		}
		parts[i] = fmt.Sprintf("%s: %s", k, attrs[k])
	}
	return strings.Join(parts, ", ")
}
