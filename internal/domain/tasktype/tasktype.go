// Package tasktype holds the closed set of parent task variants. A variant
// decides which token fields a parent carries, how the parent is titled and
// described, and which rule key routes its children.
package tasktype

import (
	"sort"
	"strings"

	"github.com/wekeepgrowing/todosync/internal/domain/model"
)

// Variant describes one kind of parent task.
type Variant interface {
	Name() string
	TokenFieldNames() []string
	Title(template *model.Template, tokens map[string]string) string
	Description(tokens map[string]string) string
	// RuleKey selects the routing table; empty means the variant has none.
	RuleKey() string
}

const (
	Generic = "generic"
	Crop    = "crop"
)

var registry = map[string]Variant{
	Generic: genericVariant{},
	Crop:    cropVariant{},
}

// Lookup returns the variant for a template task type tag. An empty tag
// selects the generic variant.
func Lookup(name string) (Variant, bool) {
	if name == "" {
		name = Generic
	}
	v, ok := registry[name]
	return v, ok
}

// Names lists the registered variant names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PickTokens keeps only the token fields v declares.
func PickTokens(v Variant, tokens map[string]string) map[string]string {
	out := make(map[string]string)
	for _, field := range v.TokenFieldNames() {
		if value, ok := tokens[field]; ok {
			out[field] = value
		}
	}
	return out
}

type genericVariant struct{}

func (genericVariant) Name() string              { return Generic }
func (genericVariant) TokenFieldNames() []string { return nil }
func (genericVariant) RuleKey() string           { return "" }

func (genericVariant) Title(template *model.Template, tokens map[string]string) string {
	if template == nil {
		return ""
	}
	return model.SubstituteTokens(template.Title, tokens)
}

func (genericVariant) Description(map[string]string) string { return "" }

// cropVariant is a crop planting: a seed SKU and the variety being grown.
type cropVariant struct{}

func (cropVariant) Name() string              { return Crop }
func (cropVariant) TokenFieldNames() []string { return []string{"sku", "variety_name"} }
func (cropVariant) RuleKey() string           { return "crop_label_completion_section" }

func (cropVariant) Title(template *model.Template, tokens map[string]string) string {
	parts := make([]string, 0, 2)
	if template != nil && template.Title != "" {
		parts = append(parts, model.SubstituteTokens(template.Title, tokens))
	}
	if name := tokens["variety_name"]; name != "" {
		parts = append(parts, name)
	}
	title := strings.Join(parts, " - ")
	if sku := tokens["sku"]; sku != "" {
		title += " (" + sku + ")"
	}
	return strings.TrimSpace(title)
}

func (cropVariant) Description(tokens map[string]string) string {
	var lines []string
	if sku := tokens["sku"]; sku != "" {
		lines = append(lines, "SKU: "+sku)
	}
	if name := tokens["variety_name"]; name != "" {
		lines = append(lines, "Variety: "+name)
	}
	return strings.Join(lines, "\n")
}
