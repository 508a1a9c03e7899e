// Package translate maps steal dependency names to their AMD module IDs.
package translate

import "strings"

// PluginRule rewrites dependencies with a given filename suffix to use a
// loader plugin. Rules are applied in order; the first matching suffix
// wins, so the rule list is deterministic where a map would not be.
type PluginRule struct {
	Suffix string `yaml:"suffix"`
	Prefix string `yaml:"prefix"`
}

// Mapping holds the translation tables. Both tables are plain data and
// ship with the tool's configuration rather than being hardcoded.
type Mapping struct {
	Exact   map[string]string `yaml:"exact"`
	Plugins []PluginRule      `yaml:"plugins"`
}

// Translate converts one steal dependency name to its AMD module ID.
// It is a total function: every input produces some output.
//
// Rules apply in order, first match wins:
//  1. an exact-match table entry replaces the name outright
//  2. a plugin suffix rule prefixes the name with the plugin and drops
//     the first "!" from the original name
//  3. a ".js" suffix is stripped
//  4. a "./"-relative name passes through unchanged
//  5. otherwise the final path segment is duplicated, so a package
//     directory resolves to its same-named main module
func (m Mapping) Translate(name string) string {
	if mapped, ok := m.Exact[name]; ok {
		return mapped
	}
	for _, rule := range m.Plugins {
		if strings.HasSuffix(name, rule.Suffix) {
			return rule.Prefix + strings.Replace(name, "!", "", 1)
		}
	}
	if strings.HasSuffix(name, ".js") {
		return strings.TrimSuffix(name, ".js")
	}
	if strings.HasPrefix(name, "./") && !strings.HasSuffix(name, "!") {
		return name
	}
	parts := strings.Split(name, "/")
	return name + "/" + parts[len(parts)-1]
}

// TranslateAll converts a list of dependency names, preserving order.
func (m Mapping) TranslateAll(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = m.Translate(name)
	}
	return out
}
