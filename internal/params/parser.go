package params

import (
	"fmt"
	"strings"
)

// split cuts each "name=value" pair at its first '='. Names are trimmed.
func split(pairs []string, bad func(pair string) error) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, bad(pair)
		}
		out[name] = value
	}
	return out, nil
}

// ParseKeyValuePairs parses repeated --erp-param key=value flags into
// driver connection parameters. Values are kept verbatim and may contain '='.
func ParseKeyValuePairs(pairs []string) (map[string]string, error) {
	return split(pairs, func(pair string) error {
		return fmt.Errorf("parameter %q is not in key=value format (example: --erp-param encrypt=disable)", pair)
	})
}

// ParseQueryOverrides parses repeated --query entity=SQL flags.
// Entity names are lowercased; the SQL is trimmed and must not be empty.
func ParseQueryOverrides(pairs []string) (map[string]string, error) {
	raw, err := split(pairs, func(pair string) error {
		return fmt.Errorf("query override %q is not in entity=SQL format (example: --query item=\"select * from dbo.items\")", pair)
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(raw))
	for name, query := range raw {
		name = strings.ToLower(name)
		query = strings.TrimSpace(query)
		if query == "" {
			return nil, fmt.Errorf("query override for %s is empty", name)
		}
		out[name] = query
	}
	return out, nil
}
