package config

import (
	"fmt"
	"sort"
	"strings"
)

// RequireNonEmpty reports every env key whose value is empty.
func RequireNonEmpty(values map[string]string) error {
	var missing []string
	for name, v := range values {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("missing required env: %s", strings.Join(missing, ", "))
}
