package mcp

import (
	"os"
	"regexp"
	"sort"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandPlaceholders replaces ${VAR} with the value from the process
// environment. Unset variables expand to the empty string. Bare $VAR is left
// alone so arguments containing dollar signs survive.
func ExpandPlaceholders(s string) string {
	return expandWith(s, os.Getenv)
}

func expandWith(s string, lookup func(string) string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		return lookup(name)
	})
}

// ExpandArgs applies ExpandPlaceholders to every argument.
func ExpandArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = ExpandPlaceholders(arg)
	}
	return out
}

// BuildEnv merges configured overrides into base (KEY=VALUE form). Overrides
// win over base entries with the same key; values get placeholder expansion.
func BuildEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}

	env := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, overridden := overrides[key]; overridden {
			continue
		}
		env = append(env, kv)
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		env = append(env, k+"="+ExpandPlaceholders(overrides[k]))
	}
	return env
}
