package settings

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Kind is the value type of a setting.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStrings
)

// coerce converts v to the Go type for k (string, bool, int, float64, []string).
// Strings for KindStrings are split on commas, as environment variables carry them.
func coerce(k Kind, v any) (any, error) {
	switch k {
	case KindString:
		return cast.ToStringE(v)
	case KindBool:
		return cast.ToBoolE(v)
	case KindInt:
		return cast.ToIntE(v)
	case KindFloat:
		return cast.ToFloat64E(v)
	case KindStrings:
		if s, ok := v.(string); ok {
			return splitList(s), nil
		}
		return cast.ToStringSliceE(v)
	}
	return nil, fmt.Errorf("unsupported kind %d", k)
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func oneOf(field string, choices ...string) func(any) error {
	return func(v any) error {
		s := v.(string)
		for _, c := range choices {
			if s == c {
				return nil
			}
		}
		sorted := append([]string(nil), choices...)
		sort.Strings(sorted)
		return fmt.Errorf("%w: settings field `%s`: %q not in %v", ErrUsage, field, s, sorted)
	}
}

const projectInvalidChars = `/\#?%:`

func validateProject(v any) error {
	s := v.(string)
	if len(s) > 128 {
		return fmt.Errorf("%w: invalid project name %q: exceeded 128 characters", ErrUsage, s)
	}
	var found []string
	for _, c := range projectInvalidChars {
		if strings.ContainsRune(s, c) {
			found = append(found, string(c))
		}
	}
	if len(found) > 0 {
		return fmt.Errorf("%w: invalid project name %q: cannot contain characters %q, found %q",
			ErrUsage, s, strings.Join(strings.Split(projectInvalidChars, ""), ","), strings.Join(found, ","))
	}
	return nil
}

// appHosts serve the web app, not the API; pointing the client at them is a common mistake.
var appHosts = map[string]bool{
	"runtrack.dev":     true,
	"app.runtrack.dev": true,
}

func validateBaseURL(v any) error {
	s := v.(string)
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("%w: invalid base_url %q: %v", ErrUsage, s, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: invalid base_url %q: want an http(s) URL", ErrUsage, s)
	}
	host := u.Hostname()
	if appHosts[host] {
		return fmt.Errorf("%w: base_url %q points at the web app; use %s", ErrUsage, s, DefaultBaseURL)
	}
	if host == "api.runtrack.dev" && u.Scheme != "https" {
		return fmt.Errorf("%w: base_url %q must use https", ErrUsage, s)
	}
	return nil
}

func trimTrailingSlash(v any) (any, error) {
	return strings.TrimRight(v.(string), "/"), nil
}
