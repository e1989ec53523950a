package http

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	namedAddress = regexp.MustCompile("^[a-zA-Z0-9 ._'`-]+ <[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\\.[a-zA-Z]{2,}>$")
	bareAddress  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ValidAddress accepts "addr@host.tld" and "Name <addr@host.tld>".
func ValidAddress(a string) bool {
	return bareAddress.MatchString(a) || namedAddress.MatchString(a)
}

// addressList decodes either a single comma separated string or an array of
// strings.
type addressList []string

func (l *addressList) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*l = splitList(single)
		return nil
	}

	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return errors.New("expected a string or an array of strings")
	}

	var out []string
	for _, a := range many {
		out = append(out, splitList(a)...)
	}
	*l = out

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}

	return out
}
