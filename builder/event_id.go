package builder

import (
	"fmt"
	"strings"
	"time"

	"github.com/trackify-io/trackify/utils"
)

// GenerateEventID returns {prefix}_{identifier}_{ksuid}_{unix}, without the
// identifier part when it is empty. Prefix and identifier are lowercased with
// every character outside [a-z0-9] replaced by an underscore. Every call gets
// a fresh KSUID, so two calls never return the same id.
//
// The same id must be used by the pixel and by the server side send of one
// action, otherwise Meta counts it twice. Callers share the returned id, it
// cannot be derived twice.
func GenerateEventID(prefix, identifier string) string {
	prefix = sanitize(prefix)
	if prefix == "" {
		prefix = "event"
	}
	if identifier = sanitize(identifier); identifier != "" {
		prefix += "_" + identifier
	}
	return fmt.Sprintf("%s_%s_%d", prefix, utils.KSUID(), time.Now().Unix())
}

func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, s)
}
