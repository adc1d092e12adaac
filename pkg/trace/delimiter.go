package trace

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matzehuels/tracegraph/pkg/errors"
)

// Delimiter names a position-boundary marker and the trace producer that
// emits it.
type Delimiter struct {
	Name     string // Profile name used in config files and flags
	Marker   string // Literal marker line text
	Producer string // Trace producer version that emits Marker
}

// Known delimiter profiles.
var (
	// DelimiterIndex matches producers that label each position by the index
	// of the input character being scanned. This is the current format.
	DelimiterIndex = Delimiter{
		Name:     "index",
		Marker:   "// End of index",
		Producer: "regit matcher with per-index tracing",
	}

	// DelimiterOffset matches the earlier producer that labelled positions by
	// byte offset into the input.
	DelimiterOffset = Delimiter{
		Name:     "offset",
		Marker:   "// End of offset",
		Producer: "regit matcher with per-offset tracing (earlier format)",
	}
)

// DefaultDelimiter is used when no profile is configured.
var DefaultDelimiter = DelimiterIndex

// CustomName is the profile name reported for user-supplied markers.
const CustomName = "custom"

var profiles = map[string]Delimiter{
	DelimiterIndex.Name:  DelimiterIndex,
	DelimiterOffset.Name: DelimiterOffset,
}

// LookupDelimiter returns the named profile.
// An empty name selects [DefaultDelimiter].
func LookupDelimiter(name string) (Delimiter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultDelimiter, nil
	}
	d, ok := profiles[name]
	if !ok {
		return Delimiter{}, errors.New(errors.ErrCodeInvalidDelimiter,
			"unknown delimiter %q (must be one of: %s)", name, strings.Join(DelimiterNames(), ", "))
	}
	return d, nil
}

// CustomDelimiter returns a delimiter for an explicit marker string.
func CustomDelimiter(marker string) (Delimiter, error) {
	if err := errors.ValidateMarker(marker); err != nil {
		return Delimiter{}, err
	}
	return Delimiter{Name: CustomName, Marker: marker, Producer: "user supplied"}, nil
}

// ResolveDelimiter picks the delimiter for a run. A non-empty marker wins over
// the profile name.
func ResolveDelimiter(name, marker string) (Delimiter, error) {
	if marker != "" {
		return CustomDelimiter(marker)
	}
	return LookupDelimiter(name)
}

// DelimiterNames returns the known profile names in sorted order.
func DelimiterNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String returns the profile name and marker.
func (d Delimiter) String() string {
	return fmt.Sprintf("%s (%q)", d.Name, d.Marker)
}
