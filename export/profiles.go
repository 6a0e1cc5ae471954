package export

import (
	"fmt"
	"sort"
)

// Profile determines which ontology type assertions are included in the export.
type Profile string

const (
	// ProfileMinimal includes architecture and PROV-O types only.
	ProfileMinimal Profile = "minimal"

	// ProfileBFO adds BFO type assertions to the minimal profile.
	ProfileBFO Profile = "bfo"

	// ProfileCCO adds CCO type assertions to the BFO profile.
	ProfileCCO Profile = "cco"
)

// ProfileConfig contains configuration for an export profile.
type ProfileConfig struct {
	Name        Profile
	Description string
	IncludeBFO  bool
	IncludeCCO  bool
}

// Profiles contains the configuration for all available export profiles.
var Profiles = map[Profile]ProfileConfig{
	ProfileMinimal: {
		Name:        ProfileMinimal,
		Description: "Architecture classes and PROV-O only",
	},
	ProfileBFO: {
		Name:        ProfileBFO,
		Description: "Minimal profile plus BFO upper-ontology types",
		IncludeBFO:  true,
	},
	ProfileCCO: {
		Name:        ProfileCCO,
		Description: "BFO profile plus Common Core Ontology types",
		IncludeBFO:  true,
		IncludeCCO:  true,
	},
}

// GetProfileConfig returns the configuration for a profile.
func GetProfileConfig(profile Profile) (ProfileConfig, bool) {
	config, ok := Profiles[profile]
	return config, ok
}

// ParseProfile validates a profile name. Empty selects ProfileMinimal.
func ParseProfile(s string) (Profile, error) {
	if s == "" {
		return ProfileMinimal, nil
	}
	p := Profile(s)
	if _, ok := Profiles[p]; !ok {
		return "", fmt.Errorf("unknown profile %q (available: %v)", s, ListProfiles())
	}
	return p, nil
}

// ListProfiles returns the available profile names in sorted order.
func ListProfiles() []Profile {
	out := make([]Profile, 0, len(Profiles))
	for p := range Profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
