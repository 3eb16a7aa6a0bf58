package placement

import (
	"encoding/json"
	"fmt"
)

// Resolution is the operator's choice of source of truth for one divergent entity
type Resolution int

const (
	// ResolutionSkip leaves the entity untouched
	ResolutionSkip Resolution = iota
	// ResolutionKeepMirror treats the mirror field as authoritative and rewrites the ledger
	ResolutionKeepMirror
	// ResolutionKeepLedger treats the open period as authoritative and rewrites the mirror
	ResolutionKeepLedger
)

var resolutionNames = map[Resolution]string{
	ResolutionSkip:       "skip",
	ResolutionKeepMirror: "keep_mirror",
	ResolutionKeepLedger: "keep_ledger",
}

// String returns the wire name of the resolution
func (r Resolution) String() string {
	if name, ok := resolutionNames[r]; ok {
		return name
	}
	return fmt.Sprintf("resolution(%d)", int(r))
}

// ParseResolution parses a wire name into a Resolution
func ParseResolution(s string) (Resolution, error) {
	for r, name := range resolutionNames {
		if name == s {
			return r, nil
		}
	}
	return ResolutionSkip, fmt.Errorf("%w: %q", ErrUnknownResolution, s)
}

// MarshalJSON encodes the resolution by name
func (r Resolution) MarshalJSON() ([]byte, error) {
	name, ok := resolutionNames[r]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownResolution, int(r))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a resolution name
func (r *Resolution) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseResolution(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
