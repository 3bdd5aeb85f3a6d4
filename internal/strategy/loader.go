package strategy

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a profile YAML file and returns it with the raw bytes.
func Load(path string) (*Profile, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	profile, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	return profile, data, nil
}

// Parse decodes and validates profile YAML. Unknown fields fail the
// decode, so a typoed threshold never silently falls back to a default.
func Parse(data []byte) (*Profile, error) {
	var profile Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&profile); err != nil {
		return nil, err
	}

	if err := Validate(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Hash returns the profile's canonical fingerprint. Structs marshal to
// JSON in declaration order, so equal profiles hash equal regardless of
// their YAML formatting.
func Hash(profile *Profile) (string, error) {
	jsonBytes, err := json.Marshal(profile)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
