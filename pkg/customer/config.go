// pkg/customer/config.go - loading and normalizing per-customer Config.json.

package customer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuukiRose/PEDeploy-sub001/pkg/logging"
)

// ConfigFileName is the per-customer configuration document.
const ConfigFileName = "Config.json"

var (
	// ErrConfigurationMissing means neither the customer's Config.json nor
	// the default customer's exists.
	ErrConfigurationMissing = errors.New("customer configuration missing")

	// ErrConfigurationInvalid means both the customer's Config.json and the
	// default fallback failed to parse.
	ErrConfigurationInvalid = errors.New("customer configuration invalid")
)

// Store loads customer profiles from a config root directory laid out as
// <root>/<CustomerName>/Config.json.
type Store struct {
	ConfigRoot      string
	DefaultCustomer string
}

// NewStore returns a Store over the given config root.
func NewStore(configRoot, defaultCustomer string) *Store {
	return &Store{ConfigRoot: configRoot, DefaultCustomer: defaultCustomer}
}

// LoadProfile reads and normalizes the named customer's configuration.
// A missing or unparseable customer document falls back to the default
// customer's document before failing. The returned profile keeps the
// requested customer's name and directory either way, so image scans
// still target the selected customer.
func (s *Store) LoadProfile(name string) (*Profile, error) {
	dir := filepath.Join(s.ConfigRoot, name)

	doc, err := s.loadDocument(name)
	if err != nil {
		return nil, err
	}

	return parseProfile(name, dir, doc), nil
}

// loadDocument reads the customer's Config.json with default-customer
// fallback on absence or parse failure.
func (s *Store) loadDocument(name string) (map[string]any, error) {
	path := filepath.Join(s.ConfigRoot, name, ConfigFileName)

	doc, err := readDocument(path)
	if err == nil {
		return doc, nil
	}

	if name == s.DefaultCustomer {
		if isNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigurationMissing, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigurationInvalid, path, err)
	}

	customerErr := err
	fallbackPath := filepath.Join(s.ConfigRoot, s.DefaultCustomer, ConfigFileName)
	logging.Warn("Customer config unavailable, trying default customer",
		"customer", name, "path", path, "error", customerErr, "fallback", fallbackPath)

	doc, err = readDocument(fallbackPath)
	if err == nil {
		logging.Info("Using default customer configuration", "customer", name, "fallback", fallbackPath)
		return doc, nil
	}

	if isNotExist(customerErr) && isNotExist(err) {
		return nil, fmt.Errorf("%w: neither %s nor %s exists", ErrConfigurationMissing, path, fallbackPath)
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrConfigurationInvalid, path, customerErr)
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// readDocument reads and parses one Config.json into a normalized map.
func readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return normalizeDocument(raw), nil
}

// canonicalSections maps case-folded section names onto the spelling the
// rest of the code looks up. Hand-edited configs have shipped with both
// "BaseImages" and "baseImages" in the same document; the canonical key
// wins and the duplicate is discarded rather than failing the parse.
var canonicalSections = map[string]string{
	"wimimages":          "WIMImages",
	"ffuimages":          "FFUImages",
	"customerimages":     "CustomerImages",
	"baseimages":         "baseImages",
	"deploymentsettings": "DeploymentSettings",
}

// normalizeDocument rebuilds the parsed document as a canonical nested
// map. Top-level keys that differ only by case are folded onto the
// canonical spelling; every nested object is converted recursively.
func normalizeDocument(raw map[string]any) map[string]any {
	doc := make(map[string]any, len(raw))

	for key, value := range raw {
		folded := strings.ToLower(key)
		canonical, known := canonicalSections[folded]
		if !known {
			canonical = key
		}

		if existing, dup := doc[canonical]; dup {
			// Two case-variants of the same section. Keep whichever was
			// stored under the canonical spelling in the source document.
			if key == canonical {
				logging.Warn("Duplicate config section, preferring canonical key",
					"kept", key, "section", canonical)
				doc[canonical] = normalizeValue(value)
			} else {
				logging.Warn("Duplicate config section, discarding case-variant key",
					"discarded", key, "section", canonical)
				doc[canonical] = existing
			}
			continue
		}

		doc[canonical] = normalizeValue(value)
	}

	return doc
}

// normalizeValue converts nested objects to map[string]any and arrays to
// ordered []any all the way down.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = normalizeValue(inner)
		}
		return m
	case []any:
		arr := make([]any, len(val))
		for i, inner := range val {
			arr[i] = normalizeValue(inner)
		}
		return arr
	default:
		return v
	}
}
