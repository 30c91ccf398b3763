// pkg/customer/profile.go - canonical in-memory form of a customer Config.json.

package customer

import (
	"fmt"
	"sort"
	"strconv"
)

// Profile is the canonical in-memory form of one customer's configuration.
// It is replaced wholesale on reload and never partially mutated.
type Profile struct {
	Name string // customer name as selected by the operator
	Dir  string // customer directory under the config root

	WIMImages      []ImageEntry
	FFUImages      []ImageEntry
	CustomerImages []ImageEntry // legacy generic section

	BaseImageOverrides []BaseImageOverride
	Deployment         DeploymentSettings
}

// ImageEntry is one declared image record from a config section. Boolean
// fields are presence-tagged: nil means the config said nothing and the
// resolver applies the per-source default.
type ImageEntry struct {
	Key            string // the JSON key this entry was declared under
	ImageID        string
	Name           string
	Description    string
	Path           string
	Type           string // CaptureMethod/Type field: WIM, ESD, FFU
	Edition        string
	WindowsVersion string
	BuildVersion   string

	Active          *bool
	RequiredUpdates *bool
	ApplyUnattend   *bool
	DriverInject    *bool
}

// BaseImageOverride is one entry of the optional baseImages section,
// which acts as an authoritative filter over the discovered base catalog.
type BaseImageOverride struct {
	Key            string
	ImageID        string
	DisplayName    string
	Path           string
	WindowsVersion string
	BuildVersion   string
	Active         *bool
}

// DeploymentSettings carries the customer's default deployment-option
// flags for base-image installs. Each defaults to true when unset.
type DeploymentSettings struct {
	DefaultRequiredUpdates *bool
	DefaultApplyUnattend   *bool
	DefaultDriverInject    *bool
}

// RequiredUpdates resolves the default for update installation.
func (d DeploymentSettings) RequiredUpdates() bool { return BoolDefault(d.DefaultRequiredUpdates, true) }

// ApplyUnattend resolves the default for unattend application.
func (d DeploymentSettings) ApplyUnattend() bool { return BoolDefault(d.DefaultApplyUnattend, true) }

// DriverInject resolves the default for driver injection.
func (d DeploymentSettings) DriverInject() bool { return BoolDefault(d.DefaultDriverInject, true) }

// BoolDefault resolves a presence-tagged flag against its default.
func BoolDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// parseProfile converts a normalized document into a Profile.
func parseProfile(name, dir string, doc map[string]any) *Profile {
	p := &Profile{Name: name, Dir: dir}

	p.WIMImages = parseImageSection(doc, "WIMImages")
	p.FFUImages = parseImageSection(doc, "FFUImages")
	p.CustomerImages = parseImageSection(doc, "CustomerImages")

	if sec, ok := doc["baseImages"].(map[string]any); ok {
		for _, key := range sortedKeys(sec) {
			rec, ok := sec[key].(map[string]any)
			if !ok {
				continue
			}
			p.BaseImageOverrides = append(p.BaseImageOverrides, BaseImageOverride{
				Key:            key,
				ImageID:        getString(rec, "ImageID", "ID"),
				DisplayName:    getString(rec, "DisplayName", "ImageName", "Name"),
				Path:           getString(rec, "FullPath", "Path"),
				WindowsVersion: getString(rec, "WindowsVersion"),
				BuildVersion:   getString(rec, "BuildVersion"),
				Active:         getBool(rec, "active", "Active"),
			})
		}
	}

	if sec, ok := doc["DeploymentSettings"].(map[string]any); ok {
		p.Deployment = DeploymentSettings{
			DefaultRequiredUpdates: getBool(sec, "DefaultRequiredUpdates"),
			DefaultApplyUnattend:   getBool(sec, "DefaultApplyUnattend"),
			DefaultDriverInject:    getBool(sec, "DefaultDriverInject"),
		}
	}

	return p
}

// parseImageSection extracts one image section into ordered entries.
// JSON objects carry no order, so entries are ordered by key for
// deterministic catalogs.
func parseImageSection(doc map[string]any, section string) []ImageEntry {
	sec, ok := doc[section].(map[string]any)
	if !ok {
		return nil
	}

	var entries []ImageEntry
	for _, key := range sortedKeys(sec) {
		rec, ok := sec[key].(map[string]any)
		if !ok {
			continue
		}
		entries = append(entries, ImageEntry{
			Key:             key,
			ImageID:         getString(rec, "ImageID", "ID"),
			Name:            getString(rec, "ImageName", "Name", "DisplayName"),
			Description:     getString(rec, "Description"),
			Path:            getString(rec, "FullPath", "Path"),
			Type:            getString(rec, "CaptureMethod", "Type"),
			Edition:         getString(rec, "Edition"),
			WindowsVersion:  getString(rec, "WindowsVersion"),
			BuildVersion:    getString(rec, "BuildVersion"),
			Active:          getBool(rec, "active", "Active"),
			RequiredUpdates: getBool(rec, "RequiredUpdates"),
			ApplyUnattend:   getBool(rec, "ApplyUnattend"),
			DriverInject:    getBool(rec, "DriverInject"),
		})
	}
	return entries
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// getString returns the first of the named fields present as a non-empty
// string. Numeric values are stringified since hand-edited configs
// sometimes carry bare numbers for version fields.
func getString(rec map[string]any, names ...string) string {
	for _, n := range names {
		switch v := rec[n].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// getBool returns the first of the named fields present as a boolean,
// or nil when none is declared. String forms ("true", "1") are accepted
// since the legacy configs were written by hand.
func getBool(rec map[string]any, names ...string) *bool {
	for _, n := range names {
		v, ok := rec[n]
		if !ok {
			continue
		}
		switch b := v.(type) {
		case bool:
			return &b
		case string:
			if parsed, err := strconv.ParseBool(b); err == nil {
				return &parsed
			}
		case float64:
			parsed := b != 0
			return &parsed
		}
	}
	return nil
}

// String identifies an entry in log output.
func (e ImageEntry) String() string {
	return fmt.Sprintf("%s (%s)", e.ImageID, e.Path)
}
