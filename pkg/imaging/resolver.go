// pkg/imaging/resolver.go - the catalog merge/filter/dedup engine.
//
// Declared config images, filesystem-discovered images and the static
// default base-image table are reconciled here into the one catalog the
// operator picks from. Building is best-effort throughout: failures
// degrade to an empty result plus diagnostics, never an error.

package imaging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/YuukiRose/PEDeploy-sub001/pkg/customer"
	"github.com/YuukiRose/PEDeploy-sub001/pkg/logging"
	"github.com/YuukiRose/PEDeploy-sub001/pkg/version"
)

// DefaultBaseImage is one entry of the static well-known base image
// table, located relative to the base images root.
type DefaultBaseImage struct {
	WindowsVersion string
	BuildVersion   string
	RelPath        string
}

// DefaultBaseImages lists the stock images every deployment share is
// expected to carry. An entry is only surfaced when its file is actually
// present; missing defaults are excluded without comment in the catalog.
var DefaultBaseImages = []DefaultBaseImage{
	{"10", "19045", filepath.Join("Windows", "10", "19045", "install.esd")},
	{"11", "22631", filepath.Join("Windows", "11", "22631", "install.esd")},
	{"11", "26100", filepath.Join("Windows", "11", "26100", "install.esd")},
}

// Resolver merges config-declared, filesystem-discovered and default
// images into deduplicated, existence-verified catalogs.
type Resolver struct {
	Scanner  *Scanner
	Defaults []DefaultBaseImage
}

// NewResolver returns a Resolver over the given scanner with the stock
// default table.
func NewResolver(scanner *Scanner) *Resolver {
	return &Resolver{Scanner: scanner, Defaults: DefaultBaseImages}
}

// BuildCustomerCatalog resolves the customer's declared WIM/FFU/legacy
// sections plus their on-disk .wim files into one catalog. Sections are
// scanned in WIMImages, FFUImages, CustomerImages order; an ImageID
// re-declared in a later section keeps the first declaration.
func (r *Resolver) BuildCustomerCatalog(profile *customer.Profile) ([]Descriptor, []Diagnostic) {
	var catalog []Descriptor
	var diags []Diagnostic

	sections := []struct {
		name    string
		entries []customer.ImageEntry
	}{
		{"WIMImages", profile.WIMImages},
		{"FFUImages", profile.FFUImages},
		{"CustomerImages", profile.CustomerImages},
	}

	declaredIDs := make(map[string]string)
	for _, section := range sections {
		for _, entry := range section.entries {
			id := entry.ImageID
			if id == "" {
				id = entry.Key
			}
			if first, dup := declaredIDs[id]; dup {
				logging.Warn("Image ID declared in multiple config sections, first declaration wins",
					"id", id, "kept", first, "ignored", section.name)
				diags = append(diags, Diagnostic{SeverityWarning,
					fmt.Sprintf("image %q re-declared in %s, keeping %s declaration", id, section.name, first),
					entry.Path})
				continue
			}
			declaredIDs[id] = section.name
			catalog = append(catalog, descriptorFromEntry(id, entry))
		}
	}

	discovered, scanDiags := r.Scanner.ScanCustomerImages(profile.Name)
	diags = append(diags, scanDiags...)

	for _, d := range discovered {
		if matchesDeclaredPath(catalog, d.Path) {
			// Config metadata wins over the filesystem hit for this path.
			logging.Debug("Discovered image already declared in config", "path", d.Path)
			continue
		}
		d.Edition = EditionDiscovered
		d.RequiredUpdates = boolPtr(false)
		d.ApplyUnattend = boolPtr(true)
		d.DriverInject = boolPtr(true)
		catalog = append(catalog, d)
	}

	catalog = filterActive(catalog, &diags)
	catalog = r.finalize(catalog, &diags)
	return catalog, diags
}

// BuildBaseCatalog resolves the base Windows image catalog: filesystem
// scan first, static defaults unioned in, then the profile's baseImages
// section applied as an authoritative filter when present.
func (r *Resolver) BuildBaseCatalog(profile *customer.Profile) ([]Descriptor, []Diagnostic) {
	catalog, diags := r.Scanner.ScanBaseImages()

	for _, def := range r.Defaults {
		path := filepath.Join(r.Scanner.BaseImagesRoot, def.RelPath)
		id := BaseImageID(def.WindowsVersion, def.BuildVersion)
		if findDescriptor(catalog, id, path, "") != nil {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			// A default that isn't on disk is excluded, never shown as missing.
			logging.Debug("Default base image not present", "id", id, "path", path)
			continue
		}
		catalog = append(catalog, Descriptor{
			ID:             id,
			Name:           fmt.Sprintf("Windows %s (%s)", def.WindowsVersion, def.BuildVersion),
			Path:           path,
			Kind:           KindFromPath(path),
			Active:         true,
			Exists:         true,
			SizeGB:         roundSizeGB(info.Size()),
			Modified:       info.ModTime(),
			WindowsVersion: def.WindowsVersion,
			BuildVersion:   def.BuildVersion,
			Source:         SourceDefault,
		})
	}

	if len(profile.BaseImageOverrides) > 0 {
		catalog = r.applyOverrides(profile, catalog, &diags)
	}

	catalog = r.finalize(catalog, &diags)
	sortBaseCatalog(catalog)
	return catalog, diags
}

// applyOverrides filters the base catalog down to the images named in
// the profile's baseImages section.
func (r *Resolver) applyOverrides(profile *customer.Profile, catalog []Descriptor, diags *[]Diagnostic) []Descriptor {
	var filtered []Descriptor

	for _, ov := range profile.BaseImageOverrides {
		if !customer.BoolDefault(ov.Active, true) {
			logging.Debug("Skipping inactive base image override", "key", ov.Key)
			continue
		}

		if match := findDescriptor(catalog, ov.ImageID, ov.Path, ov.DisplayName); match != nil {
			d := *match
			if ov.DisplayName != "" {
				d.Name = ov.DisplayName
			}
			if ov.WindowsVersion != "" {
				d.WindowsVersion = ov.WindowsVersion
			}
			if ov.BuildVersion != "" {
				d.BuildVersion = ov.BuildVersion
			}
			d.Source = SourceOverride
			filtered = append(filtered, d)
			continue
		}

		if ov.Path != "" {
			if info, err := os.Stat(ov.Path); err == nil {
				id := ov.ImageID
				if id == "" {
					id = ov.Key
				}
				name := ov.DisplayName
				if name == "" {
					name = ov.Key
				}
				filtered = append(filtered, Descriptor{
					ID:             id,
					Name:           name,
					Path:           ov.Path,
					Kind:           KindFromPath(ov.Path),
					Active:         true,
					Exists:         true,
					SizeGB:         roundSizeGB(info.Size()),
					Modified:       info.ModTime(),
					WindowsVersion: ov.WindowsVersion,
					BuildVersion:   ov.BuildVersion,
					Source:         SourceOverride,
				})
				continue
			}
		}

		logging.Warn("Base image override matched nothing on storage, dropping",
			"key", ov.Key, "id", ov.ImageID, "path", ov.Path)
		*diags = append(*diags, Diagnostic{SeverityWarning,
			fmt.Sprintf("base image override %q matched nothing on storage", ov.Key), ov.Path})
	}

	return filtered
}

// finalize deduplicates by (ID, Path) and drops anything no longer on
// storage. The existence check here is a fresh stat, independent of the
// scan-time check, guarding against files deleted between scan and use.
func (r *Resolver) finalize(catalog []Descriptor, diags *[]Diagnostic) []Descriptor {
	seen := make(map[string]bool)
	var result []Descriptor

	for _, d := range catalog {
		key := d.Identity()
		if seen[key] {
			logging.Debug("Duplicate catalog identity dropped", "id", d.ID, "path", d.Path)
			continue
		}
		seen[key] = true

		info, err := os.Stat(d.Path)
		if err != nil {
			logging.Warn("Dropping image no longer present on storage", "id", d.ID, "path", d.Path)
			*diags = append(*diags, Diagnostic{SeverityWarning,
				fmt.Sprintf("image %q no longer present on storage", d.ID), d.Path})
			continue
		}
		d.Exists = true
		if d.SizeGB == 0 {
			d.SizeGB = roundSizeGB(info.Size())
		}
		if d.Modified.IsZero() {
			d.Modified = info.ModTime()
		}
		result = append(result, d)
	}

	return result
}

// filterActive drops descriptors flagged inactive before they can reach
// the operator.
func filterActive(catalog []Descriptor, diags *[]Diagnostic) []Descriptor {
	var result []Descriptor
	for _, d := range catalog {
		if !d.Active {
			logging.Info("Skipping inactive image", "id", d.ID, "path", d.Path)
			*diags = append(*diags, Diagnostic{SeverityInfo,
				fmt.Sprintf("image %q is inactive", d.ID), d.Path})
			continue
		}
		result = append(result, d)
	}
	return result
}

// descriptorFromEntry converts one declared config record into a
// descriptor. Active defaults true; a missing edition marks the entry as
// a pre-baked custom image.
func descriptorFromEntry(id string, entry customer.ImageEntry) Descriptor {
	name := entry.Name
	if name == "" {
		name = entry.Key
	}
	kind := classifyType(entry.Type, entry.Path)
	edition := entry.Edition
	// ISO sources always go through edition disambiguation; everything
	// else declared without an edition is a pre-baked custom image.
	if edition == "" && kind != KindISO {
		edition = EditionCustom
	}
	return Descriptor{
		ID:              id,
		Name:            name,
		Description:     entry.Description,
		Path:            entry.Path,
		Kind:            kind,
		Active:          customer.BoolDefault(entry.Active, true),
		Edition:         edition,
		RequiredUpdates: entry.RequiredUpdates,
		ApplyUnattend:   entry.ApplyUnattend,
		DriverInject:    entry.DriverInject,
		WindowsVersion:  entry.WindowsVersion,
		BuildVersion:    entry.BuildVersion,
		Source:          SourceConfig,
	}
}

// classifyType maps a config Type/CaptureMethod field onto a Kind,
// falling back to extension inference when the field is absent.
func classifyType(declared, path string) Kind {
	switch strings.ToUpper(strings.TrimSpace(declared)) {
	case "FFU":
		return KindFFU
	case "WIM", "ESD":
		return KindWIM
	default:
		return KindFromPath(path)
	}
}

// matchesDeclaredPath reports whether a scan hit is already covered by a
// declared entry.
func matchesDeclaredPath(catalog []Descriptor, path string) bool {
	for _, d := range catalog {
		if d.Source == SourceConfig && samePath(d.Path, path) {
			return true
		}
	}
	return false
}

// findDescriptor matches by ID, path or display name, in that order of
// preference.
func findDescriptor(catalog []Descriptor, id, path, displayName string) *Descriptor {
	for i := range catalog {
		d := &catalog[i]
		if id != "" && d.ID == id {
			return d
		}
		if path != "" && samePath(d.Path, path) {
			return d
		}
		if displayName != "" && strings.EqualFold(d.Name, displayName) {
			return d
		}
	}
	return nil
}

// sortBaseCatalog orders base images newest first by Windows version and
// build so the default pick is the most current image.
func sortBaseCatalog(catalog []Descriptor) {
	sort.SliceStable(catalog, func(i, j int) bool {
		vi, vj := catalog[i], catalog[j]
		if c := compareVersions(vi.WindowsVersion, vj.WindowsVersion); c != 0 {
			return c > 0
		}
		if c := compareVersions(vi.BuildVersion, vj.BuildVersion); c != 0 {
			return c > 0
		}
		return vi.ID < vj.ID
	})
}

// compareVersions compares two version strings, tolerating anything
// go-version can't parse by falling back to string comparison. Trailing
// ".0" segments are stripped first so "10.0.19045.0" equals "10.0.19045".
func compareVersions(a, b string) int {
	a, b = version.Normalize(a), version.Normalize(b)
	va, errA := goversion.NewVersion(a)
	vb, errB := goversion.NewVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}
