// pkg/imaging/descriptor.go - the canonical unit of the image catalog.

package imaging

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Kind classifies the imaging file format of a catalog entry.
type Kind string

const (
	KindWIM Kind = "WIM"
	KindFFU Kind = "FFU"
	KindESD Kind = "ESD"
	KindISO Kind = "ISO"
)

// Source records which resolution source produced a descriptor.
// Config-sourced metadata wins over filesystem-discovered metadata when
// both exist for the same identity.
type Source string

const (
	SourceConfig     Source = "config"
	SourceFilesystem Source = "filesystem"
	SourceDefault    Source = "default"
	SourceOverride   Source = "override"
)

// Edition sentinels. Pre-baked customer images carry "Custom Image" and
// never go through edition disambiguation; filesystem-discovered WIMs
// carry "Discovered Image" and are treated the same way.
const (
	EditionCustom     = "Custom Image"
	EditionDiscovered = "Discovered Image"
)

// Descriptor is one deployable image offered to the operator. Identity
// for dedup purposes is the (ID, Path) pair. A descriptor surfaced to
// the operator always has Exists == true.
type Descriptor struct {
	ID          string
	Name        string
	Description string
	Path        string
	Kind        Kind
	Active      bool
	Edition     string

	// Deployment-option flags are presence-tagged: nil means the source
	// declared nothing and the selection builder applies the default for
	// the descriptor's kind.
	RequiredUpdates *bool
	ApplyUnattend   *bool
	DriverInject    *bool

	Exists   bool
	SizeGB   float64 // snapshot at scan time, rounded to 0.01 GiB
	Modified time.Time

	WindowsVersion string
	BuildVersion   string
	Source         Source
}

// Identity returns the dedup key for this descriptor. Paths are folded
// since Windows filesystems are case-insensitive.
func (d Descriptor) Identity() string {
	return d.ID + "|" + strings.ToLower(filepath.Clean(d.Path))
}

// IsCustom reports whether the descriptor is a customer image that needs
// no edition disambiguation.
func (d Descriptor) IsCustom() bool {
	return d.Edition == EditionCustom || d.Edition == EditionDiscovered
}

// KindFromPath infers the image kind from a file extension. Unknown
// extensions classify as WIM, the most permissive apply path.
func KindFromPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ffu":
		return KindFFU
	case ".esd":
		return KindESD
	case ".iso":
		return KindISO
	default:
		return KindWIM
	}
}

// Severity grades a diagnostic emitted during catalog resolution.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is one non-fatal observation from a scan or resolution
// step. Catalog building always returns a value plus diagnostics;
// nothing in this package raises for filesystem variance.
type Diagnostic struct {
	Severity Severity
	Message  string
	Path     string
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", d.Severity, d.Message, d.Path)
}

func boolPtr(v bool) *bool { return &v }

func samePath(a, b string) bool {
	return strings.EqualFold(filepath.Clean(a), filepath.Clean(b))
}
