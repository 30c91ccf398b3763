// pkg/editions/editions.go - resolving installable Windows editions.
//
// Multi-edition containers (ESD/WIM/ISO) need the operator to pick an
// edition index before deployment. Inspection is delegated to an
// external collaborator (DISM in production); when it fails or its
// output format drifts, a static Enterprise/Pro fallback keeps the flow
// moving, because those are the only editions ever distributed in this
// environment's ESD files.

package editions

import (
	"github.com/YuukiRose/PEDeploy-sub001/pkg/imaging"
	"github.com/YuukiRose/PEDeploy-sub001/pkg/logging"
)

// Option is one selectable Windows edition inside an image container.
// Ephemeral: constructed fresh per inspection call, never persisted.
type Option struct {
	Index        int
	Name         string
	Description  string
	Architecture string
	Version      string
}

// Inspector is the external image-inspection collaborator.
type Inspector interface {
	ImageInfo(path string) ([]Option, error)
}

// Mounter is the external ISO-mounting collaborator.
type Mounter interface {
	Mount(isoPath string) (*Mount, error)
}

// Resolver turns an image source into its selectable editions.
type Resolver struct {
	Inspector Inspector
	Mounter   Mounter
}

// NewResolver returns a Resolver over the production DISM and
// PowerShell collaborators.
func NewResolver() *Resolver {
	return &Resolver{Inspector: &DISMInspector{}, Mounter: &PowerShellMounter{}}
}

// ResolveEditions returns the editions available in the given source,
// in the order the inspection tool reports them; the first element is
// the UI's default selection. For ISO sources the returned Mount stays
// active and the caller owns the dismount once the selection flow
// finishes or is cancelled. Never returns an error: failures degrade to
// the static fallback or an empty sequence.
func (r *Resolver) ResolveEditions(path string, kind imaging.Kind, versionHint string) ([]Option, *Mount) {
	if kind == imaging.KindISO {
		mount, err := r.Mounter.Mount(path)
		if err != nil {
			logging.Warn("ISO mount failed, no editions available", "path", path, "error", err)
			return nil, nil
		}

		options, err := r.Inspector.ImageInfo(mount.InstallWIM())
		if err != nil || len(options) == 0 {
			logging.Warn("ISO inspection returned no editions, using fallback set",
				"path", path, "wim", mount.InstallWIM(), "error", err)
			return FallbackEditions(versionHint), mount
		}
		return options, mount
	}

	options, err := r.Inspector.ImageInfo(path)
	if err != nil || len(options) == 0 {
		logging.Warn("Image inspection returned no editions, using fallback set",
			"path", path, "error", err)
		return FallbackEditions(versionHint), nil
	}
	return options, nil
}

// FallbackEditions is the static edition set substituted when
// inspection fails: Enterprise at index 4, Pro at index 6, the layout
// of every ESD distributed here.
func FallbackEditions(versionHint string) []Option {
	return []Option{
		{Index: 4, Name: "Windows Enterprise", Description: "Windows Enterprise edition", Architecture: "x64", Version: versionHint},
		{Index: 6, Name: "Windows Pro", Description: "Windows Pro edition", Architecture: "x64", Version: versionHint},
	}
}
