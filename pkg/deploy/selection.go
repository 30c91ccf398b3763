// pkg/deploy/selection.go - assembling the final deployment descriptor.
//
// The Selection is the one record the external deployment engine
// consumes. It is built in full or not at all; a selection missing its
// identity is rejected so the UI can re-prompt.

package deploy

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/YuukiRose/PEDeploy-sub001/pkg/customer"
	"github.com/YuukiRose/PEDeploy-sub001/pkg/deviceinfo"
	"github.com/YuukiRose/PEDeploy-sub001/pkg/editions"
	"github.com/YuukiRose/PEDeploy-sub001/pkg/imaging"
	"github.com/YuukiRose/PEDeploy-sub001/pkg/logging"
)

// ErrInvalidSelection means the chosen catalog entry lacks required
// identity or the flow didn't supply the inputs its kind needs.
var ErrInvalidSelection = errors.New("invalid selection")

// Session carries the operator context for one deployment flow. It
// replaces ambient form state: everything the selection needs travels
// through this struct explicitly.
type Session struct {
	SessionID    string
	CustomerName string
	OrderNumber  string
	Device       deviceinfo.Info
}

// NewSession opens a deployment session for the given customer.
func NewSession(customerName, orderNumber string, device deviceinfo.Info) *Session {
	return &Session{
		SessionID:    uuid.NewString(),
		CustomerName: customerName,
		OrderNumber:  orderNumber,
		Device:       device,
	}
}

// Options are the per-deployment flags the operator chooses
// interactively for ISO-sourced installs.
type Options struct {
	RequiredUpdates bool
	ApplyUnattend   bool
	DriverInject    bool
}

// Selection is the immutable deployment descriptor handed to the
// external deployment engine.
type Selection struct {
	SelectionID string `json:"selection_id"`
	Name        string `json:"name"`
	FullPath    string `json:"full_path"`
	ISOPath     string `json:"iso_path,omitempty"`
	ImageIndex  int    `json:"image_index"`
	Edition     string `json:"edition"`

	RequiredUpdates bool `json:"required_updates"`
	ApplyUnattend   bool `json:"apply_unattend"`
	DriverInject    bool `json:"driver_inject"`

	CustomerName string          `json:"customer_name"`
	OrderNumber  string          `json:"order_number,omitempty"`
	DeviceInfo   deviceinfo.Info `json:"device_info"`
}

// Builder assembles selections against a customer profile's deployment
// defaults.
type Builder struct {
	Profile *customer.Profile
}

// NewBuilder returns a Builder for the given profile.
func NewBuilder(profile *customer.Profile) *Builder {
	return &Builder{Profile: profile}
}

// BuildSelection assembles the deployment descriptor for the chosen
// catalog entry. Which inputs matter depends on the entry:
//
//   - FFU: single-edition by construction; flags come from the entry.
//   - Custom images: flags from the entry, defaulted with a warning when
//     absent, since declared customer images are expected to carry them.
//   - ISO: FullPath is the mounted install.wim (the ISO path is retained
//     separately for cleanup); flags come from the operator's Options.
//   - Base ESD/WIM: flags from the profile's deployment-settings defaults.
func (b *Builder) BuildSelection(entry imaging.Descriptor, chosen *editions.Option, opts *Options, mount *editions.Mount, session *Session) (*Selection, error) {
	if entry.ID == "" {
		return nil, fmt.Errorf("%w: catalog entry has no ID", ErrInvalidSelection)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: no session context", ErrInvalidSelection)
	}

	sel := &Selection{
		SelectionID:  uuid.NewString(),
		Name:         entry.Name,
		FullPath:     entry.Path,
		Edition:      entry.Edition,
		CustomerName: session.CustomerName,
		OrderNumber:  session.OrderNumber,
		DeviceInfo:   session.Device,
	}

	switch {
	case entry.Kind == imaging.KindFFU:
		// FFU images carry exactly one edition; no disambiguation ever.
		sel.RequiredUpdates = customer.BoolDefault(entry.RequiredUpdates, false)
		sel.ApplyUnattend = customer.BoolDefault(entry.ApplyUnattend, true)
		sel.DriverInject = customer.BoolDefault(entry.DriverInject, true)

	case entry.Kind == imaging.KindISO:
		if mount == nil {
			return nil, fmt.Errorf("%w: ISO entry %q has no active mount", ErrInvalidSelection, entry.ID)
		}
		if chosen == nil {
			return nil, fmt.Errorf("%w: ISO entry %q needs a chosen edition", ErrInvalidSelection, entry.ID)
		}
		if opts == nil {
			return nil, fmt.Errorf("%w: ISO entry %q needs operator-chosen options", ErrInvalidSelection, entry.ID)
		}
		sel.FullPath = mount.InstallWIM()
		sel.ISOPath = mount.ISOPath
		sel.ImageIndex = chosen.Index
		sel.Edition = chosen.Name
		sel.RequiredUpdates = opts.RequiredUpdates
		sel.ApplyUnattend = opts.ApplyUnattend
		sel.DriverInject = opts.DriverInject

	case entry.IsCustom():
		sel.ImageIndex = 1
		sel.RequiredUpdates = defaultedFlag(entry, "RequiredUpdates", entry.RequiredUpdates, false)
		sel.ApplyUnattend = defaultedFlag(entry, "ApplyUnattend", entry.ApplyUnattend, true)
		sel.DriverInject = defaultedFlag(entry, "DriverInject", entry.DriverInject, true)

	default:
		// Base ESD/WIM image.
		if chosen == nil {
			return nil, fmt.Errorf("%w: base entry %q needs a chosen edition", ErrInvalidSelection, entry.ID)
		}
		sel.ImageIndex = chosen.Index
		sel.Edition = chosen.Name
		sel.RequiredUpdates = b.Profile.Deployment.RequiredUpdates()
		sel.ApplyUnattend = b.Profile.Deployment.ApplyUnattend()
		sel.DriverInject = b.Profile.Deployment.DriverInject()
	}

	logging.Info("Deployment selection built",
		"selection", sel.SelectionID, "image", entry.ID, "path", sel.FullPath,
		"index", sel.ImageIndex, "edition", sel.Edition,
		"updates", sel.RequiredUpdates, "unattend", sel.ApplyUnattend, "drivers", sel.DriverInject)
	return sel, nil
}

// Cancel unwinds an abandoned selection flow. The mount, if any, is
// dismounted before control returns to the catalog browser.
func Cancel(mount *editions.Mount) {
	if mount == nil {
		return
	}
	logging.Info("Selection cancelled, releasing ISO mount", "iso", mount.ISOPath)
	_ = mount.Dismount()
}

// defaultedFlag resolves a presence-tagged flag, warning when the
// default kicks in. Declared custom images are expected to always carry
// explicit flags.
func defaultedFlag(entry imaging.Descriptor, name string, v *bool, def bool) bool {
	if v == nil {
		logging.Warn("Custom image missing deployment flag, applying default",
			"image", entry.ID, "flag", name, "default", def)
		return def
	}
	return *v
}
