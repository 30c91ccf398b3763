// cmd/pedeploy/main.go - deployment selection driver.
//
// This is the command-line front for the catalog core: it resolves a
// customer's image catalog, picks an entry, resolves editions where the
// container needs disambiguation, and emits the deployment selection as
// JSON for the deployment engine. The WinPE form drives the same
// packages through the same calls.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/YuukiRose/PEDeploy-sub001/pkg/customer"
	"github.com/YuukiRose/PEDeploy-sub001/pkg/deploy"
	"github.com/YuukiRose/PEDeploy-sub001/pkg/deviceinfo"
	"github.com/YuukiRose/PEDeploy-sub001/pkg/editions"
	"github.com/YuukiRose/PEDeploy-sub001/pkg/imaging"
	"github.com/YuukiRose/PEDeploy-sub001/pkg/logging"
	"github.com/YuukiRose/PEDeploy-sub001/pkg/settings"
	"github.com/YuukiRose/PEDeploy-sub001/pkg/version"
)

func main() {
	settingsPath := pflag.String("settings", "", "Path to the settings file (default: built-in location).")
	customerName := pflag.String("customer", "", "Customer to resolve the catalog for.")
	listImages := pflag.Bool("list", false, "List the customer image catalog and exit.")
	listBase := pflag.Bool("list-base", false, "List the base Windows image catalog and exit.")
	imageID := pflag.String("image", "", "Catalog entry ID to deploy.")
	editionIndex := pflag.Int("edition-index", 0, "Edition index to deploy (default: first reported).")
	orderNumber := pflag.String("order", "", "Order number recorded on the deployment.")
	withUpdates := pflag.Bool("updates", false, "Install updates (ISO deployments).")
	noUpdates := pflag.Bool("no-updates", false, "Skip installing updates (ISO deployments).")
	withUnattend := pflag.Bool("unattend", true, "Apply the unattend answer file (ISO deployments).")
	noUnattend := pflag.Bool("no-unattend", false, "Skip the unattend answer file (ISO deployments).")
	withDrivers := pflag.Bool("drivers", true, "Inject drivers (ISO deployments).")
	noDrivers := pflag.Bool("no-drivers", false, "Skip driver injection (ISO deployments).")
	outPath := pflag.String("out", "", "Write the selection JSON to this file instead of stdout.")
	showConfig := pflag.Bool("show-config", false, "Display the current settings and exit.")
	versionFlag := pflag.Bool("version", false, "Print the version and exit.")

	var verbosity int
	pflag.CountVarP(&verbosity, "verbose", "v", "Increase verbosity (e.g. -v, -vv)")
	pflag.Parse()

	if *versionFlag {
		if verbosity > 0 {
			version.PrintFull()
		} else {
			version.Print()
		}
		os.Exit(0)
	}

	cfg, err := settings.Load(*settingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load settings: %v\n", err)
		os.Exit(1)
	}

	level := logging.ParseLevel(cfg.LogLevel)
	switch verbosity {
	case 0:
	case 1:
		level = logging.LevelInfo
	default:
		level = logging.LevelDebug
	}
	if err := logging.Init(logging.Config{
		BaseDir:       cfg.LogRoot,
		Component:     "pedeploy",
		Level:         level,
		EnableJSON:    true,
		EnableConsole: verbosity > 0,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.CloseLogger()

	if *showConfig {
		data, _ := yaml.Marshal(cfg)
		fmt.Print(string(data))
		os.Exit(0)
	}

	if *customerName == "" {
		fmt.Fprintln(os.Stderr, "A customer must be given with --customer.")
		os.Exit(2)
	}

	store := customer.NewStore(cfg.CustomerConfigRoot, cfg.DefaultCustomer)
	profile, err := store.LoadProfile(*customerName)
	if err != nil {
		logging.Error("Cannot load customer configuration", "customer", *customerName, "error", err)
		fmt.Fprintf(os.Stderr, "Cannot load customer configuration: %v\n", err)
		os.Exit(1)
	}

	scanner := imaging.NewScanner(cfg.BaseImagesRoot, cfg.CustomerImagesRoot)
	resolver := imaging.NewResolver(scanner)

	customerCatalog, diags := resolver.BuildCustomerCatalog(profile)
	reportDiagnostics(diags)
	baseCatalog, diags := resolver.BuildBaseCatalog(profile)
	reportDiagnostics(diags)

	if *listImages || *listBase {
		if *listImages {
			printCatalog("Customer images", customerCatalog)
		}
		if *listBase {
			printCatalog("Base Windows images", baseCatalog)
		}
		os.Exit(0)
	}

	if *imageID == "" {
		fmt.Fprintln(os.Stderr, "An image must be given with --image (use --list to see the catalog).")
		os.Exit(2)
	}

	entry, ok := lookupEntry(*imageID, customerCatalog, baseCatalog)
	if !ok {
		fmt.Fprintf(os.Stderr, "Image %q is not in the catalog for customer %s.\n", *imageID, *customerName)
		os.Exit(2)
	}

	session := deploy.NewSession(*customerName, *orderNumber, deviceinfo.Collect())
	builder := deploy.NewBuilder(profile)
	editionResolver := editions.NewResolver()

	var chosen *editions.Option
	var opts *deploy.Options
	var mount *editions.Mount

	if needsEdition(entry) {
		var options []editions.Option
		options, mount = editionResolver.ResolveEditions(entry.Path, entry.Kind, entry.BuildVersion)
		if len(options) == 0 {
			deploy.Cancel(mount)
			fmt.Fprintf(os.Stderr, "No installable editions found in %s.\n", entry.Path)
			os.Exit(1)
		}
		chosen = pickEdition(options, *editionIndex)
		if chosen == nil {
			deploy.Cancel(mount)
			fmt.Fprintf(os.Stderr, "Edition index %d is not available in %s.\n", *editionIndex, entry.Path)
			os.Exit(2)
		}
	}
	if entry.Kind == imaging.KindISO {
		opts = &deploy.Options{
			RequiredUpdates: flagPair(*withUpdates, *noUpdates),
			ApplyUnattend:   flagPair(*withUnattend, *noUnattend),
			DriverInject:    flagPair(*withDrivers, *noDrivers),
		}
	}

	selection, err := builder.BuildSelection(entry, chosen, opts, mount, session)
	if err != nil {
		deploy.Cancel(mount)
		logging.Error("Selection failed", "image", entry.ID, "error", err)
		fmt.Fprintf(os.Stderr, "Selection failed: %v\n", err)
		os.Exit(1)
	}

	if err := emitSelection(selection, *outPath); err != nil {
		deploy.Cancel(mount)
		logging.Error("Failed to emit selection", "error", err)
		fmt.Fprintf(os.Stderr, "Failed to emit selection: %v\n", err)
		os.Exit(1)
	}
	// The mount stays live for the deployment engine; it dismounts after
	// the apply finishes. Every failure path above released it.
}

// flagPair resolves a paired enable/disable flag; the negative form
// always wins, so "--no-unattend" overrides the "--unattend" default.
func flagPair(enabled, disabled bool) bool {
	return enabled && !disabled
}

// needsEdition reports whether a catalog entry requires edition
// disambiguation before deployment.
func needsEdition(entry imaging.Descriptor) bool {
	if entry.Kind == imaging.KindISO {
		return true
	}
	if entry.Kind == imaging.KindFFU || entry.IsCustom() {
		return false
	}
	return entry.Kind == imaging.KindESD || entry.Kind == imaging.KindWIM
}

// lookupEntry finds a catalog entry by ID, customer images first.
func lookupEntry(id string, catalogs ...[]imaging.Descriptor) (imaging.Descriptor, bool) {
	for _, catalog := range catalogs {
		for _, d := range catalog {
			if d.ID == id {
				return d, true
			}
		}
	}
	return imaging.Descriptor{}, false
}

// pickEdition returns the requested index, or the tool-reported default
// (first element) when none was requested.
func pickEdition(options []editions.Option, index int) *editions.Option {
	if index == 0 {
		return &options[0]
	}
	for i := range options {
		if options[i].Index == index {
			return &options[i]
		}
	}
	return nil
}

func printCatalog(title string, catalog []imaging.Descriptor) {
	fmt.Printf("%s (%d):\n", title, len(catalog))
	for _, d := range catalog {
		extra := d.Edition
		if d.WindowsVersion != "" {
			extra = fmt.Sprintf("Windows %s build %s", d.WindowsVersion, d.BuildVersion)
		}
		fmt.Printf("  %-28s %-4s %7.2f GB  %s\n      %s\n", d.ID, d.Kind, d.SizeGB, extra, d.Path)
	}
}

func emitSelection(selection *deploy.Selection, outPath string) error {
	data, err := json.MarshalIndent(selection, "", "  ")
	if err != nil {
		return err
	}
	if outPath == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(outPath, append(data, '\n'), 0644)
}

func reportDiagnostics(diags []imaging.Diagnostic) {
	for _, d := range diags {
		logging.Debug("Catalog diagnostic", "severity", string(d.Severity), "message", d.Message, "path", d.Path)
	}
}
