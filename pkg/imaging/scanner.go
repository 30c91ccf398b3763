// pkg/imaging/scanner.go - filesystem discovery of deployable images.
//
// Base images follow a fixed two-level convention under the base root:
// Windows/<version>/<build>/install.esd, with any sibling .esd/.wim/.iso
// files treated as independent secondary images. Customer images are
// .wim files anywhere under the customer's own directory.

package imaging

import (
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/YuukiRose/PEDeploy-sub001/pkg/logging"
)

// PrimaryBaseImage is the file name scanned first in every build directory.
const PrimaryBaseImage = "install.esd"

var versionDirPattern = regexp.MustCompile(`^\d+$`)

// Scanner walks the mounted storage roots for image files.
type Scanner struct {
	BaseImagesRoot     string
	CustomerImagesRoot string
}

// NewScanner returns a Scanner over the given storage roots.
func NewScanner(baseRoot, customerRoot string) *Scanner {
	return &Scanner{BaseImagesRoot: baseRoot, CustomerImagesRoot: customerRoot}
}

// ScanBaseImages walks the Windows/<version>/<build> tree and returns a
// descriptor per image file found. A missing root is not an error; the
// caller gets an empty result plus a diagnostic.
func (s *Scanner) ScanBaseImages() ([]Descriptor, []Diagnostic) {
	var found []Descriptor
	var diags []Diagnostic

	windowsRoot := filepath.Join(s.BaseImagesRoot, "Windows")
	versionDirs, err := os.ReadDir(windowsRoot)
	if err != nil {
		logging.Info("Base images root not available", "path", windowsRoot, "error", err)
		return nil, append(diags, Diagnostic{SeverityInfo, "base images root not available", windowsRoot})
	}

	for _, versionDir := range versionDirs {
		if !versionDir.IsDir() || !versionDirPattern.MatchString(versionDir.Name()) {
			continue
		}
		version := versionDir.Name()

		buildDirs, err := os.ReadDir(filepath.Join(windowsRoot, version))
		if err != nil {
			diags = append(diags, Diagnostic{SeverityWarning, "unreadable version directory", filepath.Join(windowsRoot, version)})
			continue
		}

		for _, buildDir := range buildDirs {
			if !buildDir.IsDir() {
				continue
			}
			build := buildDir.Name()
			dir := filepath.Join(windowsRoot, version, build)

			entries, err := os.ReadDir(dir)
			if err != nil {
				diags = append(diags, Diagnostic{SeverityWarning, "unreadable build directory", dir})
				continue
			}

			var secondaries []string
			hasPrimary := false
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				name := entry.Name()
				if strings.EqualFold(name, PrimaryBaseImage) {
					hasPrimary = true
					continue
				}
				switch strings.ToLower(filepath.Ext(name)) {
				case ".esd", ".wim", ".iso":
					secondaries = append(secondaries, name)
				}
			}
			sort.Strings(secondaries)

			if hasPrimary {
				path := filepath.Join(dir, PrimaryBaseImage)
				d, ok := s.describeBase(path, version, build, true)
				if ok {
					found = append(found, d)
				} else {
					diags = append(diags, Diagnostic{SeverityWarning, "image vanished during scan", path})
				}
			}
			// Secondary files are never merged into the primary; each is
			// identified on its own.
			for _, name := range secondaries {
				path := filepath.Join(dir, name)
				d, ok := s.describeBase(path, version, build, false)
				if ok {
					found = append(found, d)
				} else {
					diags = append(diags, Diagnostic{SeverityWarning, "image vanished during scan", path})
				}
			}
		}
	}

	logging.Debug("Base image scan complete", "found", len(found), "root", windowsRoot)
	return found, diags
}

// ScanCustomerImages walks the customer's directory recursively for .wim
// files. FFU and ESD are not filesystem-discovered at the customer level;
// those only arrive via config.
func (s *Scanner) ScanCustomerImages(customerName string) ([]Descriptor, []Diagnostic) {
	var found []Descriptor
	var diags []Diagnostic

	root := filepath.Join(s.CustomerImagesRoot, customerName)
	if _, err := os.Stat(root); err != nil {
		logging.Info("Customer images directory not available", "customer", customerName, "path", root)
		return nil, append(diags, Diagnostic{SeverityInfo, "customer images directory not available", root})
	}

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			diags = append(diags, Diagnostic{SeverityWarning, "unreadable entry during customer scan", path})
			return nil
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wim") {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			diags = append(diags, Diagnostic{SeverityWarning, "image vanished during scan", path})
			return nil
		}

		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		found = append(found, Descriptor{
			ID:       name,
			Name:     name,
			Path:     path,
			Kind:     KindWIM,
			Active:   true,
			Exists:   true,
			SizeGB:   roundSizeGB(info.Size()),
			Modified: info.ModTime(),
			Source:   SourceFilesystem,
		})
		return nil
	})
	if err != nil {
		diags = append(diags, Diagnostic{SeverityWarning, "customer scan aborted", root})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	logging.Debug("Customer image scan complete", "customer", customerName, "found", len(found))
	return found, diags
}

// describeBase stats one base image file and builds its descriptor.
func (s *Scanner) describeBase(path, version, build string, primary bool) (Descriptor, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return Descriptor{}, false
	}

	id := BaseImageID(version, build)
	name := fmt.Sprintf("Windows %s (%s)", version, build)
	if !primary {
		file := filepath.Base(path)
		id = id + "-" + strings.ToLower(strings.TrimSuffix(file, filepath.Ext(file)))
		name = fmt.Sprintf("Windows %s (%s) %s", version, build, file)
	}

	return Descriptor{
		ID:             id,
		Name:           name,
		Path:           path,
		Kind:           KindFromPath(path),
		Active:         true,
		Exists:         true,
		SizeGB:         roundSizeGB(info.Size()),
		Modified:       info.ModTime(),
		WindowsVersion: version,
		BuildVersion:   build,
		Source:         SourceFilesystem,
	}, true
}

// BaseImageID is the shared identity convention for base images, used by
// both the scanner and the static default table so the resolver can
// dedup across sources.
func BaseImageID(version, build string) string {
	return fmt.Sprintf("win%s-%s", version, build)
}

// roundSizeGB rounds a byte count to the nearest 0.01 GiB.
func roundSizeGB(bytes int64) float64 {
	return math.Round(float64(bytes)/(1<<30)*100) / 100
}
