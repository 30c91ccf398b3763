// pkg/editions/dism.go - DISM-backed image inspection.

package editions

import (
	"bufio"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// DISMInspector shells out to DISM to enumerate image editions.
type DISMInspector struct {
	// DISMPath overrides the binary looked up on PATH when set.
	DISMPath string
}

func (i *DISMInspector) dism() string {
	if i.DISMPath != "" {
		return i.DISMPath
	}
	return "dism.exe"
}

// ImageInfo runs dism /Get-ImageInfo against the given WIM/ESD file and
// parses the per-index blocks from its output.
func (i *DISMInspector) ImageInfo(path string) ([]Option, error) {
	cmd := exec.Command(i.dism(), "/Get-ImageInfo", "/ImageFile:"+path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("dism /Get-ImageInfo failed for %s: %w", path, err)
	}
	return ParseImageInfo(string(out)), nil
}

// ParseImageInfo extracts edition options from DISM /Get-ImageInfo
// output. Blocks look like:
//
//	Index : 1
//	Name : Windows 11 Pro
//	Description : Windows 11 Pro
//	Size : 16,937,142,608 bytes
//
// Lines that don't fit the "key : value" shape are skipped, so banner
// and version lines fall through harmlessly.
func ParseImageInfo(output string) []Option {
	var options []Option
	var current *Option

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "Index":
			index, err := strconv.Atoi(value)
			if err != nil || index <= 0 {
				current = nil
				continue
			}
			options = append(options, Option{Index: index})
			current = &options[len(options)-1]
		case "Name":
			if current != nil {
				current.Name = value
			}
		case "Description":
			if current != nil {
				current.Description = value
			}
		case "Architecture":
			if current != nil {
				current.Architecture = value
			}
		case "Version":
			if current != nil {
				current.Version = value
			}
		}
	}

	return options
}
