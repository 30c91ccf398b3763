package imaging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
}

func TestScanBaseImagesConvention(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Windows", "10", "19045", "install.esd"), 64)
	writeFile(t, filepath.Join(root, "Windows", "10", "19045", "custom.wim"), 64)
	writeFile(t, filepath.Join(root, "Windows", "10", "19045", "notes.txt"), 8)
	writeFile(t, filepath.Join(root, "Windows", "11", "22631", "install.esd"), 64)
	// Directories outside the ^\d+$ version convention are ignored.
	writeFile(t, filepath.Join(root, "Windows", "drafts", "x", "install.esd"), 64)

	scanner := NewScanner(root, t.TempDir())
	found, diags := scanner.ScanBaseImages()
	assert.Empty(t, diags)
	require.Len(t, found, 3)

	byID := make(map[string]Descriptor)
	for _, d := range found {
		assert.True(t, d.Exists)
		assert.False(t, d.Modified.IsZero())
		byID[d.ID] = d
	}

	primary, ok := byID["win10-19045"]
	require.True(t, ok)
	assert.Equal(t, KindESD, primary.Kind)
	assert.Equal(t, "10", primary.WindowsVersion)
	assert.Equal(t, "19045", primary.BuildVersion)

	// The sibling .wim is a secondary descriptor of its own, never
	// merged into the primary.
	secondary, ok := byID["win10-19045-custom"]
	require.True(t, ok)
	assert.Equal(t, KindWIM, secondary.Kind)

	_, ok = byID["win11-22631"]
	assert.True(t, ok)
}

func TestScanBaseImagesMissingRoot(t *testing.T) {
	scanner := NewScanner(filepath.Join(t.TempDir(), "absent"), t.TempDir())
	found, diags := scanner.ScanBaseImages()
	assert.Empty(t, found)
	require.Len(t, diags, 1)
	assert.Equal(t, SeverityInfo, diags[0].Severity)
}

func TestScanCustomerImagesRecursiveWIMOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Acme", "gold.wim"), 64)
	writeFile(t, filepath.Join(root, "Acme", "archive", "old.wim"), 64)
	writeFile(t, filepath.Join(root, "Acme", "flash.ffu"), 64)
	writeFile(t, filepath.Join(root, "Acme", "base.esd"), 64)

	scanner := NewScanner(t.TempDir(), root)
	found, diags := scanner.ScanCustomerImages("Acme")
	assert.Empty(t, diags)
	require.Len(t, found, 2, "only .wim files are customer-discoverable")

	assert.Equal(t, "old", found[0].ID)
	assert.Equal(t, "gold", found[1].ID)
	for _, d := range found {
		assert.Equal(t, KindWIM, d.Kind)
		assert.Equal(t, SourceFilesystem, d.Source)
		assert.True(t, d.Exists)
	}
}

func TestScanCustomerImagesMissingDirectory(t *testing.T) {
	scanner := NewScanner(t.TempDir(), t.TempDir())
	found, diags := scanner.ScanCustomerImages("Nobody")
	assert.Empty(t, found)
	require.Len(t, diags, 1)
	assert.Equal(t, SeverityInfo, diags[0].Severity)
}

func TestScanIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Windows", "11", "26100", "install.esd"), 64)
	scanner := NewScanner(root, t.TempDir())

	first, _ := scanner.ScanBaseImages()
	second, _ := scanner.ScanBaseImages()
	assert.Equal(t, first, second)
}

func TestRoundSizeGB(t *testing.T) {
	assert.Equal(t, 0.0, roundSizeGB(0))
	assert.Equal(t, 1.0, roundSizeGB(1<<30))
	assert.Equal(t, 0.25, roundSizeGB(1<<28))
	// 0.005 GiB rounds up to the nearest 0.01.
	assert.Equal(t, 0.01, roundSizeGB(5368710))
}

func TestKindFromPath(t *testing.T) {
	assert.Equal(t, KindWIM, KindFromPath(`Z:\img\gold.WIM`))
	assert.Equal(t, KindESD, KindFromPath(`W:\install.esd`))
	assert.Equal(t, KindFFU, KindFromPath(`Z:\flash.ffu`))
	assert.Equal(t, KindISO, KindFromPath(`W:\win11.iso`))
	assert.Equal(t, KindWIM, KindFromPath(`W:\mystery.bin`))
}
