package customer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, root, name, content string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644))
}

func TestLoadProfileSections(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "Acme", `{
		"WIMImages": {
			"gold": {
				"ImageID": "acme-gold",
				"ImageName": "Acme Gold",
				"FullPath": "Z:\\CustomerImages\\Acme\\gold.wim",
				"Type": "WIM",
				"RequiredUpdates": true
			}
		},
		"FFUImages": {
			"flash": {
				"ImageID": "acme-flash",
				"Path": "Z:\\CustomerImages\\Acme\\flash.ffu",
				"CaptureMethod": "FFU",
				"active": "false"
			}
		},
		"DeploymentSettings": {
			"DefaultRequiredUpdates": false
		}
	}`)

	store := NewStore(root, "Default")
	profile, err := store.LoadProfile("Acme")
	require.NoError(t, err)

	require.Len(t, profile.WIMImages, 1)
	gold := profile.WIMImages[0]
	assert.Equal(t, "acme-gold", gold.ImageID)
	assert.Equal(t, "Acme Gold", gold.Name)
	assert.Equal(t, `Z:\CustomerImages\Acme\gold.wim`, gold.Path)
	assert.Nil(t, gold.Active, "absent active flag must stay untagged")
	require.NotNil(t, gold.RequiredUpdates)
	assert.True(t, *gold.RequiredUpdates)
	assert.Nil(t, gold.ApplyUnattend)

	require.Len(t, profile.FFUImages, 1)
	flash := profile.FFUImages[0]
	assert.Equal(t, "FFU", flash.Type)
	require.NotNil(t, flash.Active, "string booleans must parse")
	assert.False(t, *flash.Active)

	assert.False(t, profile.Deployment.RequiredUpdates())
	assert.True(t, profile.Deployment.ApplyUnattend(), "unset deployment defaults resolve true")
	assert.True(t, profile.Deployment.DriverInject())
}

func TestLoadProfileDuplicateCaseVariantKeys(t *testing.T) {
	root := t.TempDir()
	// Both BaseImages and baseImages present: the canonical lowercase
	// section must win without a parse error.
	writeConfig(t, root, "Acme", `{
		"BaseImages": {
			"stale": {"ImageID": "stale", "Path": "W:\\stale.esd"}
		},
		"baseImages": {
			"win11": {"ImageID": "win11-22631", "DisplayName": "Windows 11 23H2"}
		}
	}`)

	store := NewStore(root, "Default")
	profile, err := store.LoadProfile("Acme")
	require.NoError(t, err)

	require.Len(t, profile.BaseImageOverrides, 1)
	assert.Equal(t, "win11-22631", profile.BaseImageOverrides[0].ImageID)
}

func TestLoadProfileFallbackToDefault(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "Default", `{"CustomerImages": {"generic": {"ImageID": "generic", "Path": "Z:\\generic.wim"}}}`)

	store := NewStore(root, "Default")
	profile, err := store.LoadProfile("Nonexistent")
	require.NoError(t, err)

	assert.Equal(t, "Nonexistent", profile.Name, "profile keeps the requested customer identity")
	assert.Equal(t, filepath.Join(root, "Nonexistent"), profile.Dir)
	require.Len(t, profile.CustomerImages, 1)
	assert.Equal(t, "generic", profile.CustomerImages[0].ImageID)
}

func TestLoadProfileParseFailureFallsBack(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "Broken", `{"WIMImages": not json`)
	writeConfig(t, root, "Default", `{}`)

	store := NewStore(root, "Default")
	profile, err := store.LoadProfile("Broken")
	require.NoError(t, err)
	assert.Empty(t, profile.WIMImages)
}

func TestLoadProfileMissingEverything(t *testing.T) {
	store := NewStore(t.TempDir(), "Default")
	_, err := store.LoadProfile("Acme")
	assert.ErrorIs(t, err, ErrConfigurationMissing)
}

func TestLoadProfileInvalidEverywhere(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "Acme", `{broken`)
	writeConfig(t, root, "Default", `also broken`)

	store := NewStore(root, "Default")
	_, err := store.LoadProfile("Acme")
	assert.ErrorIs(t, err, ErrConfigurationInvalid)
}

func TestNormalizeDocumentRecursion(t *testing.T) {
	doc := normalizeDocument(map[string]any{
		"WimImages": map[string]any{
			"a": map[string]any{"nested": map[string]any{"deep": true}, "list": []any{map[string]any{"x": 1.0}}},
		},
	})

	sec, ok := doc["WIMImages"].(map[string]any)
	require.True(t, ok, "case-variant section folds onto the canonical key")
	rec := sec["a"].(map[string]any)
	assert.Equal(t, map[string]any{"deep": true}, rec["nested"])
	list := rec["list"].([]any)
	assert.Equal(t, map[string]any{"x": 1.0}, list[0])
}

func TestBoolDefault(t *testing.T) {
	v := false
	assert.False(t, BoolDefault(&v, true))
	assert.True(t, BoolDefault(nil, true))
	assert.False(t, BoolDefault(nil, false))
}
