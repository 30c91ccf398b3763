package settings

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pedeploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
BaseImagesRoot: 'T:\Images'
CustomerImagesRoot: 'T:\CustomerImages'
CustomerConfigRoot: 'T:\Customers'
DefaultCustomer: House
LogRoot: 'T:\logs'
LogLevel: DEBUG
Verbose: true
`), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, `T:\Images`, s.BaseImagesRoot)
	assert.Equal(t, "House", s.DefaultCustomer)
	assert.Equal(t, "DEBUG", s.LogLevel)
	assert.True(t, s.Verbose)
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pedeploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("BaseImagesRoot: 'T:\\Images'\n"), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, `T:\Images`, s.BaseImagesRoot)
	assert.Equal(t, Default().CustomerImagesRoot, s.CustomerImagesRoot)
	assert.Equal(t, "Default", s.DefaultCustomer)
	assert.Equal(t, "INFO", s.LogLevel)
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("registry policy may shadow built-in defaults on windows")
	}
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pedeploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{broken yaml::\n  - x"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pedeploy.yaml")
	s := Default()
	s.DefaultCustomer = "House"

	require.NoError(t, Save(s, path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}
