package editions

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuukiRose/PEDeploy-sub001/pkg/imaging"
)

type fakeInspector struct {
	options  []Option
	err      error
	lastPath string
}

func (f *fakeInspector) ImageInfo(path string) ([]Option, error) {
	f.lastPath = path
	return f.options, f.err
}

type fakeMounter struct {
	mountPoint string
	err        error
	dismounts  int
	failures   int
}

func (f *fakeMounter) Mount(isoPath string) (*Mount, error) {
	if f.err != nil {
		return nil, f.err
	}
	return NewMount(isoPath, f.mountPoint, func() error {
		f.dismounts++
		if f.dismounts <= f.failures {
			return errors.New("volume busy")
		}
		return nil
	}), nil
}

func TestResolveEditionsToolOrderPreserved(t *testing.T) {
	inspector := &fakeInspector{options: []Option{
		{Index: 3, Name: "Windows 11 Pro"},
		{Index: 1, Name: "Windows 11 Home"},
	}}
	r := &Resolver{Inspector: inspector}

	options, mount := r.ResolveEditions(`W:\install.esd`, imaging.KindESD, "22631")
	assert.Nil(t, mount)
	require.Len(t, options, 2)
	assert.Equal(t, 3, options[0].Index, "editions keep the inspection tool's order")
	assert.Equal(t, 1, options[1].Index)
}

func TestResolveEditionsFallbackOnEmpty(t *testing.T) {
	r := &Resolver{Inspector: &fakeInspector{}}

	options, mount := r.ResolveEditions(`W:\install.esd`, imaging.KindESD, "19045")
	assert.Nil(t, mount)
	require.Len(t, options, 2)
	assert.Equal(t, 4, options[0].Index)
	assert.Contains(t, options[0].Name, "Enterprise")
	assert.Equal(t, 6, options[1].Index)
	assert.Contains(t, options[1].Name, "Pro")
	for _, o := range options {
		assert.Equal(t, "x64", o.Architecture)
		assert.Equal(t, "19045", o.Version)
	}
}

func TestResolveEditionsFallbackOnInspectorError(t *testing.T) {
	r := &Resolver{Inspector: &fakeInspector{err: errors.New("dism exploded")}}

	options, _ := r.ResolveEditions(`W:\install.wim`, imaging.KindWIM, "")
	require.Len(t, options, 2)
	assert.Equal(t, 4, options[0].Index)
}

func TestResolveEditionsISOInspectsMountedWIM(t *testing.T) {
	inspector := &fakeInspector{options: []Option{{Index: 1, Name: "Windows 11 Pro"}}}
	r := &Resolver{Inspector: inspector, Mounter: &fakeMounter{mountPoint: `E:\`}}

	options, mount := r.ResolveEditions(`W:\win11.iso`, imaging.KindISO, "")
	require.NotNil(t, mount, "ISO resolution must hand back the live mount")
	require.Len(t, options, 1)
	assert.Equal(t, filepath.Join(`E:\`, "sources", "install.wim"), inspector.lastPath)
	assert.Equal(t, `W:\win11.iso`, mount.ISOPath)
}

func TestResolveEditionsISOMountFailure(t *testing.T) {
	r := &Resolver{Inspector: &fakeInspector{}, Mounter: &fakeMounter{err: errors.New("no such image")}}

	options, mount := r.ResolveEditions(`W:\broken.iso`, imaging.KindISO, "")
	assert.Nil(t, mount)
	assert.Empty(t, options)
}

func TestResolveEditionsISOEmptyInspectionStillReturnsMount(t *testing.T) {
	mounter := &fakeMounter{mountPoint: `E:\`}
	r := &Resolver{Inspector: &fakeInspector{}, Mounter: mounter}

	options, mount := r.ResolveEditions(`W:\win11.iso`, imaging.KindISO, "26100")
	require.NotNil(t, mount, "fallback editions still deploy from the mounted wim")
	require.Len(t, options, 2)
	assert.Equal(t, 4, options[0].Index)
}

func TestDismountRetriesOnce(t *testing.T) {
	mounter := &fakeMounter{mountPoint: `E:\`, failures: 1}
	mount, err := mounter.Mount(`W:\win11.iso`)
	require.NoError(t, err)

	assert.NoError(t, mount.Dismount(), "one retry must recover a transient failure")
	assert.Equal(t, 2, mounter.dismounts)
}

func TestDismountGivesUpAfterRetry(t *testing.T) {
	mounter := &fakeMounter{mountPoint: `E:\`, failures: 2}
	mount, err := mounter.Mount(`W:\win11.iso`)
	require.NoError(t, err)

	assert.Error(t, mount.Dismount())
	assert.Equal(t, 2, mounter.dismounts, "exactly one retry, then manual cleanup")
}

func TestDismountIdempotent(t *testing.T) {
	mounter := &fakeMounter{mountPoint: `E:\`}
	mount, err := mounter.Mount(`W:\win11.iso`)
	require.NoError(t, err)

	require.NoError(t, mount.Dismount())
	require.NoError(t, mount.Dismount())
	assert.Equal(t, 1, mounter.dismounts)

	var nilMount *Mount
	assert.NoError(t, nilMount.Dismount())
}

func TestParseImageInfo(t *testing.T) {
	output := `
Deployment Image Servicing and Management tool
Version: 10.0.26100.1150

Details for image : W:\Images\Windows\11\26100\install.esd

Index : 1
Name : Windows 11 Home
Description : Windows 11 Home
Size : 16,937,142,608 bytes

Index : 4
Name : Windows 11 Enterprise
Description : Windows 11 Enterprise
Size : 17,120,203,101 bytes

Index : 6
Name : Windows 11 Pro
Description : Windows 11 Pro
Size : 17,002,111,987 bytes

The operation completed successfully.
`
	options := ParseImageInfo(output)
	require.Len(t, options, 3)
	assert.Equal(t, Option{Index: 1, Name: "Windows 11 Home", Description: "Windows 11 Home"}, options[0])
	assert.Equal(t, 4, options[1].Index)
	assert.Equal(t, "Windows 11 Enterprise", options[1].Name)
	assert.Equal(t, 6, options[2].Index)
}

func TestParseImageInfoGarbage(t *testing.T) {
	assert.Empty(t, ParseImageInfo("Error: 0xc1510111\nThe file cannot be opened.\n"))
	assert.Empty(t, ParseImageInfo(""))
}
