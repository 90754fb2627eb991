package registry

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadDescriptor_Validate(t *testing.T) {
	valid := UploadDescriptor{
		Project:        "puterize/prebuilt",
		PackageName:    "glabu",
		PackageVersion: "a1b2c3d",
		FileName:       "glabu-amd64",
		FilePath:       "/tmp/glabu",
	}
	assert.NoError(t, valid.Validate())

	missing := valid
	missing.PackageVersion = ""
	missing.FileName = " "
	err := missing.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package version, file name")

	slashed := valid
	slashed.FileName = "bin/glabu"
	assert.Error(t, slashed.Validate())
}

func TestFile_DigestWhileReading(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, int64(5), f.Size())
	_, err = io.Copy(io.Discard, f)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", f.SHA256())
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Open(t.TempDir())
	assert.Error(t, err)
}

func TestDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	size, sum, err := Digest(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)
}
