package arch

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Arch
		wantErr bool
	}{
		{"amd64", AMD64, false},
		{"x86_64", AMD64, false},
		{"X86_64", AMD64, false},
		{"x86_64-unknown-linux-musl", AMD64, false},
		{"linux/amd64", AMD64, false},
		{"arm64", ARM64, false},
		{"aarch64", ARM64, false},
		{"aarch64-unknown-linux-musl", ARM64, false},
		{" arm64 ", ARM64, false},
		{"riscv64", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches(AMD64, "x86_64"))
	assert.True(t, Matches(ARM64, "aarch64"))
	assert.False(t, Matches(ARM64, "x86_64"))
	assert.False(t, Matches(AMD64, "sparc"))
}

func TestNamingConventions(t *testing.T) {
	assert.Equal(t, "x86_64-unknown-linux-musl", AMD64.TargetTriple())
	assert.Equal(t, "linux/arm64", ARM64.Platform())
	assert.Equal(t, "", Arch("mips").TargetTriple())

	info, ok := Lookup(ARM64)
	require.True(t, ok)
	assert.Equal(t, "arm64", info.GOARCH)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"amd64", "arm64"}, Names())
}

func TestParseList_DeduplicatesAliases(t *testing.T) {
	got, err := ParseList([]string{"x86_64", "arm64", "amd64"})
	require.NoError(t, err)
	assert.Equal(t, []Arch{AMD64, ARM64}, got)

	_, err = ParseList([]string{"amd64", "ppc"})
	assert.Error(t, err)
}

func TestHost(t *testing.T) {
	a, err := Host()
	if runtime.GOARCH != "amd64" && runtime.GOARCH != "arm64" {
		assert.Error(t, err)
		return
	}
	require.NoError(t, err)
	assert.Equal(t, runtime.GOARCH, string(a))
}

func TestMustParsePanicsOnUnknown(t *testing.T) {
	assert.Panics(t, func() { MustParse("vax") })
	assert.Equal(t, AMD64, MustParse("x64"))
}
