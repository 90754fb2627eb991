package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatValid(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{FormatYAML, true},
		{FormatJSON, true},
		{FormatTable, true},
		{OutputFormat("dir"), false},
		{OutputFormat(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.format.Valid())
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat("YML")
	assert.True(t, ok)
	assert.Equal(t, FormatYAML, f)

	f, ok = ParseFormat("json")
	assert.True(t, ok)
	assert.Equal(t, FormatJSON, f)

	_, ok = ParseFormat("xml")
	assert.False(t, ok)
}

type sample struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

func (s sample) Table() *Table {
	return NewTable("NAME", "VERSION").Row(s.Name, s.Version)
}

func TestWrite_Formats(t *testing.T) {
	v := sample{Name: "glabu", Version: "abc1234"}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, v))
	assert.Equal(t, "name: glabu\nversion: abc1234\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, FormatJSON, v))
	assert.JSONEq(t, `{"name":"glabu","version":"abc1234"}`, buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, FormatTable, v))
	assert.Contains(t, buf.String(), "abc1234")
}

func TestWrite_TableRequiresTabular(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, FormatTable, map[string]string{"a": "b"})
	assert.Error(t, err)
}
