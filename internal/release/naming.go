package release

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/puterize/glabu/internal/arch"
)

// TagRoot returns <imageRegistry>:<version>.
func TagRoot(imageRegistry string, v VersionTag) string {
	if imageRegistry == "" {
		return ""
	}
	return strings.TrimRight(imageRegistry, "/") + ":" + string(v)
}

// MemberTag returns the per-arch image tag <tagRoot>-<arch>.
func MemberTag(tagRoot string, a arch.Arch) string {
	return tagRoot + "-" + a.String()
}

// FileNameData is available to file-name templates.
type FileNameData struct {
	Binary      string
	PackageName string
	Version     string
	Arch        string
	Triple      string
	Platform    string
}

// FileNamer renders upload file names.
type FileNamer struct {
	tmpl *template.Template
}

// NewFileNamer parses text; sprig functions are available.
func NewFileNamer(text string) (*FileNamer, error) {
	tmpl, err := template.New("fileName").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing file name template: %w", err)
	}
	return &FileNamer{tmpl: tmpl}, nil
}

// Name renders the file name for one target.
func (n *FileNamer) Name(binary, packageName string, v VersionTag, a arch.Arch) (string, error) {
	var buf bytes.Buffer
	err := n.tmpl.Execute(&buf, FileNameData{
		Binary:      binary,
		PackageName: packageName,
		Version:     string(v),
		Arch:        a.String(),
		Triple:      a.TargetTriple(),
		Platform:    a.Platform(),
	})
	if err != nil {
		return "", fmt.Errorf("rendering file name: %w", err)
	}
	name := strings.TrimSpace(buf.String())
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("file name template rendered invalid name %q", name)
	}
	return name, nil
}
