package release

import (
	"context"

	"github.com/puterize/glabu/internal/arch"
	"github.com/puterize/glabu/internal/registry"
)

// PlannedTarget describes what a run would do for one architecture.
type PlannedTarget struct {
	Arch       arch.Arch                 `json:"arch" yaml:"arch"`
	Upload     registry.UploadDescriptor `json:"upload" yaml:"upload"`
	Image      string                    `json:"image,omitempty" yaml:"image,omitempty"`
	Install    bool                      `json:"install" yaml:"install"`
	InstallDir string                    `json:"installDir,omitempty" yaml:"installDir,omitempty"`
}

// Plan is a side-effect free preview of a run.
type Plan struct {
	Version  VersionTag       `json:"version" yaml:"version"`
	TagRoot  string           `json:"tagRoot,omitempty" yaml:"tagRoot,omitempty"`
	Parallel bool             `json:"parallel" yaml:"parallel"`
	Targets  []PlannedTarget  `json:"targets" yaml:"targets"`
	Manifest *ReleaseManifest `json:"manifest,omitempty" yaml:"manifest,omitempty"`
}

// Plan resolves the version and computes every descriptor, member tag and
// install decision without building, uploading or touching manifests.
// Upload file paths are where the builder is expected to leave binaries.
func (o *Orchestrator) Plan(ctx context.Context, expectedPath func(arch.Arch) string) (*Plan, error) {
	v, err := o.ResolveVersionTag(ctx)
	if err != nil {
		return nil, err
	}
	p := &Plan{Version: v, Parallel: o.opts.Parallel}
	if o.manifestEnabled() {
		p.TagRoot = TagRoot(o.opts.ImageRegistry, v)
		p.Manifest = &ReleaseManifest{TagRoot: p.TagRoot, Members: []string{}}
	}

	installPlanned := false
	for _, a := range o.opts.Archs {
		path := ""
		if expectedPath != nil {
			path = expectedPath(a)
		}
		d, err := o.Descriptor(v, ReleaseTarget{Arch: a, BinaryPath: path, ArtifactPath: path})
		if err != nil {
			return nil, err
		}
		pt := PlannedTarget{Arch: a, Upload: d}
		if p.Manifest != nil {
			pt.Image = MemberTag(p.TagRoot, a)
			p.Manifest.Members = append(p.Manifest.Members, pt.Image)
		}
		if !installPlanned && o.opts.Install && arch.Matches(a, o.opts.HostArch) {
			pt.Install = true
			pt.InstallDir = o.opts.InstallDir
			installPlanned = true
		}
		p.Targets = append(p.Targets, pt)
	}
	return p, nil
}
