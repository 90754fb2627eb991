package release

import (
	"github.com/puterize/glabu/internal/output"
)

// Table implements output.Tabular.
func (r *Result) Table() *output.Table {
	t := output.NewTable("ARCH", "FILE", "SIZE", "IMAGE", "INSTALLED")
	for i, target := range r.Targets {
		row := []string{target.Arch.String(), "", "", "", ""}
		if i < len(r.Uploads) {
			row[1] = r.Uploads[i].Descriptor.FileName
			row[2] = output.FormatBytes(r.Uploads[i].Size)
		}
		if r.Manifest != nil {
			row[3] = MemberTag(r.TagRoot, target.Arch)
		}
		if r.Installed != "" && r.InstalledArch == target.Arch {
			row[4] = r.Installed
		}
		t.Row(row...)
	}
	return t
}

// Table implements output.Tabular.
func (p *Plan) Table() *output.Table {
	t := output.NewTable("ARCH", "FILE", "PACKAGE", "IMAGE", "INSTALL")
	for _, pt := range p.Targets {
		install := ""
		if pt.Install {
			install = pt.InstallDir
		}
		t.Row(pt.Arch.String(), pt.Upload.FileName,
			pt.Upload.PackageName+"@"+pt.Upload.PackageVersion, pt.Image, install)
	}
	return t
}
