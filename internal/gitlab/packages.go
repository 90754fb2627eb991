package gitlab

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	gl "gitlab.com/gitlab-org/api/client-go"

	oerrors "github.com/puterize/glabu/internal/errors"
	"github.com/puterize/glabu/internal/registry"
)

// Package is a package entry in a project's package registry.
type Package struct {
	ID               int64      `json:"id" yaml:"id"`
	Name             string     `json:"name" yaml:"name"`
	Version          string     `json:"version" yaml:"version"`
	PackageType      string     `json:"package_type,omitempty" yaml:"packageType,omitempty"`
	Status           string     `json:"status,omitempty" yaml:"status,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty" yaml:"createdAt,omitempty"`
	LastDownloadedAt *time.Time `json:"last_downloaded_at,omitempty" yaml:"lastDownloadedAt,omitempty"`
}

func fromAPIPackage(p *gl.Package) Package {
	return Package{
		ID:               int64(p.ID),
		Name:             p.Name,
		Version:          p.Version,
		PackageType:      p.PackageType,
		Status:           p.Status,
		CreatedAt:        p.CreatedAt,
		LastDownloadedAt: p.LastDownloadedAt,
	}
}

// PackageFile is one file of a package.
type PackageFile struct {
	ID         int64      `json:"id" yaml:"id"`
	PackageID  int64      `json:"package_id" yaml:"packageId"`
	FileName   string     `json:"file_name" yaml:"fileName"`
	Size       int64      `json:"size,omitempty" yaml:"size,omitempty"`
	FileMD5    string     `json:"file_md5,omitempty" yaml:"fileMd5,omitempty"`
	FileSHA1   string     `json:"file_sha1,omitempty" yaml:"fileSha1,omitempty"`
	FileSHA256 string     `json:"file_sha256,omitempty" yaml:"fileSha256,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty" yaml:"createdAt,omitempty"`

	// Name and Version are not part of the API response; they are filled in
	// from the owning package so a file can be downloaded on its own.
	Name    string `json:"-" yaml:"name,omitempty"`
	Version string `json:"-" yaml:"version,omitempty"`
}

func fromAPIPackageFile(f *gl.PackageFile) PackageFile {
	return PackageFile{
		ID:         int64(f.ID),
		PackageID:  int64(f.PackageID),
		FileName:   f.FileName,
		Size:       int64(f.Size),
		FileMD5:    f.FileMD5,
		FileSHA1:   f.FileSHA1,
		FileSHA256: f.FileSHA256,
		CreatedAt:  f.CreatedAt,
	}
}

// defaultPerPage is the page size used when walking listings.
const defaultPerPage = 100

// ListPackagesOptions filters and orders a package listing.
type ListPackagesOptions struct {
	Name    string
	Version string
	// OrderBy is one of created_at, name, version, type.
	OrderBy string
	// Sort is asc or desc.
	Sort string
	// PerPage is the page size requested from the API; every page is
	// walked regardless.
	PerPage int
}

func (o ListPackagesOptions) apiOptions(page int) *gl.ListProjectPackagesOptions {
	perPage := o.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	opts := &gl.ListProjectPackagesOptions{
		ListOptions: gl.ListOptions{Page: page, PerPage: perPage},
		PackageType: gl.Ptr("generic"),
	}
	if o.Name != "" {
		opts.PackageName = gl.Ptr(o.Name)
	}
	if o.OrderBy != "" {
		opts.OrderBy = gl.Ptr(o.OrderBy)
	}
	if o.Sort != "" {
		opts.Sort = gl.Ptr(o.Sort)
	}
	return opts
}

// match reports whether p satisfies the exact name and version filters.
// The API matches package names fuzzily.
func (o ListPackagesOptions) match(p Package) bool {
	if o.Name != "" && p.Name != o.Name {
		return false
	}
	return o.Version == "" || p.Version == o.Version
}

// walkPackages calls fn for every matching package, page by page, until fn
// returns false or the listing ends.
func (c *Client) walkPackages(ctx context.Context, project string, opts ListPackagesOptions, fn func(Package) bool) error {
	for page := 1; page > 0; {
		pkgs, resp, err := c.api.Packages.ListProjectPackages(project, opts.apiOptions(page), gl.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("listing packages of %s: %w", project, translate(resp, err))
		}
		for _, p := range pkgs {
			pkg := fromAPIPackage(p)
			if !opts.match(pkg) {
				continue
			}
			if !fn(pkg) {
				return nil
			}
		}
		page = 0
		if resp != nil {
			page = resp.NextPage
		}
	}
	return nil
}

// ListPackages lists the generic packages of project matching opts.
func (c *Client) ListPackages(ctx context.Context, project string, opts ListPackagesOptions) ([]Package, error) {
	var out []Package
	err := c.walkPackages(ctx, project, opts, func(p Package) bool {
		out = append(out, p)
		return true
	})
	return out, err
}

// LatestPackage returns the most recently created package called name.
// Listing stops at the first exact match, so newer packages with similar
// names only cost extra pages.
func (c *Client) LatestPackage(ctx context.Context, project, name string) (*Package, error) {
	var latest *Package
	err := c.walkPackages(ctx, project, ListPackagesOptions{
		Name:    name,
		OrderBy: "created_at",
		Sort:    "desc",
	}, func(p Package) bool {
		latest = &p
		return false
	})
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: no package %q in %s", oerrors.ErrNotFound, name, project)
	}
	return latest, nil
}

// FindPackage returns the package with the exact name and version.
func (c *Client) FindPackage(ctx context.Context, project, name, version string) (*Package, error) {
	var found *Package
	err := c.walkPackages(ctx, project, ListPackagesOptions{Name: name, Version: version}, func(p Package) bool {
		found = &p
		return false
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: package %s version %s in %s", oerrors.ErrNotFound, name, version, project)
	}
	return found, nil
}

// ListPackageFiles lists the files of package packageID.
func (c *Client) ListPackageFiles(ctx context.Context, project string, packageID int64) ([]PackageFile, error) {
	var files []PackageFile
	for page := 1; page > 0; {
		batch, resp, err := c.api.Packages.ListPackageFiles(project, int(packageID),
			&gl.ListPackageFilesOptions{Page: page, PerPage: defaultPerPage}, gl.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing files of package %d: %w", packageID, translate(resp, err))
		}
		for _, f := range batch {
			files = append(files, fromAPIPackageFile(f))
		}
		page = 0
		if resp != nil {
			page = resp.NextPage
		}
	}
	return files, nil
}

// FilesOf lists the files of pkg with Name and Version filled in.
func (c *Client) FilesOf(ctx context.Context, project string, pkg *Package) ([]PackageFile, error) {
	files, err := c.ListPackageFiles(ctx, project, pkg.ID)
	if err != nil {
		return nil, err
	}
	for i := range files {
		files[i].Name = pkg.Name
		files[i].Version = pkg.Version
	}
	return files, nil
}

// genericFileURL is the API location of a generic package file.
func (c *Client) genericFileURL(project, name, version, file string) string {
	return strings.Join([]string{
		c.baseURL.String(), "api", "v4", "projects", url.PathEscape(strings.Trim(project, "/")),
		"packages", "generic", url.PathEscape(name), url.PathEscape(version), url.PathEscape(file),
	}, "/")
}

// UploadPackage PUTs the descriptor's file into the generic package registry.
// GitLab answers 201 for a stored file; re-uploading the same name adds a
// new file to the package rather than failing.
func (c *Client) UploadPackage(ctx context.Context, d registry.UploadDescriptor) (registry.UploadResult, error) {
	if err := d.Validate(); err != nil {
		return registry.UploadResult{}, fmt.Errorf("%w: %w", oerrors.ErrValidation, err)
	}

	f, err := registry.Open(d.FilePath)
	if err != nil {
		return registry.UploadResult{}, fmt.Errorf("opening %s: %w", d.FilePath, err)
	}
	defer f.Close()

	_, resp, err := c.api.GenericPackages.PublishPackageFile(
		d.Project, d.PackageName, d.PackageVersion, d.FileName, f,
		&gl.PublishPackageFileOptions{}, gl.WithContext(ctx))
	if err != nil {
		return registry.UploadResult{}, fmt.Errorf("uploading %s: %w", d.FileName, translate(resp, err))
	}
	if resp != nil && resp.StatusCode != http.StatusCreated {
		return registry.UploadResult{}, fmt.Errorf("uploading %s: unexpected status %d", d.FileName, resp.StatusCode)
	}

	return registry.UploadResult{
		Descriptor: d,
		Size:       f.Size(),
		SHA256:     f.SHA256(),
		URL:        c.genericFileURL(d.Project, d.PackageName, d.PackageVersion, d.FileName),
	}, nil
}

// DownloadFile writes a generic package file into w.
func (c *Client) DownloadFile(ctx context.Context, project, name, version, file string, w io.Writer) (int64, error) {
	data, resp, err := c.api.GenericPackages.DownloadPackageFile(project, name, version, file, gl.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("downloading %s: %w", file, translate(resp, err))
	}
	n, err := w.Write(data)
	if err != nil {
		return int64(n), fmt.Errorf("writing %s: %w", file, err)
	}
	return int64(n), nil
}

// DownloadToDir downloads file into dir, writing through a temp file so a
// failed transfer leaves no partial output. It returns the written path.
func (c *Client) DownloadToDir(ctx context.Context, project string, pf PackageFile, dir string) (string, error) {
	dest := filepath.Join(dir, filepath.Base(pf.FileName))
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(pf.FileName)+".part-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := c.DownloadFile(ctx, project, pf.Name, pf.Version, pf.FileName, tmp); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("moving download into place: %w", err)
	}
	return dest, nil
}

// FileFilter selects package files.
type FileFilter interface {
	Match(PackageFile) bool
}

// FilenameFilter matches an exact file name.
type FilenameFilter string

// Match implements FileFilter.
func (f FilenameFilter) Match(pf PackageFile) bool { return pf.FileName == string(f) }

// PatternFilter matches file names against a regular expression.
type PatternFilter struct{ re *regexp.Regexp }

// Match implements FileFilter.
func (f PatternFilter) Match(pf PackageFile) bool { return f.re.MatchString(pf.FileName) }

// NewFilter builds a filter from a pattern or an exact name. The pattern
// wins when both are set; at least one is required.
func NewFilter(pattern, filename string) (FileFilter, error) {
	switch {
	case pattern != "":
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid file pattern %q: %w", oerrors.ErrValidation, pattern, err)
		}
		return PatternFilter{re: re}, nil
	case filename != "":
		return FilenameFilter(filename), nil
	default:
		return nil, fmt.Errorf("%w: either a file name or a pattern is required", oerrors.ErrValidation)
	}
}

// Filter returns the files matching f, preserving order.
func Filter(files []PackageFile, f FileFilter) []PackageFile {
	var out []PackageFile
	for _, pf := range files {
		if f.Match(pf) {
			out = append(out, pf)
		}
	}
	return out
}
