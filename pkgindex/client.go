// Package pkgindex exposes package-registry lookup tools over the gateway.
package pkgindex

import (
	"context"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/petal-labs/toolgate/backend"
)

// BackendName tags classified errors raised by this adapter.
const BackendName = "Registry"

// DefaultBaseURL is the public npm-compatible registry endpoint.
const DefaultBaseURL = "https://registry.npmjs.org"

// Config holds validated registry access parameters.
type Config struct {
	// BaseURL defaults to the public registry.
	BaseURL string
}

// Adapter wraps the registry's HTTP API behind one long-lived client.
type Adapter struct {
	client *backend.HTTPClient
}

// New builds a package registry adapter.
func New(cfg Config) (*Adapter, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Adapter{
		client: &backend.HTTPClient{
			Backend: BackendName,
			BaseURL: baseURL,
		},
	}, nil
}

// Probe issues one cheap search to verify the registry answers.
func (a *Adapter) Probe(ctx context.Context) error {
	query := url.Values{}
	query.Set("text", "probe")
	query.Set("size", "1")
	return a.client.GetJSON(ctx, "/-/v1/search", query, nil)
}

// Close satisfies backend.Prober.
func (a *Adapter) Close(ctx context.Context) error {
	return nil
}

// PackageSummary is the backend-neutral search hit record.
type PackageSummary struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// SearchOutput is the search_packages tool's result shape.
type SearchOutput struct {
	Total         int              `json:"total"`
	Packages      []PackageSummary `json:"packages"`
	ExecutionTime string           `json:"executionTime"`
}

// SearchPackages runs a text search against the registry.
func (a *Adapter) SearchPackages(ctx context.Context, text string, limit int) (*SearchOutput, error) {
	query := url.Values{}
	query.Set("text", text)
	query.Set("size", strconv.Itoa(limit))

	start := time.Now()
	var raw struct {
		Total   int `json:"total"`
		Objects []struct {
			Package struct {
				Name        string `json:"name"`
				Version     string `json:"version"`
				Description string `json:"description"`
			} `json:"package"`
		} `json:"objects"`
	}
	if err := a.client.GetJSON(ctx, "/-/v1/search", query, &raw); err != nil {
		return nil, withPackage(err, "query", text)
	}

	packages := make([]PackageSummary, 0, len(raw.Objects))
	for _, obj := range raw.Objects {
		packages = append(packages, PackageSummary{
			Name:        obj.Package.Name,
			Version:     obj.Package.Version,
			Description: obj.Package.Description,
		})
	}
	return &SearchOutput{
		Total:         raw.Total,
		Packages:      packages,
		ExecutionTime: backend.Elapsed(start),
	}, nil
}

// PackageInfo is the get_package tool's result shape.
type PackageInfo struct {
	Name          string            `json:"name"`
	Latest        string            `json:"latest"`
	Description   string            `json:"description,omitempty"`
	License       string            `json:"license,omitempty"`
	Homepage      string            `json:"homepage,omitempty"`
	DistTags      map[string]string `json:"distTags,omitempty"`
	VersionCount  int               `json:"versionCount"`
	ExecutionTime string            `json:"executionTime"`
}

type rawPackage struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	License     string            `json:"license"`
	Homepage    string            `json:"homepage"`
	DistTags    map[string]string `json:"dist-tags"`
	Versions    map[string]struct {
		Version string `json:"version"`
	} `json:"versions"`
	Time map[string]string `json:"time"`
}

// GetPackage fetches one package's metadata document.
func (a *Adapter) GetPackage(ctx context.Context, name string) (*PackageInfo, error) {
	start := time.Now()
	raw, err := a.fetchPackage(ctx, name)
	if err != nil {
		return nil, err
	}
	return &PackageInfo{
		Name:          raw.Name,
		Latest:        raw.DistTags["latest"],
		Description:   raw.Description,
		License:       raw.License,
		Homepage:      raw.Homepage,
		DistTags:      raw.DistTags,
		VersionCount:  len(raw.Versions),
		ExecutionTime: backend.Elapsed(start),
	}, nil
}

// VersionRecord pairs a version with its publish time.
type VersionRecord struct {
	Version     string `json:"version"`
	PublishedAt string `json:"publishedAt,omitempty"`
}

// VersionsOutput is the list_versions tool's result shape.
type VersionsOutput struct {
	Name          string          `json:"name"`
	VersionCount  int             `json:"versionCount"`
	Versions      []VersionRecord `json:"versions"`
	ExecutionTime string          `json:"executionTime"`
}

// ListVersions reports every published version with its publish time.
func (a *Adapter) ListVersions(ctx context.Context, name string) (*VersionsOutput, error) {
	start := time.Now()
	raw, err := a.fetchPackage(ctx, name)
	if err != nil {
		return nil, err
	}

	versions := make([]VersionRecord, 0, len(raw.Versions))
	for version := range raw.Versions {
		versions = append(versions, VersionRecord{
			Version:     version,
			PublishedAt: raw.Time[version],
		})
	}
	slices.SortFunc(versions, func(a, b VersionRecord) int {
		return strings.Compare(a.Version, b.Version)
	})

	return &VersionsOutput{
		Name:          raw.Name,
		VersionCount:  len(versions),
		Versions:      versions,
		ExecutionTime: backend.Elapsed(start),
	}, nil
}

func (a *Adapter) fetchPackage(ctx context.Context, name string) (*rawPackage, error) {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return nil, backend.New(BackendName, backend.CodeNotFound, "package name is required")
	}

	var raw rawPackage
	if err := a.client.GetJSON(ctx, "/"+url.PathEscape(clean), nil, &raw); err != nil {
		return nil, withPackage(err, "packageName", clean)
	}
	return &raw, nil
}

func withPackage(err error, key, value string) error {
	if backendErr, ok := backend.From(err); ok {
		return backendErr.WithDetail(key, value)
	}
	return err
}
