package pkgindex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/petal-labs/toolgate/backend"
)

func newTestAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	adapter, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New = %v", err)
	}
	return adapter
}

func TestSearchPackages(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/-/v1/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("text"); got != "router" {
			t.Errorf("text = %q", got)
		}
		if got := r.URL.Query().Get("size"); got != "5" {
			t.Errorf("size = %q, want 5", got)
		}
		_, _ = w.Write([]byte(`{"total":2,"objects":[
			{"package":{"name":"router","version":"2.0.0","description":"a router"}},
			{"package":{"name":"tiny-router","version":"0.3.1"}}
		]}`))
	}))

	out, err := adapter.SearchPackages(context.Background(), "router", 5)
	if err != nil {
		t.Fatalf("SearchPackages = %v", err)
	}
	if out.Total != 2 || len(out.Packages) != 2 {
		t.Fatalf("total = %d packages = %d", out.Total, len(out.Packages))
	}
	if out.Packages[0].Name != "router" || out.Packages[0].Version != "2.0.0" {
		t.Errorf("first hit = %+v", out.Packages[0])
	}
}

func TestGetPackage(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/router" {
			t.Errorf("path = %s, want /router", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"name":"router","description":"a router","license":"MIT",
			"dist-tags":{"latest":"2.0.0"},
			"versions":{"1.0.0":{"version":"1.0.0"},"2.0.0":{"version":"2.0.0"}},
			"time":{"1.0.0":"2024-01-01T00:00:00Z","2.0.0":"2025-06-01T00:00:00Z"}
		}`))
	}))

	out, err := adapter.GetPackage(context.Background(), "router")
	if err != nil {
		t.Fatalf("GetPackage = %v", err)
	}
	if out.Latest != "2.0.0" {
		t.Errorf("latest = %s, want 2.0.0", out.Latest)
	}
	if out.VersionCount != 2 {
		t.Errorf("versionCount = %d, want 2", out.VersionCount)
	}
	if out.License != "MIT" {
		t.Errorf("license = %s", out.License)
	}
}

func TestGetPackageEscapesScopedNames(t *testing.T) {
	var gotPath string
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"name":"@scope/pkg","dist-tags":{"latest":"1.0.0"},"versions":{}}`))
	}))

	if _, err := adapter.GetPackage(context.Background(), "@scope/pkg"); err != nil {
		t.Fatalf("GetPackage = %v", err)
	}
	if gotPath != "/@scope%2Fpkg" {
		t.Errorf("path = %q, want escaped scoped name", gotPath)
	}
}

func TestListVersionsSorted(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"name":"router",
			"versions":{"2.0.0":{"version":"2.0.0"},"1.0.0":{"version":"1.0.0"}},
			"time":{"1.0.0":"2024-01-01T00:00:00Z"}
		}`))
	}))

	out, err := adapter.ListVersions(context.Background(), "router")
	if err != nil {
		t.Fatalf("ListVersions = %v", err)
	}
	if out.VersionCount != 2 {
		t.Fatalf("versionCount = %d, want 2", out.VersionCount)
	}
	if out.Versions[0].Version != "1.0.0" || out.Versions[1].Version != "2.0.0" {
		t.Errorf("versions = %+v, want ascending order", out.Versions)
	}
	if out.Versions[0].PublishedAt == "" {
		t.Error("publishedAt missing for 1.0.0")
	}
}

func TestGetPackageNotFoundCarriesName(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found"}`))
	}))

	_, err := adapter.GetPackage(context.Background(), "no-such-pkg")
	var classified *backend.Error
	if !errors.As(err, &classified) {
		t.Fatalf("error type = %T", err)
	}
	if classified.Code != backend.CodeNotFound {
		t.Errorf("code = %s, want %s", classified.Code, backend.CodeNotFound)
	}
	if classified.Details["packageName"] != "no-such-pkg" {
		t.Errorf("packageName detail = %v", classified.Details["packageName"])
	}
}

func TestFetchPackageRejectsEmptyName(t *testing.T) {
	adapter, err := New(Config{})
	if err != nil {
		t.Fatalf("New = %v", err)
	}
	if _, err := adapter.GetPackage(context.Background(), "  "); err == nil {
		t.Fatal("GetPackage(blank) = nil, want error")
	}
}
