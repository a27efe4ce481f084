// Package vault exposes read-only secrets-vault tools over the gateway.
// Secret values never appear in logs or error payloads; failures carry the
// secret id only.
package vault

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/petal-labs/toolgate/backend"
)

// BackendName tags classified errors raised by this adapter.
const BackendName = "Vault"

// Config holds validated vault access parameters.
type Config struct {
	// Address is the vault API root, e.g. https://vault.internal:8200.
	Address string
	Token   string
	// Mount is the KV mount point, default "secret".
	Mount string
}

// Adapter wraps the vault's KV HTTP API behind one long-lived client.
type Adapter struct {
	client *backend.HTTPClient
	mount  string
}

// New builds a vault adapter.
func New(cfg Config) (*Adapter, error) {
	address := strings.TrimSpace(cfg.Address)
	if address == "" {
		return nil, errors.New("vault: address is required")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("vault: token is required")
	}
	mount := strings.Trim(strings.TrimSpace(cfg.Mount), "/")
	if mount == "" {
		mount = "secret"
	}
	return &Adapter{
		client: &backend.HTTPClient{
			Backend: BackendName,
			BaseURL: address,
			Headers: map[string]string{"X-Vault-Token": cfg.Token},
		},
		mount: mount,
	}, nil
}

// Probe checks the vault's health endpoint once at startup.
func (a *Adapter) Probe(ctx context.Context) error {
	var out struct {
		Initialized bool `json:"initialized"`
		Sealed      bool `json:"sealed"`
	}
	if err := a.client.GetJSON(ctx, "/v1/sys/health", nil, &out); err != nil {
		return err
	}
	if out.Sealed {
		return backend.New(BackendName, backend.CodeUpstreamFailure, "vault is sealed")
	}
	return nil
}

// Close satisfies backend.Prober.
func (a *Adapter) Close(ctx context.Context) error {
	return nil
}

// SecretList is the list_secrets tool's result shape.
type SecretList struct {
	SecretCount   int      `json:"secretCount"`
	Keys          []string `json:"keys"`
	ExecutionTime string   `json:"executionTime"`
}

// ListSecrets enumerates secret names under a path prefix. Names only; no
// values are fetched.
func (a *Adapter) ListSecrets(ctx context.Context, prefix string) (*SecretList, error) {
	path := fmt.Sprintf("/v1/%s/metadata/%s", a.mount, strings.Trim(prefix, "/"))
	query := url.Values{}
	query.Set("list", "true")

	start := time.Now()
	var raw struct {
		Data struct {
			Keys []string `json:"keys"`
		} `json:"data"`
	}
	if err := a.client.GetJSON(ctx, path, query, &raw); err != nil {
		return nil, withSecretID(err, prefix)
	}
	return &SecretList{
		SecretCount:   len(raw.Data.Keys),
		Keys:          raw.Data.Keys,
		ExecutionTime: backend.Elapsed(start),
	}, nil
}

// SecretMetadata is the get_secret_metadata tool's result shape.
type SecretMetadata struct {
	SecretID      string `json:"secretId"`
	CurrentVer    int    `json:"currentVersion"`
	CreatedTime   string `json:"createdTime,omitempty"`
	UpdatedTime   string `json:"updatedTime,omitempty"`
	ExecutionTime string `json:"executionTime"`
}

// GetSecretMetadata fetches version metadata without touching the value.
func (a *Adapter) GetSecretMetadata(ctx context.Context, secretID string) (*SecretMetadata, error) {
	path := fmt.Sprintf("/v1/%s/metadata/%s", a.mount, strings.Trim(secretID, "/"))

	start := time.Now()
	var raw struct {
		Data struct {
			CurrentVersion int    `json:"current_version"`
			CreatedTime    string `json:"created_time"`
			UpdatedTime    string `json:"updated_time"`
		} `json:"data"`
	}
	if err := a.client.GetJSON(ctx, path, nil, &raw); err != nil {
		return nil, withSecretID(err, secretID)
	}
	return &SecretMetadata{
		SecretID:      secretID,
		CurrentVer:    raw.Data.CurrentVersion,
		CreatedTime:   raw.Data.CreatedTime,
		UpdatedTime:   raw.Data.UpdatedTime,
		ExecutionTime: backend.Elapsed(start),
	}, nil
}

// Secret is the get_secret tool's result shape. Data is present only when
// the caller explicitly asked for values.
type Secret struct {
	SecretID      string            `json:"secretId"`
	Version       int               `json:"version"`
	Keys          []string          `json:"keys"`
	Data          map[string]string `json:"data,omitempty"`
	ExecutionTime string            `json:"executionTime"`
}

// GetSecret fetches one secret. With includeValues false (the default) only
// the key names are reported.
func (a *Adapter) GetSecret(ctx context.Context, secretID string, includeValues bool) (*Secret, error) {
	path := fmt.Sprintf("/v1/%s/data/%s", a.mount, strings.Trim(secretID, "/"))

	start := time.Now()
	var raw struct {
		Data struct {
			Data     map[string]string `json:"data"`
			Metadata struct {
				Version int `json:"version"`
			} `json:"metadata"`
		} `json:"data"`
	}
	if err := a.client.GetJSON(ctx, path, nil, &raw); err != nil {
		return nil, withSecretID(err, secretID)
	}

	keys := make([]string, 0, len(raw.Data.Data))
	for key := range raw.Data.Data {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	out := &Secret{
		SecretID:      secretID,
		Version:       raw.Data.Metadata.Version,
		Keys:          keys,
		ExecutionTime: backend.Elapsed(start),
	}
	if includeValues {
		out.Data = raw.Data.Data
	}
	return out, nil
}

func withSecretID(err error, secretID string) error {
	if backendErr, ok := backend.From(err); ok {
		return backendErr.WithDetail("secretId", secretID)
	}
	return err
}
