// Package mailbox exposes read-only email-store tools over the gateway.
package mailbox

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/petal-labs/toolgate/backend"
)

// BackendName tags classified errors raised by this adapter.
const BackendName = "Mailbox"

// Config holds validated mail-store access parameters.
type Config struct {
	// BaseURL is the mail store's API root.
	BaseURL string
	Token   string
}

// Adapter wraps the mail store's HTTP API behind one long-lived client.
type Adapter struct {
	client *backend.HTTPClient
}

// New builds a mailbox adapter.
func New(cfg Config) (*Adapter, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("mailbox: base URL is required")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("mailbox: access token is required")
	}
	return &Adapter{
		client: &backend.HTTPClient{
			Backend: BackendName,
			BaseURL: baseURL,
			Headers: map[string]string{"Authorization": "Bearer " + cfg.Token},
		},
	}, nil
}

// Probe lists folders once to verify credentials and reachability.
func (a *Adapter) Probe(ctx context.Context) error {
	_, err := a.ListFolders(ctx)
	return err
}

// Close satisfies backend.Prober.
func (a *Adapter) Close(ctx context.Context) error {
	return nil
}

// Folder is the backend-neutral folder record.
type Folder struct {
	Name   string `json:"name"`
	Total  int    `json:"total"`
	Unread int    `json:"unread"`
}

// FoldersOutput is the list_folders tool's result shape.
type FoldersOutput struct {
	FolderCount   int      `json:"folderCount"`
	Folders       []Folder `json:"folders"`
	ExecutionTime string   `json:"executionTime"`
}

// ListFolders enumerates mailbox folders with message counts.
func (a *Adapter) ListFolders(ctx context.Context) (*FoldersOutput, error) {
	start := time.Now()
	var raw struct {
		Folders []struct {
			Name   string `json:"name"`
			Total  int    `json:"total"`
			Unread int    `json:"unread"`
		} `json:"folders"`
	}
	if err := a.client.GetJSON(ctx, "/api/folders", nil, &raw); err != nil {
		return nil, err
	}

	folders := make([]Folder, 0, len(raw.Folders))
	for _, f := range raw.Folders {
		folders = append(folders, Folder{Name: f.Name, Total: f.Total, Unread: f.Unread})
	}
	return &FoldersOutput{
		FolderCount:   len(folders),
		Folders:       folders,
		ExecutionTime: backend.Elapsed(start),
	}, nil
}

// MessageSummary is the backend-neutral message listing record.
type MessageSummary struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Unread  bool   `json:"unread,omitempty"`
}

// MessagesOutput is the list/search tools' result shape.
type MessagesOutput struct {
	MessageCount  int              `json:"messageCount"`
	Messages      []MessageSummary `json:"messages"`
	ExecutionTime string           `json:"executionTime"`
}

type rawMessageList struct {
	Messages []struct {
		ID      string `json:"id"`
		From    string `json:"from"`
		Subject string `json:"subject"`
		Date    string `json:"date"`
		Unread  bool   `json:"unread"`
	} `json:"messages"`
}

// ListMessages pages through one folder's messages, newest first.
func (a *Adapter) ListMessages(ctx context.Context, folder string, page, limit int) (*MessagesOutput, error) {
	query := url.Values{}
	query.Set("folder", folder)
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	start := time.Now()
	var raw rawMessageList
	if err := a.client.GetJSON(ctx, "/api/messages", query, &raw); err != nil {
		return nil, withDetail(err, "folder", folder)
	}
	return mapMessages(raw, start), nil
}

// SearchMessages runs a free-text search across the store.
func (a *Adapter) SearchMessages(ctx context.Context, queryText string, limit int) (*MessagesOutput, error) {
	query := url.Values{}
	query.Set("q", queryText)
	query.Set("limit", strconv.Itoa(limit))

	start := time.Now()
	var raw rawMessageList
	if err := a.client.GetJSON(ctx, "/api/messages/search", query, &raw); err != nil {
		return nil, withDetail(err, "query", queryText)
	}
	return mapMessages(raw, start), nil
}

// Message is the get_message tool's result shape.
type Message struct {
	ID            string   `json:"id"`
	From          string   `json:"from"`
	To            []string `json:"to"`
	Subject       string   `json:"subject"`
	Date          string   `json:"date"`
	Body          string   `json:"body"`
	ExecutionTime string   `json:"executionTime"`
}

// GetMessage fetches one message including its text body.
func (a *Adapter) GetMessage(ctx context.Context, id string) (*Message, error) {
	start := time.Now()
	var raw struct {
		ID      string   `json:"id"`
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		Date    string   `json:"date"`
		Body    string   `json:"body"`
	}
	if err := a.client.GetJSON(ctx, "/api/messages/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, withDetail(err, "messageId", id)
	}
	return &Message{
		ID:            raw.ID,
		From:          raw.From,
		To:            raw.To,
		Subject:       raw.Subject,
		Date:          raw.Date,
		Body:          raw.Body,
		ExecutionTime: backend.Elapsed(start),
	}, nil
}

func mapMessages(raw rawMessageList, start time.Time) *MessagesOutput {
	messages := make([]MessageSummary, 0, len(raw.Messages))
	for _, m := range raw.Messages {
		messages = append(messages, MessageSummary{
			ID:      m.ID,
			From:    m.From,
			Subject: m.Subject,
			Date:    m.Date,
			Unread:  m.Unread,
		})
	}
	return &MessagesOutput{
		MessageCount:  len(messages),
		Messages:      messages,
		ExecutionTime: backend.Elapsed(start),
	}
}

func withDetail(err error, key, value string) error {
	if backendErr, ok := backend.From(err); ok {
		return backendErr.WithDetail(key, value)
	}
	return err
}
