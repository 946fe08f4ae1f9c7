package base

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/uzuki-dev/json-to-base/pkg/logger"
	"github.com/uzuki-dev/json-to-base/pkg/schema"
)

// DefaultBaseURL is the provider's public endpoint
const DefaultBaseURL = "https://open.larksuite.com"

// tokenSlack refreshes the token this long before the provider expires it
const tokenSlack = 60 * time.Second

// Config configures a provider client. The caller loads credentials; this
// package never reads the environment.
type Config struct {
	BaseURL   string
	AppID     string
	AppSecret string

	// HTTPClient defaults to a client without its own timeout; deadlines
	// come from the caller's context
	HTTPClient *http.Client
	Log        *logger.Logger
}

// Client talks to the provider's open API. It performs exactly four kinds of
// calls: token exchange, schema read, single-field create, bulk record
// create. No retries, no internal timeouts; every call either succeeds,
// returns an APIError, or returns a wrapped transport error.
type Client struct {
	httpClient *http.Client
	baseURL    string
	appID      string
	appSecret  string
	log        *logger.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a provider client
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	log := cfg.Log
	if log == nil {
		log = logger.Discard()
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		appID:      cfg.AppID,
		appSecret:  cfg.AppSecret,
		log:        log,
	}
}

// ensureToken exchanges app credentials for a tenant token, reusing a cached
// token until shortly before it expires
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	body, err := json.Marshal(tokenRequest{AppID: c.appID, AppSecret: c.appSecret})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/open-apis/auth/v3/tenant_access_token/internal", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(respBody, &tok); err != nil {
		return "", fmt.Errorf("malformed token response (http %d): %w", resp.StatusCode, err)
	}
	if tok.Code != 0 {
		return "", &APIError{Code: tok.Code, Msg: tok.Msg}
	}
	if tok.TenantAccessToken == "" {
		return "", fmt.Errorf("token response carried no token (http %d)", resp.StatusCode)
	}

	c.token = tok.TenantAccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.Expire)*time.Second - tokenSlack)
	c.log.Debug("Exchanged app credentials for tenant token")

	return c.token, nil
}

// doCall issues one authorized API call and decodes the data envelope into
// out. Provider failures come back as *APIError.
func (c *Client) doCall(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("malformed provider response (http %d): %w", resp.StatusCode, err)
	}
	if env.Code != 0 {
		return &APIError{Code: env.Code, Msg: env.Msg}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected http status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("malformed provider data: %w", err)
		}
	}
	return nil
}

// Table returns a handle scoped to one table of one app. It satisfies
// ingest.Provider.
func (c *Client) Table(appToken, tableID string) *Table {
	return &Table{client: c, appToken: appToken, tableID: tableID}
}

// Table is a table-scoped view of the client
type Table struct {
	client   *Client
	appToken string
	tableID  string
}

func (t *Table) path(suffix string) string {
	return fmt.Sprintf("/open-apis/bitable/v1/apps/%s/tables/%s%s",
		url.PathEscape(t.appToken), url.PathEscape(t.tableID), suffix)
}

// ListFields reads the table's schema, following pagination
func (t *Table) ListFields(ctx context.Context) ([]schema.ExistingField, error) {
	var fields []schema.ExistingField
	pageToken := ""

	for {
		path := t.path("/fields?page_size=100")
		if pageToken != "" {
			path += "&page_token=" + url.QueryEscape(pageToken)
		}

		var data listFieldsData
		if err := t.client.doCall(ctx, http.MethodGet, path, nil, &data); err != nil {
			return nil, fmt.Errorf("list fields: %w", err)
		}

		for _, it := range data.Items {
			fields = append(fields, schema.ExistingField{
				ID:       it.FieldID,
				Name:     it.FieldName,
				NormName: schema.NormalizeFieldName(it.FieldName),
				Type:     schema.FieldType(it.Type),
			})
		}

		if !data.HasMore || data.PageToken == "" {
			return fields, nil
		}
		pageToken = data.PageToken
	}
}

// CreateField creates a single field with the given literal name and type
func (t *Table) CreateField(ctx context.Context, name string, typ schema.FieldType) (schema.ExistingField, error) {
	var data createFieldData
	err := t.client.doCall(ctx, http.MethodPost, t.path("/fields"),
		createFieldRequest{FieldName: name, Type: int(typ)}, &data)
	if err != nil {
		return schema.ExistingField{}, err
	}

	f := data.Field
	if f.FieldName == "" {
		f.FieldName = name
	}
	if f.Type == 0 {
		f.Type = int(typ)
	}
	return schema.ExistingField{
		ID:       f.FieldID,
		Name:     f.FieldName,
		NormName: schema.NormalizeFieldName(f.FieldName),
		Type:     schema.FieldType(f.Type),
	}, nil
}

// maxBatchRecords is the provider's hard ceiling per bulk-create call
const maxBatchRecords = 500

// BatchCreateRecords writes up to 500 records in one call and returns the
// created record ids in submission order
func (t *Table) BatchCreateRecords(ctx context.Context, records []map[string]interface{}) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if len(records) > maxBatchRecords {
		return nil, fmt.Errorf("batch of %d records exceeds provider limit of %d", len(records), maxBatchRecords)
	}

	reqBody := batchCreateRequest{Records: make([]recordPayload, len(records))}
	for i, rec := range records {
		reqBody.Records[i] = recordPayload{Fields: rec}
	}

	var data batchCreateData
	if err := t.client.doCall(ctx, http.MethodPost, t.path("/records/batch_create"), reqBody, &data); err != nil {
		return nil, err
	}

	ids := make([]string, len(data.Records))
	for i, rec := range data.Records {
		ids[i] = rec.RecordID
	}
	return ids, nil
}
