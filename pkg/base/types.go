package base

import (
	"encoding/json"
	"errors"
	"fmt"
)

// APIError is a provider-reported failure: a non-zero code plus message from
// a response envelope. Transport failures and unparseable bodies are plain
// errors, not APIErrors.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Msg)
}

// GetAPIError extracts an APIError from err if possible
func GetAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// envelope is the common response wrapper of the provider API
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type tokenRequest struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
}

// the token endpoint does not use the data envelope
type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int64  `json:"expire"` // seconds
}

type fieldItem struct {
	FieldID   string `json:"field_id"`
	FieldName string `json:"field_name"`
	Type      int    `json:"type"`
}

type listFieldsData struct {
	Items     []fieldItem `json:"items"`
	HasMore   bool        `json:"has_more"`
	PageToken string      `json:"page_token"`
}

type createFieldRequest struct {
	FieldName string `json:"field_name"`
	Type      int    `json:"type"`
}

type createFieldData struct {
	Field fieldItem `json:"field"`
}

type recordPayload struct {
	Fields map[string]interface{} `json:"fields"`
}

type batchCreateRequest struct {
	Records []recordPayload `json:"records"`
}

type batchCreateData struct {
	Records []struct {
		RecordID string `json:"record_id"`
	} `json:"records"`
}
