// Package gateway wraps the remote field-data HTTP API: the four record
// verbs scoped to an owner, the history-entry delete, and the read-only
// farmer hierarchy consumed by reviewer roles. It does no retries and no
// caching; both live with the callers.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/agrotrack/fieldsync/internal/common"
	"github.com/agrotrack/fieldsync/internal/logging"
	"github.com/agrotrack/fieldsync/internal/model"
)

// requestTimeout bounds every call. On expiry the call fails with
// ErrTimeout; the caller decides whether that means "offline" or "skip
// this record".
const requestTimeout = 15 * time.Second

type Gateway struct {
	client  *http.Client
	baseURL string
	log     logging.Logger
}

func New(baseURL string, log logging.Logger) *Gateway {
	client := &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 5,
		},
	}
	return &Gateway{client: client, baseURL: baseURL, log: log}
}

// createRequest is the create payload: a record with the local-only fields
// (local id, provenance, sync flag) stripped. The server assigns the
// canonical id.
type createRequest struct {
	Owner     string            `json:"owner"`
	Crop      string            `json:"crop"`
	Location  string            `json:"location,omitempty"`
	Status    string            `json:"status,omitempty"`
	Notes     string            `json:"notes,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
	History   []model.Action    `json:"history,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// Ping probes the health endpoint; the session's connectivity watcher uses
// it as the reachability signal.
func (g *Gateway) Ping(ctx context.Context) error {
	resp, err := g.doRequest(ctx, http.MethodGet, "/health", "", nil)
	if err != nil {
		return err
	}
	return g.parseResponse(resp, nil)
}

// List returns all of owner's server-held records.
func (g *Gateway) List(ctx context.Context, ownerID string) ([]model.Record, error) {
	resp, err := g.doRequest(ctx, http.MethodGet, "/records", ownerID, nil)
	if err != nil {
		return nil, err
	}

	var records []model.Record
	if err := g.parseResponse(resp, &records); err != nil {
		return nil, err
	}
	normalizeServerRecords(records)
	return records, nil
}

// Create submits a record and returns the server's copy, now carrying the
// canonical id.
func (g *Gateway) Create(ctx context.Context, ownerID string, rec model.Record) (model.Record, error) {
	if err := rec.Validate(); err != nil {
		return model.Record{}, err
	}

	req := createRequest{
		Owner:     rec.Owner,
		Crop:      rec.Crop,
		Location:  rec.Location,
		Status:    rec.Status,
		Notes:     rec.Notes,
		Extra:     rec.Extra,
		History:   rec.History,
		CreatedAt: rec.CreatedAt,
	}

	resp, err := g.doRequest(ctx, http.MethodPost, "/records", ownerID, req)
	if err != nil {
		return model.Record{}, err
	}

	var created model.Record
	if err := g.parseResponse(resp, &created); err != nil {
		return model.Record{}, err
	}
	created.Provenance = model.ProvenanceServer
	created.Synced = true
	return created, nil
}

// UpdateStatus changes a server-held record's status.
func (g *Gateway) UpdateStatus(ctx context.Context, ownerID, recordID, newStatus string) (model.Record, error) {
	resp, err := g.doRequest(ctx, http.MethodPut, "/records/"+recordID, ownerID, updateStatusRequest{Status: newStatus})
	if err != nil {
		return model.Record{}, err
	}

	var updated model.Record
	if err := g.parseResponse(resp, &updated); err != nil {
		return model.Record{}, err
	}
	updated.Provenance = model.ProvenanceServer
	updated.Synced = true
	return updated, nil
}

// DeleteRecord removes a server-held record. A 404 surfaces as
// common.ErrNotFound so callers can choose to treat it as already deleted.
func (g *Gateway) DeleteRecord(ctx context.Context, ownerID, recordID string) error {
	resp, err := g.doRequest(ctx, http.MethodDelete, "/records/"+recordID, ownerID, nil)
	if err != nil {
		return err
	}
	return g.parseResponse(resp, nil)
}

// DeleteAction removes a single history entry of a server-held record, with
// the same not-found distinction as DeleteRecord.
func (g *Gateway) DeleteAction(ctx context.Context, ownerID, recordID, actionID string) error {
	resp, err := g.doRequest(ctx, http.MethodDelete, "/records/"+recordID+"/history/"+actionID, ownerID, nil)
	if err != nil {
		return err
	}
	return g.parseResponse(resp, nil)
}

// ListFarmers returns the farmers visible to a reviewer.
func (g *Gateway) ListFarmers(ctx context.Context, scientistID string) ([]model.Farmer, error) {
	resp, err := g.doRequest(ctx, http.MethodGet, "/farmers", scientistID, nil)
	if err != nil {
		return nil, err
	}

	var farmers []model.Farmer
	if err := g.parseResponse(resp, &farmers); err != nil {
		return nil, err
	}
	return farmers, nil
}

// ListFarmerRecords returns one farmer's records as seen by a reviewer.
func (g *Gateway) ListFarmerRecords(ctx context.Context, scientistID, farmerID string) ([]model.Record, error) {
	resp, err := g.doRequest(ctx, http.MethodGet, "/farmers/"+farmerID+"/records", scientistID, nil)
	if err != nil {
		return nil, err
	}

	var records []model.Record
	if err := g.parseResponse(resp, &records); err != nil {
		return nil, err
	}
	normalizeServerRecords(records)
	return records, nil
}

func normalizeServerRecords(records []model.Record) {
	for i := range records {
		records[i].Provenance = model.ProvenanceServer
		records[i].Synced = true
	}
}

func (g *Gateway) doRequest(ctx context.Context, method, path, ownerToken string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if ownerToken != "" {
		req.Header.Set(common.OwnerTokenHeaderName, ownerToken)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, g.classifyTransportError(ctx, method, path, err)
	}
	return resp, nil
}

func (g *Gateway) classifyTransportError(ctx context.Context, method, path string, err error) error {
	var ne net.Error
	timedOut := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout())

	if timedOut {
		g.log.Warn(ctx, "request timed out", "method", method, "path", path)
		return fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
	}

	g.log.Warn(ctx, "request failed", "method", method, "path", path, "error", err)
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// parseResponse maps non-2xx statuses onto the error taxonomy and decodes a
// 2xx body into out (when out is non-nil).
func (g *Gateway) parseResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to decoding
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, bodyMessage(raw))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", common.ErrUnauthorized, bodyMessage(raw))
	default:
		return &ServerError{Status: resp.StatusCode, Body: bodyMessage(raw)}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// bodyMessage extracts a short message from a best-effort JSON or plain-text
// error body.
func bodyMessage(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return string(raw)
}
