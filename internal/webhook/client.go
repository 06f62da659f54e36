// Package webhook talks to the spreadsheet automation endpoint that holds the
// master copy of the unit roll.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"prezence/api/internal/roster"
)

const (
	actionFetchAll  = "fetch_all"
	actionExportAll = "export_all"

	// maxBodyBytes bounds how much of a response is read.
	maxBodyBytes = 10 << 20
)

var ErrNotConfigured = errors.New("webhook url is not configured")

// TransportError wraps a failure to reach the endpoint or read its reply.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("webhook unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError is a non-2xx answer to an export.
type RemoteError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("webhook rejected export: %s", e.Status)
}

type Client struct {
	HTTP *http.Client
	Now  func() time.Time
}

func New(timeout time.Duration) *Client {
	return &Client{
		HTTP: &http.Client{Timeout: timeout},
		Now:  time.Now,
	}
}

type fetchRequest struct {
	Action string `json:"action"`
	T      int64  `json:"_t"`
}

// Fetch asks the endpoint for the full roll and returns the raw reply body.
// The status code is not inspected; the caller decides from the body.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if strings.TrimSpace(url) == "" {
		return nil, ErrNotConfigured
	}
	resp, err := c.post(ctx, url, fetchRequest{Action: actionFetchAll, T: c.now().UnixMilli()})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}
	return body, nil
}

// ExportUnit is one row of the export payload. Both owner spellings are sent
// since sheet scenarios differ in which header they map.
type ExportUnit struct {
	ID             float64 `json:"ID"`
	RowNumber      float64 `json:"RowNumber"`
	Block          string  `json:"Vchod"`
	UnitNumber     string  `json:"Jednotka"`
	OwnerName      string  `json:"Vlastník"`
	OwnerNameASCII string  `json:"Vlastnik"`
}

type exportRequest struct {
	Action    string       `json:"action"`
	Timestamp string       `json:"timestamp"`
	Units     []ExportUnit `json:"units"`
}

// ExportRows maps units onto sheet rows. The sheet has a header row, so a
// unit's row number is its id plus one.
func ExportRows(units []roster.Unit) []ExportUnit {
	rows := make([]ExportUnit, len(units))
	for i, u := range units {
		id := u.ID.Numeric()
		rows[i] = ExportUnit{
			ID:             id,
			RowNumber:      id + 1,
			Block:          u.Block,
			UnitNumber:     u.UnitNumber,
			OwnerName:      u.OwnerName,
			OwnerNameASCII: u.OwnerName,
		}
	}
	return rows
}

// Export sends the given units back to the sheet. Any 2xx reply counts as
// accepted.
func (c *Client) Export(ctx context.Context, url string, units []roster.Unit) error {
	if strings.TrimSpace(url) == "" {
		return ErrNotConfigured
	}
	payload := exportRequest{
		Action:    actionExportAll,
		Timestamp: c.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Units:     ExportRows(units),
	}
	resp, err := c.post(ctx, url, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		return &RemoteError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	return nil
}

func (c *Client) post(ctx context.Context, url string, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return resp, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func (c *Client) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
