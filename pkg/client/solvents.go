package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	stypes "github.com/turtacn/mixingcompass/pkg/types/solvent"
)

// SolventsClient calls the solvent-database endpoints.
type SolventsClient struct {
	client *Client
}

// Create registers a user solvent.
func (s *SolventsClient) Create(ctx context.Context, req *stypes.CreateRequest) (*stypes.SolventDTO, error) {
	var dto stypes.SolventDTO
	if err := s.client.post(ctx, "/api/v1/solvents", req, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// Get fetches one solvent by ID.
func (s *SolventsClient) Get(ctx context.Context, id string) (*stypes.SolventDTO, error) {
	var dto stypes.SolventDTO
	if err := s.client.get(ctx, "/api/v1/solvents/"+url.PathEscape(id), &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// Lookup resolves a solvent by name or CAS number.
func (s *SolventsClient) Lookup(ctx context.Context, nameOrCAS string) (*stypes.SolventDTO, error) {
	var dto stypes.SolventDTO
	path := "/api/v1/solvents/lookup?q=" + url.QueryEscape(nameOrCAS)
	if err := s.client.get(ctx, path, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// Search runs a filtered listing.
func (s *SolventsClient) Search(ctx context.Context, req *stypes.SearchRequest) (*stypes.SearchResponse, error) {
	var resp stypes.SearchResponse
	if err := s.client.post(ctx, "/api/v1/solvents/search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List fetches one page of solvents, optionally filtered by source.
func (s *SolventsClient) List(ctx context.Context, source string, page, pageSize int) (*stypes.SearchResponse, error) {
	q := url.Values{}
	if source != "" {
		q.Set("source", source)
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	path := "/api/v1/solvents"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var resp stypes.SearchResponse
	if err := s.client.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Delete removes a user solvent.
func (s *SolventsClient) Delete(ctx context.Context, id string) error {
	return s.client.delete(ctx, "/api/v1/solvents/"+url.PathEscape(id))
}

// Import uploads CSV rows to the database.
func (s *SolventsClient) Import(ctx context.Context, csv io.Reader) (*stypes.ImportSummary, error) {
	data, err := io.ReadAll(csv)
	if err != nil {
		return nil, fmt.Errorf("read csv input: %w", err)
	}
	var summary stypes.ImportSummary
	if err := s.client.doRaw(ctx, http.MethodPost, "/api/v1/solvents/import", "text/csv", data, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Export streams the whole database as CSV into w.
func (s *SolventsClient) Export(ctx context.Context, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.client.baseURL+"/api/v1/solvents/export", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.client.userAgent)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	_, err = io.Copy(w, resp.Body)
	return err
}
