package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	exptypes "github.com/turtacn/mixingcompass/pkg/types/experiment"
	hsptypes "github.com/turtacn/mixingcompass/pkg/types/hsp"
)

// ExperimentsClient calls the solubility-experiment endpoints.
type ExperimentsClient struct {
	client *Client
}

// Create opens a new experiment.
func (e *ExperimentsClient) Create(ctx context.Context, req *exptypes.CreateRequest) (*exptypes.ExperimentDTO, error) {
	var dto exptypes.ExperimentDTO
	if err := e.client.post(ctx, "/api/v1/experiments", req, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// Get fetches one experiment by ID.
func (e *ExperimentsClient) Get(ctx context.Context, id string) (*exptypes.ExperimentDTO, error) {
	var dto exptypes.ExperimentDTO
	if err := e.client.get(ctx, "/api/v1/experiments/"+url.PathEscape(id), &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// List fetches a filtered page of experiments.
func (e *ExperimentsClient) List(ctx context.Context, req *exptypes.SearchRequest) (*exptypes.ListResponse, error) {
	q := url.Values{}
	if req != nil {
		if req.Query != "" {
			q.Set("query", req.Query)
		}
		if req.Tag != "" {
			q.Set("tag", req.Tag)
		}
		if req.Calculated != nil {
			q.Set("calculated", strconv.FormatBool(*req.Calculated))
		}
		if req.Page > 0 {
			q.Set("page", strconv.Itoa(req.Page))
		}
		if req.PageSize > 0 {
			q.Set("page_size", strconv.Itoa(req.PageSize))
		}
	}
	path := "/api/v1/experiments"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var resp exptypes.ListResponse
	if err := e.client.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddTest appends one solvent observation to an experiment.
func (e *ExperimentsClient) AddTest(ctx context.Context, id string, test hsptypes.SolventTestInput) (*exptypes.ExperimentDTO, error) {
	var dto exptypes.ExperimentDTO
	if err := e.client.post(ctx, "/api/v1/experiments/"+url.PathEscape(id)+"/tests", test, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// Delete removes an experiment.
func (e *ExperimentsClient) Delete(ctx context.Context, id string) error {
	return e.client.delete(ctx, "/api/v1/experiments/"+url.PathEscape(id))
}

// Calculate fits a Hansen sphere to the experiment's tests.  opts may be
// nil for a default sphere fit.
func (e *ExperimentsClient) Calculate(ctx context.Context, id string, opts *exptypes.CalculateOptions) (*exptypes.ExperimentDTO, error) {
	var dto exptypes.ExperimentDTO
	if err := e.client.post(ctx, "/api/v1/experiments/"+url.PathEscape(id)+"/calculate", opts, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// Visualization returns the experiment's Plotly figure as raw JSON.
func (e *ExperimentsClient) Visualization(ctx context.Context, id, format string) (json.RawMessage, error) {
	path := "/api/v1/experiments/" + url.PathEscape(id) + "/visualization"
	if format != "" {
		path += "?format=" + url.QueryEscape(format)
	}
	var figure json.RawMessage
	if err := e.client.get(ctx, path, &figure); err != nil {
		return nil, err
	}
	return figure, nil
}
