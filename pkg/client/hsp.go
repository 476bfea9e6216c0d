package client

import (
	"context"

	hsptypes "github.com/turtacn/mixingcompass/pkg/types/hsp"
)

// HSPClient calls the stateless sphere-calculation endpoints.
type HSPClient struct {
	client *Client
}

// Calculate runs one sphere fit server-side.
func (h *HSPClient) Calculate(ctx context.Context, req *hsptypes.CalculateRequest) (*hsptypes.CalculateResponse, error) {
	var resp hsptypes.CalculateResponse
	if err := h.client.post(ctx, "/api/v1/hsp/calculate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LossFunctions lists the loss variants the server supports.
func (h *HSPClient) LossFunctions(ctx context.Context) ([]hsptypes.LossFunctionInfo, error) {
	var resp struct {
		LossFunctions []hsptypes.LossFunctionInfo `json:"loss_functions"`
	}
	if err := h.client.get(ctx, "/api/v1/hsp/loss-functions", &resp); err != nil {
		return nil, err
	}
	return resp.LossFunctions, nil
}
