package client

import "context"

// Prediction is the transport form of one SMILES → HSP estimate.
type Prediction struct {
	SMILES       string  `json:"smiles"`
	DeltaD       float64 `json:"delta_d"`
	DeltaP       float64 `json:"delta_p"`
	DeltaH       float64 `json:"delta_h"`
	BoilingPoint float64 `json:"boiling_point"`
	ModelVersion string  `json:"model_version"`
}

// PredictClient calls the structure-based prediction endpoints.
type PredictClient struct {
	client *Client
}

// SMILES predicts Hansen parameters for one structure string.
func (p *PredictClient) SMILES(ctx context.Context, smiles string) (*Prediction, error) {
	req := struct {
		SMILES string `json:"smiles"`
	}{SMILES: smiles}

	var pred Prediction
	if err := p.client.post(ctx, "/api/v1/predict/smiles", req, &pred); err != nil {
		return nil, err
	}
	return &pred, nil
}
