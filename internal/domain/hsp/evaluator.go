package hsp

// SampleDiagnostic records how a single observation fared against a fitted
// sphere.
type SampleDiagnostic struct {
	Name            string  `json:"name,omitempty"`
	RED             float64 `json:"red"`
	PredictedInside bool    `json:"predicted_inside"`
	Correct         bool    `json:"correct"`
}

// Evaluation aggregates per-sample classification diagnostics for one sphere
// against one dataset.
type Evaluation struct {
	Accuracy  float64            `json:"accuracy"`
	PerSample []SampleDiagnostic `json:"per_sample"`
}

// evaluationThreshold is the fixed score cut used to binarize continuous
// scores during evaluation.  It is deliberately distinct from the continuous
// weighting the losses apply during fitting: training stays graded, but a
// sample counts as correctly classified iff (score ≥ 0.5) agrees with the
// RED < 1 prediction.
const evaluationThreshold = 0.5

// Evaluate classifies every observation against the sphere and returns the
// aggregate accuracy plus per-sample diagnostics.  Pure function: repeated
// calls with identical inputs yield identical results.
func Evaluate(sphere HansenSphere, obs []SolventObservation) Evaluation {
	perSample := make([]SampleDiagnostic, len(obs))
	correct := 0
	for i, o := range obs {
		red := sphere.RED(o.Point)
		inside := red < 1.0
		ok := (o.Score >= evaluationThreshold) == inside
		if ok {
			correct++
		}
		perSample[i] = SampleDiagnostic{
			Name:            o.Name,
			RED:             red,
			PredictedInside: inside,
			Correct:         ok,
		}
	}
	acc := 0.0
	if len(obs) > 0 {
		acc = float64(correct) / float64(len(obs))
	}
	return Evaluation{Accuracy: acc, PerSample: perSample}
}
