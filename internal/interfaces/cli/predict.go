package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/mixingcompass/internal/intelligence/hsppredictor"
)

// NewPredictCmd creates the predict command, which estimates Hansen
// parameters from a SMILES string using the local descriptor model.
func NewPredictCmd() *cobra.Command {
	var weightsPath string

	cmd := &cobra.Command{
		Use:   "predict <smiles>",
		Short: "Predict Hansen parameters from a SMILES string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			predictor := hsppredictor.NewPredictor(cliCtx.Logger)
			if weightsPath != "" {
				if err := predictor.LoadWeights(weightsPath); err != nil {
					return err
				}
			}

			pred, err := predictor.Predict(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, predictionView{pred})
		},
	}

	cmd.Flags().StringVar(&weightsPath, "weights", "", "JSON weights file (default: built-in baseline)")
	return cmd
}

type predictionView struct {
	*hsppredictor.Prediction
}

func (v predictionView) TableHeaders() []string {
	return []string{"smiles", "delta_d", "delta_p", "delta_h", "boiling_point", "model"}
}

func (v predictionView) TableRows() [][]string {
	return [][]string{{
		v.SMILES,
		fmt.Sprintf("%.2f", v.DeltaD),
		fmt.Sprintf("%.2f", v.DeltaP),
		fmt.Sprintf("%.2f", v.DeltaH),
		fmt.Sprintf("%.1f", v.BoilingPoint),
		v.ModelVersion,
	}}
}
