package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	hspapp "github.com/turtacn/mixingcompass/internal/application/hsp"
	domainhsp "github.com/turtacn/mixingcompass/internal/domain/hsp"
	domainsol "github.com/turtacn/mixingcompass/internal/domain/solvent"
	"github.com/turtacn/mixingcompass/internal/infrastructure/storage/csvstore"
	"github.com/turtacn/mixingcompass/pkg/errors"
	hsptypes "github.com/turtacn/mixingcompass/pkg/types/hsp"
)

// NewFitCmd creates the fit command, which runs a sphere fit locally from a
// JSON test file without needing a running server.
func NewFitCmd() *cobra.Command {
	var (
		testsPath    string
		solventsPath string
		loss         string
		mode         string
		sizeFactor   float64
		accuracyScan bool
		seed         int64
	)

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a Hansen sphere to solvent test data",
		Long: "Fit reads solvent tests from a JSON file and fits a Hansen solubility\n" +
			"sphere locally.  Tests naming a solvent without coordinates are resolved\n" +
			"against the CSV table given with --solvents.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			req, err := readFitRequest(testsPath)
			if err != nil {
				return err
			}
			if loss != "" {
				req.Loss = loss
			}
			if mode != "" {
				req.Mode = mode
			}
			if sizeFactor > 0 {
				req.SizeFactor = sizeFactor
			}
			if accuracyScan {
				req.AccuracyScan = true
			}
			if seed != 0 {
				req.Seed = seed
			}

			resolver, err := newFileResolver(solventsPath)
			if err != nil {
				return err
			}

			estimator := domainhsp.NewEstimator(cliCtx.Logger)
			svc := hspapp.NewService(resolver, estimator,
				domainhsp.NewRadiusOnlyOptimizer(estimator, cliCtx.Logger), nil, cliCtx.Logger)

			resp, err := svc.Calculate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, fitResultView{resp})
		},
	}

	cmd.Flags().StringVarP(&testsPath, "tests", "t", "", "JSON file with solvent tests (required)")
	cmd.Flags().StringVarP(&solventsPath, "solvents", "s", "", "CSV solvent table for name lookups")
	cmd.Flags().StringVar(&loss, "loss", "", "loss function name")
	cmd.Flags().StringVar(&mode, "mode", "", "fit mode (sphere, radius_only)")
	cmd.Flags().Float64Var(&sizeFactor, "size-factor", 0, "radius penalty weight")
	cmd.Flags().BoolVar(&accuracyScan, "accuracy-scan", false, "enable radius_only fallback scan")
	cmd.Flags().Int64Var(&seed, "seed", 0, "optimizer seed for reproducible fits")
	_ = cmd.MarkFlagRequired("tests")

	return cmd
}

// readFitRequest loads a CalculateRequest, accepting either the full request
// object or a bare array of tests.
func readFitRequest(path string) (*hsptypes.CalculateRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tests file: %w", err)
	}

	var req hsptypes.CalculateRequest
	if err := json.Unmarshal(data, &req); err == nil && len(req.Tests) > 0 {
		return &req, nil
	}

	var tests []hsptypes.SolventTestInput
	if err := json.Unmarshal(data, &tests); err != nil {
		return nil, fmt.Errorf("parse tests file %s: %w", path, err)
	}
	return &hsptypes.CalculateRequest{Tests: tests}, nil
}

// fileResolver resolves solvent names against a CSV table loaded into
// memory, keyed by normalized name and CAS number.
type fileResolver struct {
	byKey map[string]*domainsol.Solvent
}

func newFileResolver(path string) (*fileResolver, error) {
	r := &fileResolver{byKey: map[string]*domainsol.Solvent{}}
	if path == "" {
		return r, nil
	}

	parsed, err := csvstore.ParseFile(path, domainsol.SourceBuiltin)
	if err != nil {
		return nil, err
	}
	for _, s := range parsed.Solvents {
		r.byKey[s.NormalizedName()] = s
		if s.CAS != "" {
			r.byKey[s.CAS] = s
		}
	}
	return r, nil
}

func (r *fileResolver) Lookup(_ context.Context, nameOrCAS string) (*domainsol.Solvent, error) {
	if s, ok := r.byKey[domainsol.NormalizeName(nameOrCAS)]; ok {
		return s, nil
	}
	if s, ok := r.byKey[nameOrCAS]; ok {
		return s, nil
	}
	return nil, errors.Newf(errors.ErrCodeSolventNotFound,
		"solvent %q not found; pass coordinates explicitly or provide --solvents", nameOrCAS)
}

// fitResultView adds table rendering on top of the calculate response.
type fitResultView struct {
	*hsptypes.CalculateResponse
}

func (v fitResultView) TableHeaders() []string {
	return []string{"delta_d", "delta_p", "delta_h", "radius", "accuracy", "converged"}
}

func (v fitResultView) TableRows() [][]string {
	return [][]string{{
		fmt.Sprintf("%.2f", v.Sphere.DeltaD),
		fmt.Sprintf("%.2f", v.Sphere.DeltaP),
		fmt.Sprintf("%.2f", v.Sphere.DeltaH),
		fmt.Sprintf("%.2f", v.Sphere.Radius),
		fmt.Sprintf("%.3f", v.Accuracy),
		fmt.Sprintf("%t", v.Converged),
	}}
}
