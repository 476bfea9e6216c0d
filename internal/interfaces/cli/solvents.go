package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	stypes "github.com/turtacn/mixingcompass/pkg/types/solvent"
)

// NewSolventsCmd creates the solvents command group, which manages the
// solvent database through a running API server.
func NewSolventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solvents",
		Short: "Manage the solvent database",
	}
	cmd.AddCommand(
		newSolventsListCmd(),
		newSolventsLookupCmd(),
		newSolventsImportCmd(),
		newSolventsExportCmd(),
	)
	return cmd
}

func newSolventsListCmd() *cobra.Command {
	var (
		source   string
		page     int
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List solvents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			resp, err := cliCtx.Client.Solvents().List(cmd.Context(), source, page, pageSize)
			if err != nil {
				return err
			}
			return PrintResult(cmd, solventListView{resp})
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "filter by source (builtin, user)")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 50, "page size")
	return cmd
}

func newSolventsLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <name-or-cas>",
		Short: "Resolve a solvent by name or CAS number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			dto, err := cliCtx.Client.Solvents().Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, dto)
		},
	}
}

func newSolventsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import solvents from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open csv file: %w", err)
			}
			defer f.Close()

			summary, err := cliCtx.Client.Solvents().Import(cmd.Context(), f)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d, skipped %d\n", summary.Imported, summary.Skipped)
			for _, e := range summary.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", e)
			}
			return nil
		},
	}
}

func newSolventsExportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the solvent database as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			return cliCtx.Client.Solvents().Export(cmd.Context(), out)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "f", "", "write to file instead of stdout")
	return cmd
}

type solventListView struct {
	*stypes.SearchResponse
}

func (v solventListView) TableHeaders() []string {
	return []string{"id", "name", "cas", "delta_d", "delta_p", "delta_h", "source"}
}

func (v solventListView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Items))
	for _, s := range v.Items {
		rows = append(rows, []string{
			string(s.ID),
			s.Name,
			s.CAS,
			fmt.Sprintf("%.1f", s.DeltaD),
			fmt.Sprintf("%.1f", s.DeltaP),
			fmt.Sprintf("%.1f", s.DeltaH),
			s.Source,
		})
	}
	return rows
}
