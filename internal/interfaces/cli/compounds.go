package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChemStor-Intelligence/pkg/client"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// ─────────────────────────────────────────────────────────────────────────────
// resolve
// ─────────────────────────────────────────────────────────────────────────────

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve a compound and show its safety profile",
		Long: "Resolve looks a compound up by name through the API server, returning\n" +
			"its PubChem identity, GHS pictograms and hazard statements, acid/base\n" +
			"classification, and physical state at 25 \u00b0C.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			dto, err := cliCtx.Client.Compounds().Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, &resolveOutput{dto})
		},
	}
}

type resolveOutput struct {
	*ctypes.CompoundDTO
}

func (o *resolveOutput) String() string {
	var sb strings.Builder

	sb.WriteString(o.Name)
	if o.CID != "" {
		fmt.Fprintf(&sb, " (CID %s)", o.CID)
	}
	sb.WriteString("\n")

	if o.CanonicalName != "" && o.CanonicalName != o.Name {
		fmt.Fprintf(&sb, "  canonical:  %s\n", o.CanonicalName)
	}
	if o.IUPACName != "" {
		fmt.Fprintf(&sb, "  IUPAC name: %s\n", o.IUPACName)
	}
	if o.SMILES != "" {
		fmt.Fprintf(&sb, "  SMILES:     %s\n", o.SMILES)
	}
	fmt.Fprintf(&sb, "  state:      %s\n", o.State)
	if o.MeltingC != nil {
		fmt.Fprintf(&sb, "  melting:    %.1f C\n", *o.MeltingC)
	}
	if o.BoilingC != nil {
		fmt.Fprintf(&sb, "  boiling:    %.1f C\n", *o.BoilingC)
	}
	if len(o.Pictograms) > 0 {
		fmt.Fprintf(&sb, "  pictograms: %s\n", strings.Join(pictogramLabels(o.Pictograms), ", "))
	}
	if len(o.AcidBase) > 0 {
		fmt.Fprintf(&sb, "  acid/base:  %s\n", strings.Join(acidBaseLabels(o.AcidBase), ", "))
	}
	if len(o.HazardStatements) > 0 {
		fmt.Fprintf(&sb, "  statements: %s\n", strings.Join(o.HazardStatements, "; "))
	}

	return strings.TrimRight(sb.String(), "\n")
}

func (o *resolveOutput) TableHeaders() []string {
	return []string{"Name", "CID", "State", "Acid/Base", "Pictograms"}
}

func (o *resolveOutput) TableRows() [][]string {
	return [][]string{{
		o.Name,
		o.CID,
		string(o.State),
		strings.Join(acidBaseLabels(o.AcidBase), ","),
		truncate(strings.Join(pictogramLabels(o.Pictograms), ","), 40),
	}}
}

// ─────────────────────────────────────────────────────────────────────────────
// classify
// ─────────────────────────────────────────────────────────────────────────────

// NewClassifyCommand creates the classify command.
func NewClassifyCommand() *cobra.Command {
	var (
		formalName string
		structure  string
		statements []string
	)

	cmd := &cobra.Command{
		Use:   "classify <name>",
		Short: "Classify a compound as acid, base, or neither",
		Long: "Classify runs the acid/base ruleset over the supplied compound data\n" +
			"without a PubChem lookup: name matching, SMILES structure patterns,\n" +
			"and GHS hazard statement heuristics.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			verdict, err := cliCtx.Client.Compounds().Classify(cmd.Context(), &client.ClassifyRequest{
				Name:       args[0],
				FormalName: formalName,
				Structure:  structure,
				Statements: statements,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, &classifyOutput{verdict})
		},
	}

	cmd.Flags().StringVar(&formalName, "formal-name", "", "IUPAC or systematic name to match against")
	cmd.Flags().StringVar(&structure, "structure", "", "SMILES structure to match against")
	cmd.Flags().StringArrayVar(&statements, "statement", nil, "GHS hazard statement code or phrase (repeatable)")

	return cmd
}

type classifyOutput struct {
	*client.Classification
}

func (o *classifyOutput) String() string {
	verdict := "neither acid nor base"
	switch {
	case o.Acid && o.Base:
		verdict = "amphoteric (acid and base)"
	case o.Acid:
		verdict = "acid"
	case o.Base:
		verdict = "base"
	}

	if len(o.Tags) == 0 {
		return fmt.Sprintf("%s: %s", o.Name, verdict)
	}
	return fmt.Sprintf("%s: %s (tags: %s)", o.Name, verdict, strings.Join(o.Tags, ", "))
}

func (o *classifyOutput) TableHeaders() []string {
	return []string{"Name", "Acid", "Base", "Tags"}
}

func (o *classifyOutput) TableRows() [][]string {
	return [][]string{{
		o.Name,
		strconv.FormatBool(o.Acid),
		strconv.FormatBool(o.Base),
		strings.Join(o.Tags, ","),
	}}
}

// ─────────────────────────────────────────────────────────────────────────────
// search
// ─────────────────────────────────────────────────────────────────────────────

// NewSearchCommand creates the search command.
func NewSearchCommand() *cobra.Command {
	var (
		page     int
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "search <statement>",
		Short: "Find compounds by hazard statement text",
		Long: "Search matches a free-text hazard phrase against the indexed GHS\n" +
			"statements of every known compound and returns the hits by relevance.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			result, err := cliCtx.Client.Compounds().Search(cmd.Context(), args[0], page, pageSize)
			if err != nil {
				return err
			}
			return PrintResult(cmd, &searchOutput{result})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "result page")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "results per page")

	return cmd
}

type searchOutput struct {
	*client.StatementSearchResult
}

func (o *searchOutput) String() string {
	if len(o.Hits) == 0 {
		return fmt.Sprintf("no compounds match %q", o.Query)
	}

	var sb strings.Builder
	for i, hit := range o.Hits {
		fmt.Fprintf(&sb, "%2d. [%.2f] %s", i+1, hit.Score, hit.Compound.Name)
		if hit.Compound.CID != "" {
			fmt.Fprintf(&sb, " (CID %s)", hit.Compound.CID)
		}
		if hit.Compound.StorageGroup != "" {
			fmt.Fprintf(&sb, " in %s", hit.Compound.StorageGroup)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\n%d total, page %d (page size %d)", o.Total, o.Page, o.PageSize)
	return sb.String()
}

func (o *searchOutput) TableHeaders() []string {
	return []string{"#", "Score", "Name", "CID", "State", "Group"}
}

func (o *searchOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(o.Hits))
	for i, hit := range o.Hits {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("%.2f", hit.Score),
			truncate(hit.Compound.Name, 40),
			hit.Compound.CID,
			hit.Compound.State,
			hit.Compound.StorageGroup,
		})
	}
	return rows
}

// ─────────────────────────────────────────────────────────────────────────────
// similar
// ─────────────────────────────────────────────────────────────────────────────

// NewSimilarCommand creates the similar command.
func NewSimilarCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "similar <cid>",
		Short: "Find structurally similar compounds",
		Long: "Similar searches the fingerprint index for the compounds closest to\n" +
			"the one identified by the given PubChem CID.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			result, err := cliCtx.Client.Compounds().Similar(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return PrintResult(cmd, &similarOutput{result})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum neighbours returned")

	return cmd
}

type similarOutput struct {
	*client.SimilarResult
}

func (o *similarOutput) String() string {
	if len(o.Hits) == 0 {
		return fmt.Sprintf("no neighbours found for CID %s", o.CID)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "compounds similar to CID %s:\n", o.CID)
	for i, hit := range o.Hits {
		fmt.Fprintf(&sb, "%2d. %5.1f%% %s (CID %s)", i+1, hit.Score*100, hit.Name, hit.CID)
		if hit.StorageGroup != "" {
			fmt.Fprintf(&sb, " in %s", hit.StorageGroup)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (o *similarOutput) TableHeaders() []string {
	return []string{"#", "Score", "CID", "Name", "Group"}
}

func (o *similarOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(o.Hits))
	for i, hit := range o.Hits {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("%.1f%%", hit.Score*100),
			hit.CID,
			truncate(hit.Name, 40),
			hit.StorageGroup,
		})
	}
	return rows
}

// ─────────────────────────────────────────────────────────────────────────────
// audit
// ─────────────────────────────────────────────────────────────────────────────

// NewAuditCommand creates the audit command.
func NewAuditCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "audit <name>",
		Short: "Show a compound's shelf neighbours and group refusals",
		Long: "Audit reports where a compound ended up after the last sort: the\n" +
			"compounds sharing its shelf, and the storage groups whose\n" +
			"compatibility rules refused it on the way there.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			audit, err := cliCtx.Client.Compounds().Audit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, &auditOutput{audit})
		},
	}
}

type auditOutput struct {
	*client.StorageAudit
}

func (o *auditOutput) String() string {
	var sb strings.Builder

	if len(o.CoStored) == 0 {
		fmt.Fprintf(&sb, "%s shares its shelf with no other compound\n", o.Name)
	} else {
		fmt.Fprintf(&sb, "%s shares its shelf with: %s\n", o.Name, strings.Join(o.CoStored, ", "))
	}
	if len(o.Rejections) > 0 {
		sb.WriteString("refused by:\n")
		for _, r := range o.Rejections {
			fmt.Fprintf(&sb, "  %s (%s)\n", r.Group, r.Rule)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// ─────────────────────────────────────────────────────────────────────────────
// label helpers
// ─────────────────────────────────────────────────────────────────────────────

func pictogramLabels(ps []ctypes.Pictogram) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, string(p))
	}
	return out
}

func acidBaseLabels(ts ctypes.TagSet) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, string(t))
	}
	return out
}

//Personal.AI order the ending
