package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/ChemStor-Intelligence/pkg/client"
)

// ─────────────────────────────────────────────────────────────────────────────
// sort
// ─────────────────────────────────────────────────────────────────────────────

// NewSortCommand creates the sort command.
func NewSortCommand() *cobra.Command {
	var (
		fromFile string
		async    bool
	)

	cmd := &cobra.Command{
		Use:   "sort [name ...]",
		Short: "Sort compounds into compatible storage groups",
		Long: "Sort resolves each named compound and places the batch into storage\n" +
			"groups by hazard severity, honouring group compatibility rules.\n" +
			"Names come from the arguments, a file (--file), or both.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			names := append([]string{}, args...)
			if fromFile != "" {
				fileNames, err := readNamesFile(fromFile)
				if err != nil {
					return err
				}
				names = append(names, fileNames...)
			}
			if len(names) == 0 {
				return fmt.Errorf("no compound names given; pass them as arguments or with --file")
			}

			if async {
				receipt, err := cliCtx.Client.Sorting().SortAsync(cmd.Context(), names)
				if err != nil {
					return err
				}
				return PrintResult(cmd, &enqueueOutput{receipt})
			}

			result, err := cliCtx.Client.Sorting().Sort(cmd.Context(), names)
			if err != nil {
				return err
			}
			return PrintResult(cmd, &sortOutput{result})
		},
	}

	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "file with one compound name per line (# starts a comment)")
	cmd.Flags().BoolVar(&async, "async", false, "enqueue for the worker instead of sorting inline")

	return cmd
}

// readNamesFile reads one compound name per line, skipping blanks and
// # comments.
func readNamesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open names file: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read names file: %w", err)
	}
	return names, nil
}

type sortOutput struct {
	*client.SortResult
}

func (o *sortOutput) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "run %s %s: %d placed, %d rejections, %d overflow groups, %dms\n",
		o.RunID, colorizeStatus(o.Status), o.Placed, o.RejectionCount, o.OverflowCreated, o.DurationMs)

	for _, group := range o.Groups {
		fmt.Fprintf(&sb, "\n%s\n", group.Group)
		for _, bucket := range group.States {
			names := make([]string, 0, len(bucket.Compounds))
			for _, c := range bucket.Compounds {
				names = append(names, c.Name)
			}
			fmt.Fprintf(&sb, "  %-7s %s\n", bucket.State, strings.Join(names, ", "))
		}
	}

	if len(o.Skipped) > 0 {
		sb.WriteString("\nskipped:\n")
		for _, s := range o.Skipped {
			fmt.Fprintf(&sb, "  %s (%s)\n", s.Name, s.Reason)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

func (o *sortOutput) TableHeaders() []string {
	return []string{"Group", "State", "Compounds"}
}

func (o *sortOutput) TableRows() [][]string {
	var rows [][]string
	for _, group := range o.Groups {
		for _, bucket := range group.States {
			names := make([]string, 0, len(bucket.Compounds))
			for _, c := range bucket.Compounds {
				names = append(names, c.Name)
			}
			rows = append(rows, []string{group.Group, bucket.State, strings.Join(names, ", ")})
		}
	}
	return rows
}

type enqueueOutput struct {
	*client.EnqueueReceipt
}

func (o *enqueueOutput) String() string {
	return fmt.Sprintf("enqueued %d compounds as run %s\npoll with: chemstor runs %s",
		o.Requested, o.RunID, o.RunID)
}

// ─────────────────────────────────────────────────────────────────────────────
// runs
// ─────────────────────────────────────────────────────────────────────────────

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var (
		page     int
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "runs [run-id | latest]",
		Short: "Show sort run history or one run's detail",
		Long: "Without an argument, runs lists the run history newest first.  With a\n" +
			"run id it shows that run's placements; \"latest\" shows the most\n" +
			"recent completed run.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				history, err := cliCtx.Client.Sorting().Runs(cmd.Context(), page, pageSize)
				if err != nil {
					return err
				}
				return PrintResult(cmd, &runListOutput{history})
			}

			var detail *client.RunDetail
			if args[0] == "latest" {
				detail, err = cliCtx.Client.Sorting().LatestRun(cmd.Context())
			} else {
				detail, err = cliCtx.Client.Sorting().Run(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return PrintResult(cmd, &runDetailOutput{detail})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "history page")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "runs per page")

	return cmd
}

type runListOutput struct {
	*client.RunPage
}

func (o *runListOutput) String() string {
	if len(o.Runs) == 0 {
		return "no runs recorded"
	}

	var sb strings.Builder
	for _, run := range o.Runs {
		fmt.Fprintf(&sb, "%s  %-9s  %-7s  %d requested, %d skipped  %s\n",
			run.ID, colorizeStatus(run.Status), run.Trigger,
			len(run.RequestedNames), len(run.SkippedNames),
			run.CreatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&sb, "\n%d total, page %d (page size %d)",
		o.Pagination.Total, o.Pagination.Page, o.Pagination.PageSize)
	return sb.String()
}

func (o *runListOutput) TableHeaders() []string {
	return []string{"ID", "Status", "Trigger", "Requested", "Skipped", "Created"}
}

func (o *runListOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(o.Runs))
	for _, run := range o.Runs {
		rows = append(rows, []string{
			run.ID,
			run.Status,
			run.Trigger,
			strconv.Itoa(len(run.RequestedNames)),
			strconv.Itoa(len(run.SkippedNames)),
			run.CreatedAt.Format(time.RFC3339),
		})
	}
	return rows
}

type runDetailOutput struct {
	*client.RunDetail
}

func (o *runDetailOutput) String() string {
	if o.Run == nil {
		return "run not found"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s %s (trigger: %s)\n", o.Run.ID, colorizeStatus(o.Run.Status), o.Run.Trigger)
	fmt.Fprintf(&sb, "  requested: %d, skipped: %d, rejections: %d, overflow groups: %d\n",
		len(o.Run.RequestedNames), len(o.Run.SkippedNames), o.Run.RejectionCount, o.Run.OverflowCreated)
	if o.Run.StartedAt != nil && o.Run.FinishedAt != nil {
		fmt.Fprintf(&sb, "  duration:  %s\n", o.Run.FinishedAt.Sub(*o.Run.StartedAt).Round(time.Millisecond))
	}
	if o.Run.ErrorMessage != "" {
		fmt.Fprintf(&sb, "  error:     %s\n", o.Run.ErrorMessage)
	}

	if len(o.Run.Placements) > 0 {
		sb.WriteString("\nplacements:\n")
		for _, p := range o.Run.Placements {
			fmt.Fprintf(&sb, "  %-30s %s/%s", truncate(p.CompoundName, 30), p.Group, p.State)
			if p.Forced {
				sb.WriteString("  (forced)")
			}
			if p.Fallback {
				sb.WriteString("  (fallback)")
			}
			sb.WriteString("\n")
		}
	}
	if len(o.Run.SkippedNames) > 0 {
		fmt.Fprintf(&sb, "\nskipped: %s\n", strings.Join(o.Run.SkippedNames, ", "))
	}
	if o.ReportURL != "" {
		fmt.Fprintf(&sb, "\nreport: %s\n", o.ReportURL)
	}

	return strings.TrimRight(sb.String(), "\n")
}

func (o *runDetailOutput) TableHeaders() []string {
	return []string{"Compound", "CID", "Group", "State", "Forced", "Fallback"}
}

func (o *runDetailOutput) TableRows() [][]string {
	if o.Run == nil {
		return nil
	}
	rows := make([][]string, 0, len(o.Run.Placements))
	for _, p := range o.Run.Placements {
		rows = append(rows, []string{
			truncate(p.CompoundName, 40),
			p.CID,
			p.Group,
			p.State,
			strconv.FormatBool(p.Forced),
			strconv.FormatBool(p.Fallback),
		})
	}
	return rows
}

// ─────────────────────────────────────────────────────────────────────────────
// groups
// ─────────────────────────────────────────────────────────────────────────────

// NewGroupsCommand creates the groups command.
func NewGroupsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "groups [group]",
		Short: "List storage groups or one group's residents",
		Long: "Without an argument, groups lists every storage group with its allowed\n" +
			"states and current occupancy.  With a group name it lists the\n" +
			"compounds recorded in that group by the last sort.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				overview, err := cliCtx.Client.Sorting().Groups(cmd.Context())
				if err != nil {
					return err
				}
				return PrintResult(cmd, &groupsOutput{overview})
			}

			residents, err := cliCtx.Client.Sorting().GroupResidents(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, &residentsOutput{residents})
		},
	}
}

type groupsOutput struct {
	*client.GroupsResult
}

func (o *groupsOutput) String() string {
	if len(o.Groups) == 0 {
		return "no storage groups configured"
	}

	var sb strings.Builder
	for _, g := range o.Groups {
		fmt.Fprintf(&sb, "%s (%s)", g.Name, strings.Join(g.States, ", "))
		if total := occupancyTotal(g.Occupancy); total > 0 {
			fmt.Fprintf(&sb, "  %d stored", total)
		}
		if g.Overflow {
			sb.WriteString("  [overflow]")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (o *groupsOutput) TableHeaders() []string {
	return []string{"Name", "States", "Overflow", "Stored"}
}

func (o *groupsOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(o.Groups))
	for _, g := range o.Groups {
		rows = append(rows, []string{
			g.Name,
			strings.Join(g.States, ","),
			strconv.FormatBool(g.Overflow),
			strconv.Itoa(occupancyTotal(g.Occupancy)),
		})
	}
	return rows
}

type residentsOutput struct {
	*client.ResidentsResult
}

func (o *residentsOutput) String() string {
	if len(o.Residents) == 0 {
		return fmt.Sprintf("group %s is empty", o.Group)
	}
	return fmt.Sprintf("group %s holds: %s", o.Group, strings.Join(o.Residents, ", "))
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func colorizeStatus(status string) string {
	switch status {
	case "completed":
		return color.GreenString(status)
	case "failed":
		return color.RedString(status)
	case "running", "pending":
		return color.YellowString(status)
	default:
		return status
	}
}

func occupancyTotal(m map[string]int) int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}

//Personal.AI order the ending
