package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/Flarenzy/subnet-calculator/internal/domain"
	"github.com/Flarenzy/subnet-calculator/internal/ipv4"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var allColumns = []string{"subnet", "netmask", "range", "usable", "hosts"}

var columnHeaders = map[string]string{
	"subnet":  "Subnet",
	"netmask": "Netmask",
	"range":   "Range of addresses",
	"usable":  "Usable IPs",
	"hosts":   "Hosts",
}

type stepKind string

const (
	stepDivide stepKind = "divide"
	stepJoin   stepKind = "join"
)

type step struct {
	kind stepKind
	cidr string
}

// stepFlag feeds --divide and --join into one list so steps run in the order
// they were given.
type stepFlag struct {
	kind  stepKind
	steps *[]step
}

func (f stepFlag) String() string {
	var cidrs []string
	for _, s := range *f.steps {
		if s.kind == f.kind {
			cidrs = append(cidrs, s.cidr)
		}
	}
	return "[" + strings.Join(cidrs, ",") + "]"
}

func (f stepFlag) Set(v string) error {
	*f.steps = append(*f.steps, step{kind: f.kind, cidr: v})
	return nil
}

func (f stepFlag) Type() string {
	return "cidr"
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "subnetcalc",
		Short:        "Plan IPv4 subnet partitions from the terminal",
		SilenceUsage: true,
	}
	root.AddCommand(newPlanCmd())
	return root
}

func newPlanCmd() *cobra.Command {
	var steps []step
	var columns []string

	cmd := &cobra.Command{
		Use:   "plan <network/prefix>",
		Short: "Divide and join subnets of a network and print the result",
		Example: `  subnetcalc plan 10.0.0.0/16 --divide 10.0.0.0/16 --divide 10.0.0.0/17
  subnetcalc plan 192.168.0.0/24 --divide 192.168.0.0/24 --join 192.168.0.128/25 --columns subnet,hosts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := parseColumns(columns)
			if err != nil {
				return err
			}
			tree, err := runPlan(args[0], steps, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable(tree.Subnets(), cols))
			return err
		},
	}

	cmd.Flags().Var(stepFlag{kind: stepDivide, steps: &steps}, "divide", "subnet to divide (repeatable)")
	cmd.Flags().Var(stepFlag{kind: stepJoin, steps: &steps}, "join", "subnet to join with its sibling (repeatable)")
	cmd.Flags().StringSliceVar(&columns, "columns", allColumns, "columns to show: "+strings.Join(allColumns, ","))
	return cmd
}

// runPlan builds a tree from network and applies steps in order. Rejected
// steps are reported on warn and skipped.
func runPlan(network string, steps []step, warn io.Writer) (*domain.Tree, error) {
	addr, prefix, err := ipv4.ParseCIDR(network)
	if err != nil {
		return nil, err
	}
	tree := domain.NewTree()
	if _, err := tree.Initialize(addr, prefix); err != nil {
		return nil, err
	}

	for _, s := range steps {
		addr, prefix, err := ipv4.ParseCIDR(s.cidr)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", s.kind, s.cidr, err)
		}
		rec, err := tree.FindByCIDR(addr, prefix)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", s.kind, s.cidr, err)
		}

		var outcome domain.Outcome
		switch s.kind {
		case stepDivide:
			outcome, err = tree.Divide(rec.ID)
		case stepJoin:
			outcome, err = tree.Join(rec.ID)
		}
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", s.kind, s.cidr, err)
		}
		if !outcome.OK() {
			fmt.Fprintf(warn, "%s %s rejected: %s\n", s.kind, s.cidr, outcome.Reason)
		}
	}
	return tree, nil
}

func parseColumns(names []string) ([]string, error) {
	var out []string
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if !slices.Contains(allColumns, name) {
			return nil, fmt.Errorf("unknown column %q (want one of %s)", name, strings.Join(allColumns, ","))
		}
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one column is required")
	}
	return out, nil
}

func cell(rec domain.SubnetRecord, column string) string {
	switch column {
	case "subnet":
		return rec.CIDR()
	case "netmask":
		return rec.Netmask.String()
	case "range":
		return rec.RangeString()
	case "usable":
		return rec.UsableString()
	case "hosts":
		return strconv.FormatInt(rec.Hosts, 10)
	}
	return ""
}

func renderTable(subnets []domain.SubnetRecord, columns []string) string {
	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = columnHeaders[c]
	}

	rows := make([][]string, 0, len(subnets))
	for _, rec := range subnets {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = cell(rec, c)
		}
		rows = append(rows, row)
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}
