package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"rebalancer/api"
	"rebalancer/cmd"
	"rebalancer/internal/domain"
	"rebalancer/internal/logger"
	"rebalancer/internal/repository"
	"rebalancer/internal/service"
	l2_service "rebalancer/internal/service/l2"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type dependencyLoader func() (*api.ApiHandler, error)

func newRootCommand(loadDependencies dependencyLoader, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "rebalancer",
		Short:         "Compute portfolio rebalance targets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(
		newComputeCommand(out),
		newImportCommand(loadDependencies, out),
		newSyncBrokerCommand(loadDependencies, out),
	)
	return root
}

func newComputeCommand(out io.Writer) *cobra.Command {
	var (
		strategyName string
		file         string
		asJson       bool
	)
	c := &cobra.Command{
		Use:   "compute",
		Short: "Compute targets for positions in a csv file",
		RunE: func(c *cobra.Command, args []string) error {
			strategy, err := domain.ParseStrategy(strategyName)
			if err != nil {
				return err
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", file, err)
			}
			defer f.Close()

			positions, err := repository.NewPositionCsvRepository().Read(f)
			if err != nil {
				return err
			}

			summary, err := l2_service.SummarizeRebalance(l2_service.SummarizeRebalanceInput{
				Strategy:  strategy,
				Positions: positions,
			})
			if err != nil {
				return err
			}

			if asJson {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "    ")
				return enc.Encode(summary)
			}
			return writeSummaryTable(out, summary)
		},
	}
	c.Flags().StringVarP(&strategyName, "strategy", "s", domain.DefaultStrategy.String(), "Buy, BuySell or Sell")
	c.Flags().StringVarP(&file, "file", "f", "", "csv with name,current_value,target_percent columns")
	c.Flags().BoolVar(&asJson, "json", false, "print the full summary as json")
	_ = c.MarkFlagRequired("file")
	return c
}

func writeSummaryTable(out io.Writer, summary *l2_service.RebalanceSummary) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Name\tCurrent\tAllocation %\tTarget %\tTarget\tDiff\t")
	for _, p := range summary.Positions {
		fmt.Fprintf(
			w,
			"%s\t%s\t%s\t%s\t%s\t%s\t\n",
			p.Name,
			l2_service.RoundValue(p.CurrentValue),
			l2_service.RoundPercent(p.CurrentAllocation),
			l2_service.RoundPercent(p.TargetFraction),
			l2_service.RoundValue(p.TargetValue),
			l2_service.RoundValue(p.Diff),
		)
	}
	fmt.Fprintf(
		w,
		"Total\t%s\t\t\t%s\t%s\t\n",
		l2_service.RoundValue(summary.PositionTotal),
		l2_service.RoundValue(summary.TargetTotal),
		l2_service.RoundValue(summary.TotalDiff),
	)
	if err := w.Flush(); err != nil {
		return err
	}

	if !summary.ValidTargetAllocation {
		fmt.Fprintln(out, "target percentages must be non-negative and add up to 100")
	}
	if !summary.AllPositionsAboveZero {
		fmt.Fprintln(out, "every position needs a current value above zero")
	}
	return nil
}

func parsePortfolioFlag(value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid portfolio id %q: %w", value, err)
	}
	return id, nil
}

func newImportCommand(loadDependencies dependencyLoader, out io.Writer) *cobra.Command {
	var (
		portfolio string
		file      string
	)
	c := &cobra.Command{
		Use:   "import",
		Short: "Replace a stored portfolio's positions with a csv file",
		RunE: func(c *cobra.Command, args []string) error {
			portfolioID, err := parsePortfolioFlag(portfolio)
			if err != nil {
				return err
			}
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", file, err)
			}
			defer f.Close()

			handler, err := loadDependencies()
			if err != nil {
				return err
			}
			defer cmd.CloseDependencies(handler)

			ctx := logger.WithContext(c.Context(), handler.Logger)
			p, err := handler.PortfolioService.ImportPositions(ctx, portfolioID, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "imported %d positions into %s\n", len(p.Positions), p.Name)
			return nil
		},
	}
	c.Flags().StringVarP(&portfolio, "portfolio", "p", "", "portfolio id")
	c.Flags().StringVarP(&file, "file", "f", "", "csv with name,current_value,target_percent columns")
	_ = c.MarkFlagRequired("portfolio")
	_ = c.MarkFlagRequired("file")
	return c
}

func newSyncBrokerCommand(loadDependencies dependencyLoader, out io.Writer) *cobra.Command {
	var (
		portfolio   string
		includeCash bool
	)
	c := &cobra.Command{
		Use:   "sync-broker",
		Short: "Copy broker market values onto a stored portfolio",
		RunE: func(c *cobra.Command, args []string) error {
			portfolioID, err := parsePortfolioFlag(portfolio)
			if err != nil {
				return err
			}

			handler, err := loadDependencies()
			if err != nil {
				return err
			}
			defer cmd.CloseDependencies(handler)

			ctx := logger.WithContext(c.Context(), handler.Logger)
			p, err := handler.PortfolioService.SyncFromBroker(ctx, portfolioID, service.SyncFromBrokerInput{
				IncludeCash: includeCash,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "synced %d positions in %s\n", len(p.Positions), p.Name)
			return nil
		},
	}
	c.Flags().StringVarP(&portfolio, "portfolio", "p", "", "portfolio id")
	c.Flags().BoolVar(&includeCash, "include-cash", false, "add account cash as a position")
	_ = c.MarkFlagRequired("portfolio")
	return c
}

func main() {
	root := newRootCommand(cmd.InitializeDependencies, os.Stdout)
	if err := root.ExecuteContext(context.Background()); err != nil {
		logger.New().Errorw("command failed", "error", err.Error())
		os.Exit(1)
	}
}
