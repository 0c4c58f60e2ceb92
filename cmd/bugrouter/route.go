package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/bugrouter/internal/availability"
	"github.com/rohankatakam/bugrouter/internal/github"
	"github.com/rohankatakam/bugrouter/internal/models"
	"github.com/rohankatakam/bugrouter/internal/ownership"
	"github.com/rohankatakam/bugrouter/internal/routing"
)

var createIssue bool

var routeCmd = &cobra.Command{
	Use:   "route <bug-report.yaml>",
	Short: "Route a bug report to its most likely owner",
	Long: `Route reads a bug report from a YAML file, analyzes the target
repository's recent change history, and prints a ranked routing
decision. With --create-issue the decision is also posted as a GitHub
issue with the assignee and rationale attached.`,
	Args: cobra.ExactArgs(1),
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().BoolVar(&createIssue, "create-issue", false, "create a GitHub issue carrying the decision")
	rootCmd.AddCommand(routeCmd)
}

func runRoute(cmd *cobra.Command, args []string) error {
	report, err := loadBugReport(args[0])
	if err != nil {
		return err
	}
	if err := routing.ValidateReport(report); err != nil {
		return err
	}

	client := github.NewClient(cfg, logger)
	analyzer := ownership.NewAnalyzer(client, cfg.Analysis, logger)
	engine := routing.NewEngine(availability.AlwaysAvailable{}, logger)
	router := routing.NewRouter(analyzer, engine, logger)

	decision, err := router.Route(cmd.Context(), report)
	if err != nil {
		return err
	}

	printDecision(report, decision)

	if createIssue {
		result, err := client.CreateIssue(cmd.Context(), report.Repository, report, decision)
		if err != nil {
			return fmt.Errorf("create issue: %w", err)
		}
		fmt.Printf("\nCreated issue #%d: %s\n", result.Number, result.URL)
	}

	return nil
}

func loadBugReport(path string) (models.BugReport, error) {
	var report models.BugReport

	data, err := os.ReadFile(path)
	if err != nil {
		return report, fmt.Errorf("read bug report: %w", err)
	}
	if err := yaml.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("parse bug report: %w", err)
	}
	return report, nil
}

func printDecision(report models.BugReport, decision *models.RoutingDecision) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	bold.Printf("Routing decision for %q\n\n", report.Title)

	if decision.EscalationNeeded {
		red.Println("⚠ No suitable assignee found — escalation needed")
		fmt.Printf("  Reason: %s\n", decision.RoutingReason)
	} else {
		assignee := decision.AssignedTo
		green.Printf("✓ Assigned to %s\n", assignee.Developer)
		fmt.Printf("  Confidence:  %.0f%%\n", decision.ConfidenceScore*100)
		fmt.Printf("  Reason:      %s\n", decision.RoutingReason)
		fmt.Printf("  Ownership:   %.2f  Expertise: %.2f\n", assignee.OwnershipScore, assignee.ExpertiseScore)
		if len(assignee.FilesOwned) > 0 {
			fmt.Printf("  Owned files: %s\n", strings.Join(assignee.FilesOwned, ", "))
		}
	}

	if len(decision.BackupAssignees) > 0 {
		backups := make([]string, 0, len(decision.BackupAssignees))
		for _, b := range decision.BackupAssignees {
			backups = append(backups, b.Developer)
		}
		fmt.Printf("  Backups:     %s\n", strings.Join(backups, ", "))
	}

	switch decision.EstimatedComplexity {
	case models.ComplexityHigh, models.ComplexityCritical:
		yellow.Printf("  Complexity:  %s\n", decision.EstimatedComplexity)
	default:
		fmt.Printf("  Complexity:  %s\n", decision.EstimatedComplexity)
	}

	if len(decision.SuggestedLabels) > 0 {
		fmt.Printf("  Labels:      %s\n", strings.Join(decision.SuggestedLabels, ", "))
	}
}
