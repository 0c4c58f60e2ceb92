package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"

	"github.com/rohankatakam/bugrouter/internal/errors"
	"github.com/rohankatakam/bugrouter/internal/models"
)

// IssueResult describes an issue created by the sink.
type IssueResult struct {
	Number     int    `json:"number"`
	URL        string `json:"url"`
	AssignedTo string `json:"assigned_to,omitempty"`
}

// CreateIssue creates a GitHub issue carrying the routing decision:
// suggested labels plus auto-routed, the mapped assignee, a rationale
// block in the body, and a follow-up comment with the score breakdown.
func (c *Client) CreateIssue(ctx context.Context, repoID string, report models.BugReport, decision *models.RoutingDecision) (*IssueResult, error) {
	owner, name, err := splitRepoID(repoID)
	if err != nil {
		return nil, err
	}

	labels := append(append([]string{}, decision.SuggestedLabels...), "auto-routed")
	body := RenderIssueBody(report, decision)

	request := &github.IssueRequest{
		Title:  github.String(report.Title),
		Body:   github.String(body),
		Labels: &labels,
	}
	if decision.AssignedTo != nil {
		assignees := []string{UsernameFromEmail(decision.AssignedTo.Developer)}
		request.Assignees = &assignees
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	issue, _, err := c.client.Issues.Create(ctx, owner, name, request)
	if err != nil {
		return nil, errors.ExternalErrorf(err, "create issue in %s", repoID)
	}

	result := &IssueResult{
		Number: issue.GetNumber(),
		URL:    issue.GetHTMLURL(),
	}
	if decision.AssignedTo != nil {
		result.AssignedTo = decision.AssignedTo.Developer
	}

	if comment := RenderRoutingComment(decision); comment != "" {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return result, fmt.Errorf("rate limiter: %w", err)
		}
		_, _, err = c.client.Issues.CreateComment(ctx, owner, name, issue.GetNumber(),
			&github.IssueComment{Body: github.String(comment)})
		if err != nil {
			// The issue exists; a lost comment is not worth failing for.
			c.logger.WithError(err).WithField("issue", issue.GetNumber()).
				Warn("Failed to post routing comment")
		}
	}

	return result, nil
}

// RenderIssueBody appends the automated routing block to the bug
// description.
func RenderIssueBody(report models.BugReport, decision *models.RoutingDecision) string {
	var sb strings.Builder
	sb.WriteString(report.Description)
	sb.WriteString("\n\n---\n\n")
	sb.WriteString("## Automated Routing Information\n\n")

	if assignee := decision.AssignedTo; assignee != nil {
		sb.WriteString(fmt.Sprintf("**Assigned to:** @%s\n", UsernameFromEmail(assignee.Developer)))
		sb.WriteString(fmt.Sprintf("**Confidence:** %.0f%%\n", decision.ConfidenceScore*100))
		sb.WriteString(fmt.Sprintf("**Reason:** %s\n", decision.RoutingReason))

		if len(assignee.FilesOwned) > 0 {
			shown := assignee.FilesOwned
			if len(shown) > 3 {
				shown = shown[:3]
			}
			sb.WriteString(fmt.Sprintf("**Owned Files:** `%s`", strings.Join(shown, "`, `")))
			if remainder := len(assignee.FilesOwned) - 3; remainder > 0 {
				sb.WriteString(fmt.Sprintf(" (+%d more)", remainder))
			}
			sb.WriteString("\n")
		}
	}

	if len(decision.BackupAssignees) > 0 {
		backups := make([]string, 0, len(decision.BackupAssignees))
		for _, b := range decision.BackupAssignees {
			backups = append(backups, UsernameFromEmail(b.Developer))
		}
		sb.WriteString(fmt.Sprintf("**Backup Assignees:** @%s\n", strings.Join(backups, ", @")))
	}

	sb.WriteString(fmt.Sprintf("**Estimated Complexity:** %s\n", decision.EstimatedComplexity))
	return sb.String()
}

// RenderRoutingComment builds the score-breakdown comment. Returns ""
// when the decision escalated, since there is nothing to explain.
func RenderRoutingComment(decision *models.RoutingDecision) string {
	assignee := decision.AssignedTo
	if assignee == nil {
		return ""
	}

	areas := "General"
	if len(assignee.AreasOfExpertise) > 0 {
		areas = strings.Join(assignee.AreasOfExpertise, ", ")
	}

	return fmt.Sprintf(`**Intelligent Bug Routing**

This issue has been automatically assigned to @%s based on:

- **Ownership Score:** %.1f
- **Expertise Score:** %.1f
- **Files Owned:** %d
- **Areas of Expertise:** %s

If you're unable to handle this issue, please reassign to one of the backup assignees or escalate to the team lead.
`,
		UsernameFromEmail(assignee.Developer),
		assignee.OwnershipScore,
		assignee.ExpertiseScore,
		len(assignee.FilesOwned),
		areas,
	)
}

// UsernameFromEmail maps a developer identity to a GitHub-style
// username: local part with dots replaced by dashes. A real deployment
// would use a directory lookup instead.
func UsernameFromEmail(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	return strings.ReplaceAll(local, ".", "-")
}
