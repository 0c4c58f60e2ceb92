package routing

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/bugrouter/internal/availability"
	"github.com/rohankatakam/bugrouter/internal/models"
)

const (
	primaryOwnerWeight   = 3.0
	secondaryOwnerWeight = 1.0
	expertiseWeight      = 0.5

	// highOwnershipThreshold gates the "high code ownership" reason clause
	highOwnershipThreshold = 5.0

	// availabilityScanDepth is how many top-ranked candidates the
	// availability check considers before falling back to rank 1
	availabilityScanDepth = 3
)

// priorityMultipliers scale candidate scores by bug urgency. Unknown
// or missing priorities fall back to medium.
var priorityMultipliers = map[string]float64{
	"critical": 1.5,
	"high":     1.2,
	"medium":   1.0,
	"low":      0.8,
}

const escalationReason = "No clear owner identified. Escalating to team lead."

// Engine turns a bug report plus an ownership model into a ranked,
// confidence-scored routing decision.
type Engine struct {
	oracle availability.Oracle
	logger *logrus.Logger
}

// NewEngine creates a routing engine. A nil oracle means every
// developer is treated as available.
func NewEngine(oracle availability.Oracle, logger *logrus.Logger) *Engine {
	if oracle == nil {
		oracle = availability.AlwaysAvailable{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{oracle: oracle, logger: logger}
}

// Decide produces a complete RoutingDecision for the given bug report
// against the supplied ownership model. It never fails: degraded or
// empty inputs surface as an escalation decision, not an error.
//
// Backup assignees are always ranked positions 2-3, even when the
// availability scan promoted one of them to primary. That redundancy is
// inherited behavior kept intact pending a requirements decision.
func (e *Engine) Decide(ctx context.Context, report models.BugReport, model *models.OwnershipModel) *models.RoutingDecision {
	bugContext := ExtractContext(report)

	candidates := e.findCandidates(bugContext, model, report.AffectedFiles)
	ranked := rankCandidates(candidates, report.Priority)
	assignee := e.selectAssignee(ctx, ranked)

	decision := &models.RoutingDecision{
		ID:                  uuid.NewString(),
		AssignedTo:          assignee,
		BackupAssignees:     backupAssignees(ranked),
		ConfidenceScore:     confidenceScore(assignee),
		RoutingReason:       routingReason(assignee),
		EscalationNeeded:    assignee == nil,
		SuggestedLabels:     suggestLabels(bugContext),
		EstimatedComplexity: estimateComplexity(bugContext),
	}

	e.logger.WithFields(logrus.Fields{
		"decision_id": decision.ID,
		"candidates":  len(ranked),
		"escalated":   decision.EscalationNeeded,
		"confidence":  decision.ConfidenceScore,
	}).Info("Routing decision computed")

	return decision
}

// findCandidates scores contributors by file ownership and domain
// expertise. Contributors with zero signal in both dimensions are
// dropped; there is no everyone-is-a-candidate fallback.
func (e *Engine) findCandidates(bugContext *models.BugContext, model *models.OwnershipModel, affectedFiles []string) []*models.CandidateAssignee {
	candidates := make(map[string]*models.CandidateAssignee)

	get := func(developer string) *models.CandidateAssignee {
		c, ok := candidates[developer]
		if !ok {
			c = &models.CandidateAssignee{
				Developer:        developer,
				FilesOwned:       []string{},
				AreasOfExpertise: []string{},
			}
			candidates[developer] = c
		}
		return c
	}

	relevantFiles := dedupe(append(append([]string{}, affectedFiles...), bugContext.MentionedFiles...))
	for _, filePath := range relevantFiles {
		record, ok := model.FileOwnership[filePath]
		if !ok {
			continue
		}
		if record.PrimaryOwner != "" {
			c := get(record.PrimaryOwner)
			c.OwnershipScore += record.ComplexityScore * primaryOwnerWeight
			c.FilesOwned = append(c.FilesOwned, filePath)
		}
		for _, secondary := range record.SecondaryOwners {
			c := get(secondary)
			c.OwnershipScore += record.ComplexityScore * secondaryOwnerWeight
			c.FilesOwned = append(c.FilesOwned, filePath)
		}
	}

	for _, area := range bugContext.AffectedAreas {
		experts, ok := model.RepositoryExperts[area]
		if !ok {
			continue
		}
		for _, expert := range experts {
			c := get(expert.Developer)
			c.ExpertiseScore += float64(expert.Changes) * expertiseWeight
			c.AreasOfExpertise = append(c.AreasOfExpertise, area)
		}
	}

	result := make([]*models.CandidateAssignee, 0, len(candidates))
	for _, c := range candidates {
		if c.OwnershipScore > 0 || c.ExpertiseScore > 0 {
			result = append(result, c)
		}
	}
	return result
}

// rankCandidates applies the priority multiplier and sorts descending
// by final score. Score ties break by developer identity ascending so
// ranking is reproducible.
func rankCandidates(candidates []*models.CandidateAssignee, priority string) []*models.CandidateAssignee {
	multiplier, ok := priorityMultipliers[priority]
	if !ok {
		multiplier = priorityMultipliers["medium"]
	}

	for _, c := range candidates {
		c.FinalScore = c.TotalScore() * multiplier
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].FinalScore != candidates[j].FinalScore {
			return candidates[i].FinalScore > candidates[j].FinalScore
		}
		return candidates[i].Developer < candidates[j].Developer
	})
	return candidates
}

// selectAssignee scans the top ranked candidates for the first
// available one, falling back to the top candidate regardless of
// availability. Selection only returns nil on an empty candidate list.
func (e *Engine) selectAssignee(ctx context.Context, ranked []*models.CandidateAssignee) *models.CandidateAssignee {
	if len(ranked) == 0 {
		return nil
	}
	for _, candidate := range ranked[:min(len(ranked), availabilityScanDepth)] {
		if e.oracle.IsAvailable(ctx, candidate.Developer) {
			return candidate
		}
	}
	return ranked[0]
}

func backupAssignees(ranked []*models.CandidateAssignee) []*models.CandidateAssignee {
	if len(ranked) <= 1 {
		return []*models.CandidateAssignee{}
	}
	return ranked[1:min(len(ranked), 3)]
}

// confidenceScore maps the assignee's final score into [0,1], boosted
// when concrete file or domain matches back the assignment. Both
// boosts are independently capped at 1.0. Rounded to 2 decimals.
func confidenceScore(assignee *models.CandidateAssignee) float64 {
	if assignee == nil {
		return 0
	}

	confidence := math.Min(assignee.FinalScore/10.0, 1.0)
	if len(assignee.FilesOwned) > 0 {
		confidence = math.Min(confidence+0.2, 1.0)
	}
	if len(assignee.AreasOfExpertise) > 0 {
		confidence = math.Min(confidence+0.1, 1.0)
	}
	return math.Round(confidence*100) / 100
}

// routingReason builds the human-readable explanation from the
// deterministic clause list.
func routingReason(assignee *models.CandidateAssignee) string {
	if assignee == nil {
		return escalationReason
	}

	var reasons []string
	if len(assignee.FilesOwned) > 0 {
		reasons = append(reasons, fmt.Sprintf("Primary owner of %d affected files", len(assignee.FilesOwned)))
	}
	if len(assignee.AreasOfExpertise) > 0 {
		reasons = append(reasons, "Subject matter expert in: "+strings.Join(assignee.AreasOfExpertise, ", "))
	}
	if assignee.OwnershipScore > highOwnershipThreshold {
		reasons = append(reasons, "High code ownership score in affected areas")
	}

	if len(reasons) == 0 {
		return "Best available match based on repository activity"
	}
	return strings.Join(reasons, "; ")
}

// suggestLabels derives issue labels from the extracted context.
func suggestLabels(bugContext *models.BugContext) []string {
	labels := make([]string, 0, len(bugContext.AffectedAreas)+1)
	for _, area := range bugContext.AffectedAreas {
		labels = append(labels, "area:"+area)
	}
	if len(bugContext.ErrorTypes) > 0 {
		labels = append(labels, "bug:error")
	}
	return labels
}

// estimateComplexity buckets a raw context-derived score into the four
// complexity levels.
func estimateComplexity(bugContext *models.BugContext) string {
	score := 0.5*float64(len(bugContext.MentionedFiles)) +
		1.0*float64(len(bugContext.AffectedAreas)) +
		0.3*float64(len(bugContext.ErrorTypes))

	switch {
	case score < 1:
		return models.ComplexityLow
	case score < 3:
		return models.ComplexityMedium
	case score < 5:
		return models.ComplexityHigh
	default:
		return models.ComplexityCritical
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
