package ownership

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/bugrouter/internal/config"
	"github.com/rohankatakam/bugrouter/internal/models"
)

const (
	// maxSecondaryOwners caps the secondary owner list per file
	maxSecondaryOwners = 2
	// maxDomainExperts caps the ranked expert list per domain key
	maxDomainExperts = 3
	// recencyWorkers bounds concurrent last-modified lookups
	recencyWorkers = 5
)

// Analyzer derives per-file ownership and per-domain expertise from a
// repository's change history over a lookback window.
type Analyzer struct {
	source       EventSource
	logger       *logrus.Logger
	lookbackDays int
	maxPages     int

	// now is swappable for tests
	now func() time.Time
}

// NewAnalyzer creates an analyzer backed by the given event source.
func NewAnalyzer(source EventSource, cfg config.AnalysisConfig, logger *logrus.Logger) *Analyzer {
	if logger == nil {
		logger = logrus.New()
	}
	lookback := cfg.LookbackDays
	if lookback <= 0 {
		lookback = 90
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}
	return &Analyzer{
		source:       source,
		logger:       logger,
		lookbackDays: lookback,
		maxPages:     maxPages,
		now:          time.Now,
	}
}

// AnalyzeRepository builds an OwnershipModel from change events within
// the lookback window. Fetch failures degrade gracefully: pages
// collected before the failure are used and pagination stops. An empty
// history produces a model with empty mappings, not an error.
func (a *Analyzer) AnalyzeRepository(ctx context.Context, repoID string) (*models.OwnershipModel, error) {
	since := a.now().AddDate(0, 0, -a.lookbackDays)
	events := a.collectEvents(ctx, repoID, since)

	// file path -> author -> cumulative lines changed
	fileOwnership := make(map[string]map[string]int)
	developerActivity := make(map[string]int)
	complexity := make(map[string]*fileComplexity)

	for _, event := range events {
		author := strings.ToLower(event.AuthorEmail)
		if author == "" {
			continue
		}
		for _, fc := range event.Files {
			if fileOwnership[fc.Path] == nil {
				fileOwnership[fc.Path] = make(map[string]int)
			}
			fileOwnership[fc.Path][author] += fc.LinesChanged
			developerActivity[author] += fc.LinesChanged

			c := complexity[fc.Path]
			if c == nil {
				c = &fileComplexity{contributors: make(map[string]struct{})}
				complexity[fc.Path] = c
			}
			c.totalChanges += fc.LinesChanged
			c.contributors[author] = struct{}{}
		}
	}

	ownershipMap := make(map[string]*models.FileOwnership, len(fileOwnership))
	for filePath, contributors := range fileOwnership {
		ranked := rankContributors(contributors)

		record := &models.FileOwnership{
			FilePath:        filePath,
			SecondaryOwners: []string{},
			ComplexityScore: complexityScore(complexity[filePath]),
		}
		for _, changes := range contributors {
			record.ModificationCount += changes
		}
		if len(ranked) > 0 {
			record.PrimaryOwner = ranked[0].Developer
			for _, c := range ranked[1:min(len(ranked), 1+maxSecondaryOwners)] {
				record.SecondaryOwners = append(record.SecondaryOwners, c.Developer)
			}
		}
		ownershipMap[filePath] = record
	}

	a.resolveLastModified(ctx, repoID, ownershipMap)

	return &models.OwnershipModel{
		FileOwnership:     ownershipMap,
		DeveloperActivity: developerActivity,
		RepositoryExperts: identifyExperts(fileOwnership),
	}, nil
}

// collectEvents pulls pages until an empty page, an error, or the page
// cap. Errors are absorbed: whatever was collected is returned.
func (a *Analyzer) collectEvents(ctx context.Context, repoID string, since time.Time) []models.ChangeEvent {
	var all []models.ChangeEvent
	for page := 1; page <= a.maxPages; page++ {
		events, err := a.source.FetchEvents(ctx, repoID, since, page)
		if err != nil {
			a.logger.WithError(err).WithFields(logrus.Fields{
				"repo": repoID,
				"page": page,
			}).Warn("Event fetch failed, using pages collected so far")
			break
		}
		if len(events) == 0 {
			break
		}
		all = append(all, events...)
	}
	return all
}

// resolveLastModified fills LastModified per record via single-result
// source queries. Lookups fail soft: an error or zero result defaults
// to the current time so uncertain recency never suppresses a file.
// Lookups for distinct files are independent and run concurrently;
// page fetches above stay sequential by contract.
func (a *Analyzer) resolveLastModified(ctx context.Context, repoID string, records map[string]*models.FileOwnership) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(recencyWorkers)

	for _, record := range records {
		record := record
		g.Go(func() error {
			ts, err := a.source.LastTouched(ctx, repoID, record.FilePath)
			if err != nil || ts.IsZero() {
				if err != nil {
					a.logger.WithError(err).WithField("file", record.FilePath).
						Debug("Last-modified lookup failed, defaulting to now")
				}
				ts = a.now()
			}
			record.LastModified = ts
			return nil
		})
	}
	_ = g.Wait()
}

type fileComplexity struct {
	totalChanges int
	contributors map[string]struct{}
}

// complexityScore normalizes change volume and contributor count into
// [0,1]. Both sub-terms saturate so the score is bounded no matter how
// large the inputs grow.
func complexityScore(c *fileComplexity) float64 {
	if c == nil {
		return 0
	}
	baseScore := minFloat(float64(c.totalChanges)/100.0, 1.0)
	contributorFactor := minFloat(float64(len(c.contributors))/5.0, 1.0)
	return baseScore*0.7 + contributorFactor*0.3
}

// rankContributors sorts a contributor map by lines changed descending,
// ties broken by identity ascending for determinism.
func rankContributors(contributors map[string]int) []models.DomainExpert {
	ranked := make([]models.DomainExpert, 0, len(contributors))
	for dev, changes := range contributors {
		ranked = append(ranked, models.DomainExpert{Developer: dev, Changes: changes})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Changes != ranked[j].Changes {
			return ranked[i].Changes > ranked[j].Changes
		}
		return ranked[i].Developer < ranked[j].Developer
	})
	return ranked
}

// identifyExperts aggregates contributor changes under two domain keys
// per file: the parent directory and the extension wildcard. The same
// contributor earns credit under both keys for the same file since the
// two dimensions answer different questions.
func identifyExperts(fileOwnership map[string]map[string]int) map[string][]models.DomainExpert {
	domains := make(map[string]map[string]int)

	accumulate := func(key, dev string, changes int) {
		if domains[key] == nil {
			domains[key] = make(map[string]int)
		}
		domains[key][dev] += changes
	}

	for filePath, contributors := range fileOwnership {
		dirKey := parentDir(filePath)
		extKey := extensionKey(filePath)
		for dev, changes := range contributors {
			accumulate(dirKey, dev, changes)
			accumulate(extKey, dev, changes)
		}
	}

	experts := make(map[string][]models.DomainExpert, len(domains))
	for domain, contributors := range domains {
		ranked := rankContributors(contributors)
		if len(ranked) > maxDomainExperts {
			ranked = ranked[:maxDomainExperts]
		}
		experts[domain] = ranked
	}
	return experts
}

// parentDir returns everything before the last slash, or "" for files
// at the repository root.
func parentDir(filePath string) string {
	if idx := strings.LastIndex(filePath, "/"); idx >= 0 {
		return filePath[:idx]
	}
	return ""
}

// extensionKey maps a file to its wildcard extension domain key. The
// extension comes from the file name, not the full path, so dotted
// directory names don't leak into the key.
func extensionKey(filePath string) string {
	ext := path.Ext(path.Base(filePath))
	if ext == "" || ext == "." {
		return "*.unknown"
	}
	return "*." + ext[1:]
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
