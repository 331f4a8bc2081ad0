// Package scorer computes weighted match scores between an RFQ feature
// vector and candidate supplier profiles. Scoring is pure: same features and
// candidate always produce the same score.
package scorer

import (
	"context"
	"math"
	"sort"
	"strings"

	"rfq-pipeline/internal/common/config"
	"rfq-pipeline/internal/common/logger"
	"rfq-pipeline/internal/models"
	"rfq-pipeline/internal/pipeline/supplierindex"
)

// Factor names, in the order they appear in every MatchResult.
const (
	FactorTagOverlap     = "tag_overlap"
	FactorRating         = "rating"
	FactorResponsiveness = "responsiveness"
	FactorLocation       = "location"
	FactorVerification   = "verification"
)

// RankedMatch pairs a scored result with the profile it was scored against,
// so downstream notification never refetches the supplier.
type RankedMatch struct {
	models.MatchResult
	Supplier models.SupplierProfile
}

type Scorer struct {
	cfg    config.MatchingConfig
	logger logger.Logger
}

func New(cfg config.MatchingConfig, log logger.Logger) *Scorer {
	return &Scorer{cfg: cfg, logger: log}
}

// DefaultConfig returns the production weight set.
func DefaultConfig() config.MatchingConfig {
	return config.MatchingConfig{
		TagWeight:            0.35,
		RatingWeight:         0.25,
		ResponsivenessWeight: 0.20,
		LocationWeight:       0.10,
		VerificationWeight:   0.10,
		MinScore:             20,
	}
}

// Score computes the 0-100 match score for one candidate. ok is false when
// the score falls below the configured threshold.
func (s *Scorer) Score(rfqID string, features models.FeatureVector, candidate models.SupplierProfile) (models.MatchResult, bool) {
	factors := []models.MatchFactor{
		{Name: FactorTagOverlap, Weight: s.cfg.TagWeight, Value: tagOverlap(features.Tags, candidate.SpecTags)},
		{Name: FactorRating, Weight: s.cfg.RatingWeight, Value: ratingValue(candidate.Rating)},
		{Name: FactorResponsiveness, Weight: s.cfg.ResponsivenessWeight, Value: clamp01(candidate.ResponseRate)},
		{Name: FactorLocation, Weight: s.cfg.LocationWeight, Value: locationValue(features.Location, candidate.Location)},
		{Name: FactorVerification, Weight: s.cfg.VerificationWeight, Value: verificationValue(candidate.Verified)},
	}

	var sum float64
	for _, f := range factors {
		sum += f.Weight * f.Value
	}
	score := math.Min(100, math.Max(0, 100*sum))

	result := models.MatchResult{
		RFQID:      rfqID,
		SupplierID: candidate.ID,
		Score:      score,
		Factors:    factors,
	}
	return result, score >= s.cfg.MinScore
}

// ScoreCandidates drains the iterator, scores every candidate and returns
// matches above threshold, ranked. Malformed candidates are skipped with a
// warning rather than failing the run.
func (s *Scorer) ScoreCandidates(ctx context.Context, rfqID string, features models.FeatureVector, it supplierindex.Iterator) ([]RankedMatch, error) {
	var matches []RankedMatch

	for {
		candidate, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if candidate.ID == "" {
			s.logger.Warn("skipping candidate without id", map[string]interface{}{
				"rfqId": rfqID,
			})
			continue
		}

		result, above := s.Score(rfqID, features, candidate)
		if !above {
			continue
		}
		matches = append(matches, RankedMatch{MatchResult: result, Supplier: candidate})
	}

	sortMatches(matches)
	for i := range matches {
		matches[i].Rank = i + 1
	}
	return matches, nil
}

// sortMatches orders by score desc, then response rate desc, then supplier
// id asc so ranking is deterministic across runs.
func sortMatches(matches []RankedMatch) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Supplier.ResponseRate != matches[j].Supplier.ResponseRate {
			return matches[i].Supplier.ResponseRate > matches[j].Supplier.ResponseRate
		}
		return matches[i].SupplierID < matches[j].SupplierID
	})
}

// tagOverlap is the Jaccard similarity of the two tag sets. Either side
// empty means no evidence of overlap, scored zero.
func tagOverlap(rfqTags, supplierTags []string) float64 {
	if len(rfqTags) == 0 || len(supplierTags) == 0 {
		return 0
	}

	a := make(map[string]struct{}, len(rfqTags))
	for _, t := range rfqTags {
		a[strings.ToLower(t)] = struct{}{}
	}
	b := make(map[string]struct{}, len(supplierTags))
	for _, t := range supplierTags {
		b[strings.ToLower(t)] = struct{}{}
	}

	intersection := 0
	for t := range b {
		if _, ok := a[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection

	return float64(intersection) / float64(union)
}

func ratingValue(rating *float64) float64 {
	if rating == nil {
		return 0
	}
	return clamp01(*rating / 5.0)
}

func locationValue(rfq, supplier models.Location) float64 {
	if rfq.Region != "" && strings.EqualFold(rfq.Region, supplier.Region) {
		return 1.0
	}
	if rfq.Country != "" && strings.EqualFold(rfq.Country, supplier.Country) {
		return 0.5
	}
	return 0
}

func verificationValue(verified bool) float64 {
	if verified {
		return 1.0
	}
	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
