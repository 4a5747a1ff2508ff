// Package record converts domain aggregates to and from table rows shared by
// the MySQL and Postgres repositories.
package record

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
	"github.com/bryanwahyu/launchlens/internal/domain/plans"
)

// AnalysisColumns is the select list matching ScanAnalysis.
const AnalysisColumns = `id, user_id, idea_text, parent_analysis_id, viability_score, report_json,
       recommendation_score, is_validated, validated_at, validation_notes,
       project_status, status_updated_at, created_at`

// PlanColumns is the select list matching ScanPlan.
const PlanColumns = `id, analysis_id, user_id, plan_json, created_at`

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// AnalysisArgs returns insert arguments in AnalysisColumns order.
func AnalysisArgs(a *ideas.Analysis) ([]any, error) {
	report, err := json.Marshal(a.Report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	status := a.ProjectStatus
	if status == "" {
		status = ideas.StatusNone
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	statusAt := a.StatusUpdatedAt
	if statusAt.IsZero() {
		statusAt = created
	}

	var parent sql.NullString
	if a.ParentAnalysisID != nil {
		parent = sql.NullString{String: string(*a.ParentAnalysisID), Valid: true}
	}
	var recScore sql.NullFloat64
	if a.RecommendationScore != nil {
		recScore = sql.NullFloat64{Float64: *a.RecommendationScore, Valid: true}
	}

	return []any{
		string(a.ID), a.UserID, a.IdeaText, parent, a.ViabilityScore, string(report),
		recScore, a.IsValidated, NullTime(a.ValidatedAt), NullString(a.ValidationNotes),
		string(status), statusAt.UTC(), created.UTC(),
	}, nil
}

// ScanAnalysis reads one row selected with AnalysisColumns.
func ScanAnalysis(s Scanner) (*ideas.Analysis, error) {
	var (
		a        ideas.Analysis
		id       string
		parent   sql.NullString
		report   []byte
		recScore sql.NullFloat64
		valAt    sql.NullTime
		notes    sql.NullString
		status   string
	)
	if err := s.Scan(
		&id, &a.UserID, &a.IdeaText, &parent, &a.ViabilityScore, &report,
		&recScore, &a.IsValidated, &valAt, &notes,
		&status, &a.StatusUpdatedAt, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.ID = ideas.AnalysisID(id)
	if len(report) > 0 {
		if err := json.Unmarshal(report, &a.Report); err != nil {
			return nil, fmt.Errorf("decode report of %s: %w", id, err)
		}
	}
	if parent.Valid && strings.TrimSpace(parent.String) != "" {
		p := ideas.AnalysisID(parent.String)
		a.ParentAnalysisID = &p
	}
	if recScore.Valid {
		v := recScore.Float64
		a.RecommendationScore = &v
	}
	// validatedAt only exists while the analysis is validated
	if valAt.Valid && a.IsValidated {
		t := valAt.Time
		a.ValidatedAt = &t
	}
	if notes.Valid {
		n := notes.String
		a.ValidationNotes = &n
	}
	a.ProjectStatus = ideas.ProjectStatus(status)
	if !a.ProjectStatus.Valid() {
		a.ProjectStatus = ideas.StatusNone
	}
	return &a, nil
}

// PlanArgs returns insert arguments in PlanColumns order.
func PlanArgs(p *plans.ImprovementPlan) ([]any, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return []any{string(p.ID), string(p.AnalysisID), p.UserID, string(body), created.UTC()}, nil
}

// ScanPlan reads one row selected with PlanColumns.
func ScanPlan(s Scanner) (*plans.ImprovementPlan, error) {
	var (
		id, analysisID, userID string
		body                   []byte
		created                time.Time
	)
	if err := s.Scan(&id, &analysisID, &userID, &body, &created); err != nil {
		return nil, err
	}
	var p plans.ImprovementPlan
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode plan %s: %w", id, err)
	}
	p.ID = plans.PlanID(id)
	p.AnalysisID = ideas.AnalysisID(analysisID)
	p.UserID = userID
	p.CreatedAt = created
	return &p, nil
}

func NullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
