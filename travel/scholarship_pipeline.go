package travel

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/pipeline"
)

// NewScholarshipPipeline builds the three stage scholarship pipeline:
//
//	scholarship_search  request text            -> user_country, study_field, study_level, scholarship_results
//	scholarship_rank    scholarship_results     -> ranked_scholarships
//	scholarship_summary ranked_scholarships ... -> response text
//
// Stages communicate only through the session scope.
func NewScholarshipPipeline() *pipeline.Pipeline {
	return pipeline.New(ScholarshipPipeline,
		pipeline.WithContract(newScholarshipSearch(),
			nil,
			[]string{KeyUserCountry, KeyStudyField, KeyStudyLevel, KeyScholarshipResults}),
		pipeline.WithContract(newScholarshipRank(),
			[]string{KeyScholarshipResults},
			[]string{KeyRankedScholarships}),
		pipeline.WithContract(newScholarshipSummary(),
			[]string{KeyRankedScholarships, KeyUserCountry, KeyStudyField, KeyStudyLevel},
			nil),
	)
}

func newScholarshipSearch() core.Handler {
	return pipeline.NewSimple(ScholarshipSearch, func(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error) {
		text := ec.Request.Text

		country := ExtractCountry(text)
		if country == "" {
			country = core.GetString(ctx, ec.State, core.ScopeSession, KeyUserCountry)
		}
		field := ExtractField(text)
		level := ExtractLevel(text)

		for key, v := range map[string]string{KeyUserCountry: country, KeyStudyField: field, KeyStudyLevel: level} {
			if err := ec.State.Set(ctx, core.ScopeSession, key, v); err != nil {
				return core.Outcome{}, err
			}
		}

		res, err := ec.InvokeTool(ctx, ToolSearchScholarships, map[string]any{
			"country": country,
			"field":   field,
			"level":   level,
		})
		if err != nil {
			return core.Outcome{}, err
		}

		results, ok := res.([]Scholarship)
		if !ok {
			return core.Outcome{}, fmt.Errorf("unexpected %s result %T", ToolSearchScholarships, res)
		}

		if err := ec.State.Set(ctx, core.ScopeSession, KeyScholarshipResults, results); err != nil {
			return core.Outcome{}, err
		}

		return core.Outcome{Text: fmt.Sprintf("found %d scholarships", len(results))}, nil
	})
}

func newScholarshipRank() core.Handler {
	return pipeline.NewSimple(ScholarshipRank, func(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error) {
		results, err := scholarshipsFromState(ctx, ec.State, KeyScholarshipResults)
		if err != nil {
			return core.Outcome{}, err
		}

		ranked := RankScholarships(results, TopScholarships)
		if err := ec.State.Set(ctx, core.ScopeSession, KeyRankedScholarships, ranked); err != nil {
			return core.Outcome{}, err
		}

		return core.Outcome{Text: fmt.Sprintf("ranked %d of %d scholarships", len(ranked), len(results))}, nil
	})
}

func newScholarshipSummary() core.Handler {
	return pipeline.NewSimple(ScholarshipSummary, func(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error) {
		ranked, err := scholarshipsFromState(ctx, ec.State, KeyRankedScholarships)
		if err != nil {
			return core.Outcome{}, err
		}

		country := core.GetString(ctx, ec.State, core.ScopeSession, KeyUserCountry)
		field := core.GetString(ctx, ec.State, core.ScopeSession, KeyStudyField)
		level := core.GetString(ctx, ec.State, core.ScopeSession, KeyStudyLevel)

		var b strings.Builder
		fmt.Fprintf(&b, "Top scholarships for a %s in %s", level, field)
		if country != "" {
			fmt.Fprintf(&b, " (from %s)", country)
		}
		b.WriteString(":\n")
		for i, s := range ranked {
			fmt.Fprintf(&b, "%d. %s: %s, deadline %s. Requirements: %s.\n", i+1, s.Name, s.Amount, s.Deadline, s.Requirements)
		}
		draft := strings.TrimRight(b.String(), "\n")

		text, err := polish(ctx, ec, "Summarise these scholarships for the student with one tip each:\n"+draft, draft)
		if err != nil {
			return core.Outcome{}, err
		}

		names := make([]string, len(ranked))
		for i, s := range ranked {
			names[i] = s.Name
		}

		return core.Outcome{Text: text, Data: map[string]any{"scholarships": names}}, nil
	})
}

func scholarshipsFromState(ctx context.Context, store core.StateStore, key string) ([]Scholarship, error) {
	v, ok, err := store.Get(ctx, core.ScopeSession, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("session key %q not set by an earlier stage", key)
	}

	list, ok := v.([]Scholarship)
	if !ok {
		return nil, fmt.Errorf("session key %q holds %T, want []Scholarship", key, v)
	}

	return list, nil
}
