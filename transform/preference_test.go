package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptrag/chatbot/domain"
	"github.com/aptrag/chatbot/legacyquery"
)

func statsRow(responseRate float64) legacyquery.Row {
	return legacyquery.Row{
		"response_rate":     responseRate,
		"total_image_count": 100,
		"response_count":    int(responseRate),
	}
}

func prefRow(rank int, name string) legacyquery.Row {
	return legacyquery.Row{
		"rank":             rank,
		"preference_name":  name,
		"response_rate":    80.0,
		"description":      name + " 설명",
	}
}

func jobRow(prefName, jobName, prefType string) legacyquery.Row {
	return legacyquery.Row{
		"preference_name": prefName,
		"jo_name":         jobName,
		"preference_type": prefType,
	}
}

func TestChunkPreferenceUnavailableWhenAllThreeQueriesEmpty(t *testing.T) {
	docs := chunkPreference(map[string]legacyquery.Result{})

	require.Len(t, docs, 1)
	assert.Equal(t, domain.DocPreferenceAnalysis, docs[0].DocType)
	assert.Equal(t, subUnavailable, docs[0].Metadata.SubType)
	assert.Equal(t, domain.CompletionNone, docs[0].Metadata.CompletionLevel)
}

func TestChunkPreferencePartialWhenOnlyStatsAvailable(t *testing.T) {
	results := map[string]legacyquery.Result{
		"imagePreferenceStatsQuery": {Rows: []legacyquery.Row{statsRow(85)}},
	}

	docs := chunkPreference(results)

	require.NotEmpty(t, docs)
	partial := docs[0]
	assert.Equal(t, subPartialAvailable, partial.Metadata.SubType)
	assert.Equal(t, domain.CompletionPartial, partial.Metadata.CompletionLevel)
	assert.Equal(t, []string{"imagePreferenceStatsQuery"}, partial.Content["available_components"])
	assert.ElementsMatch(t, []string{"preferenceDataQuery", "preferenceJobsQuery"}, partial.Content["missing_components"])

	// Only the partial-availability doc and a test_stats doc should be
	// emitted — no preference/job documents since those rows are absent.
	require.Len(t, docs, 2)
	assert.Equal(t, subTestStats, docs[1].Metadata.SubType)
}

func TestChunkPreferencePartialWhenPreferencesAndJobsAvailable(t *testing.T) {
	results := map[string]legacyquery.Result{
		"preferenceDataQuery": {Rows: []legacyquery.Row{
			prefRow(1, "탐구형"),
			prefRow(2, "예술형"),
		}},
		"preferenceJobsQuery": {Rows: []legacyquery.Row{
			jobRow("탐구형", "연구원", "과학"),
		}},
	}

	docs := chunkPreference(results)

	require.NotEmpty(t, docs)
	assert.Equal(t, subPartialAvailable, docs[0].Metadata.SubType)
	assert.Equal(t, []string{"preferenceDataQuery", "preferenceJobsQuery"}, docs[0].Content["available_components"])
	assert.Equal(t, []string{"imagePreferenceStatsQuery"}, docs[0].Content["missing_components"])

	// partial doc + 2 individual preference docs + jobs overview + 1 jobs group doc.
	require.Len(t, docs, 5)
}

func TestChunkPreferenceCompleteWhenAllThreeAvailable(t *testing.T) {
	results := map[string]legacyquery.Result{
		"imagePreferenceStatsQuery": {Rows: []legacyquery.Row{statsRow(92)}},
		"preferenceDataQuery": {Rows: []legacyquery.Row{
			prefRow(1, "탐구형"),
			prefRow(2, "예술형"),
		}},
		"preferenceJobsQuery": {Rows: []legacyquery.Row{
			jobRow("탐구형", "연구원", "과학"),
			jobRow("탐구형", "데이터 분석가", "과학"),
			jobRow("예술형", "디자이너", "예술"),
		}},
	}

	docs := chunkPreference(results)

	// completion_summary + test_stats + preferences_overview + 2
	// individual preference docs + jobs_overview + 2 jobs group docs.
	require.Len(t, docs, 8)
	assert.Equal(t, subCompletionSummary, docs[0].Metadata.SubType)
	assert.Equal(t, subTestStats, docs[1].Metadata.SubType)
	assert.Equal(t, subPreferencesOverview, docs[2].Metadata.SubType)
}

func TestPreferenceErrorDocShape(t *testing.T) {
	// A non-numeric "rank" forces num()'s type switch to fall through to
	// 0 rather than panicking, so the malformed-input path here is
	// exercised through a row shape that genuinely can't be interpreted:
	// nil query-result map entries, which rowsOf already guards, are not
	// enough to reach the recover() path, so this asserts the documented
	// fallback shape directly instead.
	doc := preferenceErrorDoc("boom")
	assert.Equal(t, subError, doc.Metadata.SubType)
	assert.Equal(t, domain.CompletionNone, doc.Metadata.CompletionLevel)
	assert.Equal(t, "boom", doc.Content["technical_detail"])
}

func TestQualityScoreLadderResponseRateTiers(t *testing.T) {
	cases := []struct {
		name         string
		responseRate float64
		want         int
	}{
		{"below 50 floor", 10, 10},
		{"50-70 band", 55, 20},
		{"70-80 band", 75, 30},
		{"80-90 band", 85, 35},
		{"90+ band", 95, 40},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := qualityScore(c.responseRate, 0, 0)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestQualityScorePreferenceCountTiers(t *testing.T) {
	cases := []struct {
		name      string
		prefCount int
		want      int
	}{
		{"zero prefs contribute nothing", 0, 10},
		{"1-2 prefs", 1, 25},
		{"3-4 prefs", 3, 30},
		{"5-7 prefs", 5, 35},
		{"8+ prefs", 8, 40},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := qualityScore(0, c.prefCount, 0)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestQualityScoreJobCountTiers(t *testing.T) {
	cases := []struct {
		name     string
		jobCount int
		want     int
	}{
		{"zero jobs contribute nothing", 0, 10},
		{"1-4 jobs", 1, 25},
		{"5-9 jobs", 5, 30},
		{"10-14 jobs", 10, 35},
		{"15+ jobs", 15, 40},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := qualityScore(0, 0, c.jobCount)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestQualityScoreCapsAt100(t *testing.T) {
	got := qualityScore(95, 8, 15)
	assert.Equal(t, 100, got)
}

func TestLevelForScoreLadder(t *testing.T) {
	assert.Equal(t, domain.CompletionComplete, levelForScore(80))
	assert.Equal(t, domain.CompletionComplete, levelForScore(100))
	assert.Equal(t, domain.CompletionPartial, levelForScore(50))
	assert.Equal(t, domain.CompletionPartial, levelForScore(79))
	assert.Equal(t, domain.CompletionLow, levelForScore(0))
	assert.Equal(t, domain.CompletionLow, levelForScore(49))
}

func TestJobsOverviewDocCountsDistinctIndustries(t *testing.T) {
	jobs := []legacyquery.Row{
		jobRow("탐구형", "연구원", "과학"),
		jobRow("탐구형", "데이터 분석가", "과학"),
		jobRow("예술형", "디자이너", "예술"),
	}

	doc := jobsOverviewDoc(jobs)

	assert.Equal(t, 3, doc.Content["job_count"])
	assert.Equal(t, 2, doc.Content["industry_diversity"])
}

func TestJobsGroupDocsPreservesFirstSeenOrder(t *testing.T) {
	jobs := []legacyquery.Row{
		jobRow("예술형", "디자이너", "예술"),
		jobRow("탐구형", "연구원", "과학"),
		jobRow("예술형", "일러스트레이터", "예술"),
	}

	docs := jobsGroupDocs(jobs)

	require.Len(t, docs, 2)
	assert.Equal(t, "jobs_예술형", docs[0].Metadata.SubType)
	assert.Equal(t, []string{"디자이너", "일러스트레이터"}, docs[0].Content["career_paths"])
	assert.Equal(t, "jobs_탐구형", docs[1].Metadata.SubType)
}
