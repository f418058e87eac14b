package transform

import (
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/aptrag/chatbot/domain"
	"github.com/aptrag/chatbot/legacyquery"
)

// preferenceSubType is the sub_type discriminant used across the
// PREFERENCE_ANALYSIS documents this chunker can emit.
const (
	subCompletionSummary   = "completion_summary"
	subTestStats           = "test_stats"
	subPreferencesOverview = "preferences_overview"
	subJobsOverview        = "jobs_overview"
	subUnavailable         = "unavailable"
	subPartialAvailable    = "partial_available"
	subError               = "error"
)

// chunkPreference implements §4.F rule 5, the largest and most
// detailed chunking path. It never panics out (caught by
// Transformer.runChunker) but also guards its own body with recover so
// a malformed row shape degrades to the documented error document
// rather than taking down the whole transform.
func chunkPreference(results map[string]legacyquery.Result) (docs []domain.Document) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("preference chunker panicked", "panic", r)
			docs = []domain.Document{preferenceErrorDoc(fmt.Sprintf("%v", r))}
		}
	}()

	stats := rowsOf(results, "imagePreferenceStatsQuery")
	prefs := rowsOf(results, "preferenceDataQuery")
	jobs := rowsOf(results, "preferenceJobsQuery")

	availableStats := len(stats) > 0
	availablePreferences := len(prefs) > 0
	availableJobs := len(jobs) > 0

	availableCount := 0
	for _, ok := range []bool{availableStats, availablePreferences, availableJobs} {
		if ok {
			availableCount++
		}
	}

	switch availableCount {
	case 3:
		return preferenceComplete(stats[0], prefs, jobs)
	case 0:
		return []domain.Document{preferenceUnavailableDoc()}
	default:
		return preferencePartial(availableStats, availablePreferences, availableJobs, stats, prefs, jobs)
	}
}

func preferenceErrorDoc(detail string) domain.Document {
	return domain.Document{
		DocType:     domain.DocPreferenceAnalysis,
		SummaryText: "선호도 분석 중 오류가 발생했습니다.",
		Content: map[string]any{
			"sub_type":        subError,
			"message":         "선호도 데이터를 처리하는 중 문제가 발생했습니다.",
			"technical_detail": detail,
			"recovery_recommendations": []string{
				"잠시 후 다시 시도해 주세요.",
				"문제가 계속되면 다른 분석 결과를 먼저 확인해 보세요.",
			},
		},
		Metadata: domain.DocumentMetadata{SubType: subError, CompletionLevel: domain.CompletionNone},
	}
}

func preferenceUnavailableDoc() domain.Document {
	missing := []string{"imagePreferenceStatsQuery", "preferenceDataQuery", "preferenceJobsQuery"}
	return domain.Document{
		DocType:     domain.DocPreferenceAnalysis,
		SummaryText: "선호도 분석 데이터가 아직 준비되지 않았습니다.",
		Content: map[string]any{
			"sub_type":            subUnavailable,
			"missing_components":  missing,
			"explanation":         "이미지 선호도 검사 결과가 아직 집계되지 않아 선호도 분석을 제공할 수 없습니다. 검사가 완료되면 자동으로 분석이 생성됩니다.",
			"alternatives":        []string{"PERSONALITY_PROFILE", "THINKING_SKILLS", "CAREER_RECOMMENDATIONS"},
			"recommendation":      "다른 분석 결과를 먼저 확인해 보시고, 선호도 분석은 데이터 준비 후 다시 문의해 주세요.",
			"data_availability": map[string]string{
				"imagePreferenceStatsQuery": "처리 중",
				"preferenceDataQuery":       "처리 중",
				"preferenceJobsQuery":       "처리 중",
			},
		},
		Metadata: domain.DocumentMetadata{SubType: subUnavailable, CompletionLevel: domain.CompletionNone},
	}
}

func preferencePartial(hasStats, hasPrefs, hasJobs bool, stats, prefs, jobs []legacyquery.Row) []domain.Document {
	available := []string{}
	missing := []string{}
	addComponent(&available, &missing, hasStats, "imagePreferenceStatsQuery")
	addComponent(&available, &missing, hasPrefs, "preferenceDataQuery")
	addComponent(&available, &missing, hasJobs, "preferenceJobsQuery")

	percentage := float64(len(available)) / 3.0 * 100.0

	availability := map[string]string{}
	for _, c := range available {
		availability[c] = "이용 가능"
	}
	for _, c := range missing {
		availability[c] = "처리 중"
	}

	partialDoc := domain.Document{
		DocType:     domain.DocPreferenceAnalysis,
		SummaryText: fmt.Sprintf("선호도 분석 데이터가 일부만 준비되었습니다 (%.0f%%)", percentage),
		Content: map[string]any{
			"sub_type":               subPartialAvailable,
			"available_components":   available,
			"missing_components":     missing,
			"completion_percentage":  percentage,
			"data_availability":      availability,
		},
		Metadata: domain.DocumentMetadata{SubType: subPartialAvailable, CompletionLevel: domain.CompletionPartial},
	}

	docs := []domain.Document{partialDoc}
	if hasPrefs {
		docs = append(docs, preferenceIndividualDocs(prefs)...)
	}
	if hasJobs {
		docs = append(docs, jobsOverviewDoc(jobs))
		docs = append(docs, jobsGroupDocs(jobs)...)
	}
	if hasStats {
		docs = append(docs, testStatsDoc(stats[0], 0, len(prefs), len(jobs)))
	}
	return docs
}

func addComponent(available, missing *[]string, ok bool, name string) {
	if ok {
		*available = append(*available, name)
	} else {
		*missing = append(*missing, name)
	}
}

func preferenceComplete(stat legacyquery.Row, prefs, jobs []legacyquery.Row) []domain.Document {
	quality := qualityScore(num(stat, "response_rate"), len(prefs), len(jobs))

	var docs []domain.Document
	docs = append(docs, completionSummaryDoc(quality))
	docs = append(docs, testStatsDoc(stat, quality, len(prefs), len(jobs)))
	docs = append(docs, preferencesOverviewDoc(prefs))
	docs = append(docs, preferenceIndividualDocs(prefs)...)
	docs = append(docs, jobsOverviewDoc(jobs))
	docs = append(docs, jobsGroupDocs(jobs)...)
	return docs
}

// qualityScore implements §4.F rule 6's scoring ladders.
func qualityScore(responseRate float64, prefCount, jobCount int) int {
	score := 0
	switch {
	case responseRate >= 90:
		score += 40
	case responseRate >= 80:
		score += 35
	case responseRate >= 70:
		score += 30
	case responseRate >= 50:
		score += 20
	default:
		score += 10
	}

	switch {
	case prefCount >= 8:
		score += 30
	case prefCount >= 5:
		score += 25
	case prefCount >= 3:
		score += 20
	case prefCount >= 1:
		score += 15
	}

	switch {
	case jobCount >= 15:
		score += 30
	case jobCount >= 10:
		score += 25
	case jobCount >= 5:
		score += 20
	case jobCount >= 1:
		score += 15
	}

	if score > 100 {
		score = 100
	}
	return score
}

func completionSummaryDoc(quality int) domain.Document {
	return domain.Document{
		DocType:     domain.DocPreferenceAnalysis,
		SummaryText: fmt.Sprintf("선호도 분석 종합 점수: %d점", quality),
		Content: map[string]any{
			"sub_type":      subCompletionSummary,
			"quality_score": quality,
		},
		Metadata: domain.DocumentMetadata{SubType: subCompletionSummary, CompletionLevel: levelForScore(quality)},
	}
}

func levelForScore(score int) domain.CompletionLevel {
	switch {
	case score >= 80:
		return domain.CompletionComplete
	case score >= 50:
		return domain.CompletionPartial
	default:
		return domain.CompletionLow
	}
}

// testStatsDoc emits the test_stats document with its completion_status
// ladder (§4.F rule 5): 완료 ≥80%, 부분완료 50-80%, 미완료 <50%.
func testStatsDoc(stat legacyquery.Row, quality, prefCount, jobCount int) domain.Document {
	rate := num(stat, "response_rate")
	var status string
	switch {
	case rate >= 80:
		status = "완료"
	case rate >= 50:
		status = "부분완료"
	default:
		status = "미완료"
	}

	qualityIndicator := "보통"
	switch {
	case quality >= 80:
		qualityIndicator = "우수"
	case quality < 50:
		qualityIndicator = "미흡"
	}

	return domain.Document{
		DocType: domain.DocPreferenceAnalysis,
		SummaryText: fmt.Sprintf("선호도 검사 완료 상태: %s (응답률 %.0f%%)", status, rate),
		Content: map[string]any{
			"sub_type":           subTestStats,
			"completion_status":  status,
			"quality_indicator":  qualityIndicator,
			"interpretation":     interpretationFor(status),
			"response_rate":      rate,
			"total_image_count":  num(stat, "total_image_count"),
			"response_count":     num(stat, "response_count"),
			"preference_count":   prefCount,
			"job_count":          jobCount,
			"recommendations":    recommendationsFor(status),
			"next_steps":         nextStepsFor(status),
		},
		Metadata: domain.DocumentMetadata{SubType: subTestStats, CompletionLevel: levelForScore(int(rate))},
	}
}

func interpretationFor(status string) string {
	switch status {
	case "완료":
		return "이미지 선호도 검사에 충분히 응답하여 신뢰할 수 있는 분석 결과를 제공할 수 있습니다."
	case "부분완료":
		return "이미지 선호도 검사에 일부 응답하여 제한적인 분석 결과를 제공합니다."
	default:
		return "이미지 선호도 검사 응답이 부족하여 분석 결과의 신뢰도가 낮습니다."
	}
}

func recommendationsFor(status string) []string {
	if status == "완료" {
		return []string{"현재 분석 결과를 바탕으로 진로 탐색을 진행해 보세요."}
	}
	return []string{"남은 이미지 선호도 검사 문항에 응답하면 더 정확한 분석을 받을 수 있습니다."}
}

func nextStepsFor(status string) []string {
	if status == "완료" {
		return []string{"선호도 기반 추천 직업을 확인하세요.", "관련 활동을 탐색해 보세요."}
	}
	return []string{"검사를 재개하여 나머지 문항에 응답하세요."}
}

// preferencesOverviewDoc implements the distribution/concentration
// logic (§4.F rule 5).
func preferencesOverviewDoc(prefs []legacyquery.Row) domain.Document {
	strong, medium, weak := 0, 0, 0
	for _, p := range prefs {
		rank := int(num(p, "rank"))
		switch {
		case rank <= 2:
			strong++
		case rank <= 5:
			medium++
		default:
			weak++
		}
	}

	total := len(prefs)
	concentration := "균형형"
	if total > 0 {
		switch {
		case float64(strong)/float64(total) >= 0.5:
			concentration = "집중형"
		case weak > strong+medium:
			concentration = "분산형"
		}
	}

	names := lo.Map(prefs, func(p legacyquery.Row, _ int) string {
		return str(p, "preference_name")
	})

	return domain.Document{
		DocType:     domain.DocPreferenceAnalysis,
		SummaryText: fmt.Sprintf("선호도 개요: %d개 선호 영역, 집중도 %s", total, concentration),
		Content: map[string]any{
			"sub_type": subPreferencesOverview,
			"insights": fmt.Sprintf("총 %d개의 선호 영역이 확인되었습니다.", total),
			"distribution": map[string]int{
				"strong": strong,
				"medium": medium,
				"weak":   weak,
			},
			"concentration_level": concentration,
			"preference_names":    names,
		},
		Metadata: domain.DocumentMetadata{SubType: subPreferencesOverview, CompletionLevel: levelForCount(total, 5)},
	}
}

// preferenceIndividualDocs emits one preference_k document per valid
// preference entry (§4.F rule 5).
func preferenceIndividualDocs(prefs []legacyquery.Row) []domain.Document {
	docs := make([]domain.Document, 0, len(prefs))
	for i, p := range prefs {
		rank := int(num(p, "rank"))
		name := str(p, "preference_name")

		strength := "약함"
		switch {
		case rank == 1:
			strength = "강함"
		case rank <= 3:
			strength = "보통"
		}

		subType := fmt.Sprintf("preference_%d", i+1)
		docs = append(docs, domain.Document{
			DocType:     domain.DocPreferenceAnalysis,
			SummaryText: fmt.Sprintf("%s (순위 %d, 선호도 %s)", name, rank, strength),
			Content: map[string]any{
				"sub_type":                subType,
				"preference_name":         name,
				"rank":                    rank,
				"response_rate":           num(p, "response_rate"),
				"description":             str(p, "description"),
				"preference_strength":     strength,
				"analysis":                fmt.Sprintf("%s에 대한 선호가 %s으로 나타났습니다.", name, strength),
				"career_implications":     fmt.Sprintf("%s 관련 직업을 고려해볼 수 있습니다.", name),
				"development_suggestions": fmt.Sprintf("%s 관련 활동에 참여하며 역량을 키워보세요.", name),
				"related_activities":      []string{fmt.Sprintf("%s 관련 체험 활동", name)},
			},
			Metadata: domain.DocumentMetadata{SubType: subType, CompletionLevel: domain.CompletionHigh},
		})
	}
	return docs
}

func jobsOverviewDoc(jobs []legacyquery.Row) domain.Document {
	industries := lo.Uniq(lo.Map(jobs, func(j legacyquery.Row, _ int) string {
		return str(j, "preference_type")
	}))

	return domain.Document{
		DocType:     domain.DocPreferenceAnalysis,
		SummaryText: fmt.Sprintf("추천 직업 개요: %d개 직업, %d개 선호 그룹", len(jobs), len(industries)),
		Content: map[string]any{
			"sub_type":           subJobsOverview,
			"job_count":          len(jobs),
			"industry_diversity": len(industries),
			"recommendations":    []string{"관심있는 선호 영역의 직업 목록을 확인해 보세요."},
		},
		Metadata: domain.DocumentMetadata{SubType: subJobsOverview, CompletionLevel: levelForCount(len(jobs), 10)},
	}
}

// jobsGroupDocs emits one jobs_<preference_name> document per
// preference group (§4.F rule 5).
func jobsGroupDocs(jobs []legacyquery.Row) []domain.Document {
	groups := map[string][]legacyquery.Row{}
	var order []string
	for _, j := range jobs {
		name := str(j, "preference_name")
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], j)
	}

	docs := make([]domain.Document, 0, len(order))
	for _, name := range order {
		rows := groups[name]
		jobNames := lo.Map(rows, func(r legacyquery.Row, _ int) string {
			return str(r, "jo_name")
		})

		subType := "jobs_" + name
		docs = append(docs, domain.Document{
			DocType:     domain.DocPreferenceAnalysis,
			SummaryText: fmt.Sprintf("%s 관련 추천 직업: %d개", name, len(rows)),
			Content: map[string]any{
				"sub_type":                subType,
				"preference_name":         name,
				"career_paths":            jobNames,
				"industry_analysis":       fmt.Sprintf("%s 분야는 다양한 산업에 걸쳐 있습니다.", name),
				"skill_requirements":      extractSkills(name),
				"education_recommendations": fmt.Sprintf("%s 관련 전공 또는 자격증을 고려해 보세요.", name),
				"next_steps":              []string{"관심 직업에 대한 직업 정보를 추가로 탐색해 보세요."},
			},
			Metadata: domain.DocumentMetadata{SubType: subType, CompletionLevel: levelForCount(len(rows), 3)},
		})
	}
	return docs
}

// extractSkills is a rule-based placeholder deriving skill keywords
// from a preference name; the reference implementation uses a richer
// lookup, not reproduced here since it is outside this spec's scope.
func extractSkills(preferenceName string) []string {
	return []string{preferenceName + " 관련 실무 역량"}
}
