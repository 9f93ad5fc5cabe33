package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/examsight/api/internal/client"
	"github.com/examsight/api/internal/model"
)

// SheetGrader defines the interface for scoring recognized sheets
type SheetGrader interface {
	Score(ctx context.Context, req *model.GradingScoreRequest) (*model.GradingScoreResponse, error)
}

// GradingService scores completed recognition results against a
// teacher-supplied answer key
type GradingService struct {
	recognitionService  *RecognitionService
	confidenceThreshold float64
}

// NewGradingService creates a new grading service
func NewGradingService(recognitionService *RecognitionService, confidenceThreshold float64) *GradingService {
	return &GradingService{
		recognitionService:  recognitionService,
		confidenceThreshold: confidenceThreshold,
	}
}

// Score grades a completed recognition job against the given answer key.
// Answers below the confidence threshold are flagged for manual review
// instead of being marked wrong.
func (s *GradingService) Score(ctx context.Context, req *model.GradingScoreRequest) (*model.GradingScoreResponse, error) {
	recognized, err := s.recognitionService.GetResult(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	if recognized.Result == nil {
		return nil, fmt.Errorf("recognition result is empty")
	}

	byNumber := make(map[int]client.AnswerRecord, len(recognized.Result.Answers))
	for _, answer := range recognized.Result.Answers {
		byNumber[answer.QuestionNumber] = answer
	}

	resp := &model.GradingScoreResponse{
		JobID:    req.JobID,
		SheetID:  recognized.SheetID,
		GradedAt: time.Now(),
	}

	for _, entry := range req.AnswerKey {
		points := entry.Points
		if points == 0 {
			points = 1
		}

		score := model.QuestionScore{
			QuestionNumber: entry.QuestionNumber,
			Expected:       entry.Expected,
			Points:         points,
		}

		answer, ok := byNumber[entry.QuestionNumber]
		switch {
		case !ok:
			score.Verdict = model.VerdictNotRecognized
			resp.NotRecognized++
		case answer.Confidence < s.confidenceThreshold:
			score.QuestionLabel = answer.QuestionLabel
			score.Recognized = answer.FinalAnswer.ExtractedText
			score.Confidence = answer.Confidence
			score.Verdict = model.VerdictNeedsReview
			resp.NeedsReview++
		case answersMatch(entry.Expected, answer.FinalAnswer):
			score.QuestionLabel = answer.QuestionLabel
			score.Recognized = answer.FinalAnswer.ExtractedText
			score.Confidence = answer.Confidence
			score.Verdict = model.VerdictCorrect
			score.Earned = points
		default:
			score.QuestionLabel = answer.QuestionLabel
			score.Recognized = answer.FinalAnswer.ExtractedText
			score.Confidence = answer.Confidence
			score.Verdict = model.VerdictIncorrect
		}

		resp.TotalPoints += points
		resp.EarnedPoints += score.Earned
		resp.Questions = append(resp.Questions, score)
	}

	sort.Slice(resp.Questions, func(i, j int) bool {
		return resp.Questions[i].QuestionNumber < resp.Questions[j].QuestionNumber
	})

	return resp, nil
}

// answersMatch compares the expected answer with the recognized one. The
// formula rendering wins over raw extracted text when present, since OCR of
// handwritten math tends to be noisier than the normalized formula.
func answersMatch(expected string, answer client.FinalAnswer) bool {
	want := normalizeAnswer(expected)
	if want == "" {
		return false
	}

	if answer.LatexFormula != "" && normalizeAnswer(answer.LatexFormula) == want {
		return true
	}
	return normalizeAnswer(answer.ExtractedText) == want
}

func normalizeAnswer(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimSuffix(s, ".")
	return s
}
