package model

// Job status for locally managed jobs
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Image quality classifications reported by the recognition service
type ImageQuality string

const (
	ImageQualityGood     ImageQuality = "good"
	ImageQualityFair     ImageQuality = "fair"
	ImageQualityPoor     ImageQuality = "poor"
	ImageQualityUnusable ImageQuality = "unusable"
)

// Subject types for exam sheets
type Subject string

const (
	SubjectMath      Subject = "math"
	SubjectPhysics   Subject = "physics"
	SubjectChemistry Subject = "chemistry"
	SubjectBiology   Subject = "biology"
	SubjectEnglish   Subject = "english"
	SubjectHistory   Subject = "history"
)

var ValidSubjects = []Subject{
	SubjectMath, SubjectPhysics, SubjectChemistry,
	SubjectBiology, SubjectEnglish, SubjectHistory,
}

// Grading verdict for a single answer
type Verdict string

const (
	VerdictCorrect       Verdict = "correct"
	VerdictIncorrect     Verdict = "incorrect"
	VerdictNeedsReview   Verdict = "needs_review"
	VerdictNotRecognized Verdict = "not_recognized"
)
