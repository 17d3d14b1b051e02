package review

// Stage identifies where a review session sits in the submission workflow.
type Stage string

// Workflow stages. A session starts in StageNew and is terminal in StageFinished.
const (
	StageNew                 Stage = "new"
	StageCheckingSubmission  Stage = "checking_submission"
	StageReturnedForRevision Stage = "returned_for_revision"
	StageCheckingCorrected   Stage = "checking_corrected_submission"
	StageDialogue            Stage = "dialogue"
	StageReview              Stage = "review"
	StageFinished            Stage = "finished"
)

// AwaitsDocument reports whether the stage accepts a document upload.
func (s Stage) AwaitsDocument() bool {
	return s == StageNew || s == StageReturnedForRevision
}

// Terminal reports whether the session can no longer change.
func (s Stage) Terminal() bool {
	return s == StageFinished
}

// Valid reports whether the value is one of the known stages.
func (s Stage) Valid() bool {
	switch s {
	case StageNew, StageCheckingSubmission, StageReturnedForRevision,
		StageCheckingCorrected, StageDialogue, StageReview, StageFinished:
		return true
	}
	return false
}
