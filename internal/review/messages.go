package review

import (
	"fmt"
	"strings"

	"github.com/revizorlab/revizor-api/internal/verdict"
)

// Assistant replies produced by the state machine. The caller persists them
// as chat messages and relays them to the client unchanged.
const (
	msgUploadRequest   = "Please upload the file with your work so I can start the review."
	msgReuploadRequest = "Your work was returned for revision. Please upload the corrected version."
	msgCheckInProgress = "Your submission is being checked. Please wait for the result."
	msgCorrect         = "Correct!"
	msgAlmost          = "Almost! Try to make your answer more precise."
	msgSessionFinished = "This session is finished. Start a new session if you have more questions."
)

func needsFixMessage(feedback string, missing []string) string {
	message := fmt.Sprintf("The work needs revision: %s", feedback)
	if len(missing) > 0 {
		message += "\n\nDeficiencies:\n" + strings.TrimRight(bulletList(missing), "\n")
	}
	return message
}

func stillMissingMessage(missing []string) string {
	return "There are still deficiencies:\n" + strings.TrimRight(bulletList(missing), "\n")
}

func acceptedMessage(feedback, firstQuestion string) string {
	return fmt.Sprintf("No deficiencies found (%s). Let's check your understanding:%s",
		feedback, questionMessage(1, firstQuestion))
}

func fixedMessage(feedback, firstQuestion string) string {
	return fmt.Sprintf("Everything is fixed (%s). Let's check your understanding:%s",
		feedback, questionMessage(1, firstQuestion))
}

func questionMessage(number int, question string) string {
	return fmt.Sprintf("\n\nQuestion %d: %s", number, question)
}

func incorrectMessage(reference string) string {
	return fmt.Sprintf("Incorrect. The reference answer is: %s", reference)
}

func passMessage(ratio float64) string {
	return fmt.Sprintf("Your work is accepted (%.0f%%)!", ratio*100)
}

func failMessage(ratio float64) string {
	return fmt.Sprintf("Your work is not accepted (%.0f%%). Review the assignment topics and start a new session to try again.", ratio*100)
}

// firstQuestionOf guards against an empty quiz when composing the transition
// into dialogue; the schema forbids it, this is the last line of defence.
func firstQuestionOf(questions []verdict.Question) string {
	if len(questions) == 0 {
		return "Describe what you did in your work."
	}
	return questions[0].Q
}
