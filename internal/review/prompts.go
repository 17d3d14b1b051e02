package review

import (
	"fmt"
	"strings"
)

// initialPrompt asks the judge to check a first submission against the
// assignment task and to return the initial-check verdict JSON.
func initialPrompt(task, text string) string {
	var b strings.Builder
	b.WriteString("You act as a digital teacher reviewing a student's report. ")
	b.WriteString("Check whether the student completed the assignment described below. ")
	b.WriteString("Ignore unrelated parts of the report; judge only the assignment items.\n\n")
	b.WriteString("Assignment description:\n")
	b.WriteString(task)
	b.WriteString("\n\nReturn a JSON object with the keys: ")
	b.WriteString(`"status" ("ok" or "needs_fix"), `)
	b.WriteString(`"feedback" (short summary string), `)
	b.WriteString(`"missing" (array of strings, optional), `)
	b.WriteString(`"questions" (array of {"q","a"}, required when status is "ok").`)
	b.WriteString("\n\nReport text:\n")
	b.WriteString(text)
	return b.String()
}

// revisionPrompt asks the judge to verify that previously reported
// deficiencies were resolved in a re-uploaded report.
func revisionPrompt(task string, missing []string, oldText, newText string) string {
	var b strings.Builder
	b.WriteString("You act as a digital teacher. Assignment description:\n")
	b.WriteString(task)
	b.WriteString("\n\nYou previously found these deficiencies in the report:\n")
	b.WriteString(bulletList(missing))
	b.WriteString("\nThe student uploaded a corrected version. ")
	b.WriteString("Check whether the deficiencies were resolved.\n")
	b.WriteString("Return strictly a JSON object with the fields:\n")
	b.WriteString("  fixed: true or false,\n")
	b.WriteString("  missing: [array of remaining deficiencies],\n")
	b.WriteString(`  feedback: "short comment",` + "\n")
	b.WriteString(`  questions: array of {"q","a"}, required when fixed is true.`)
	b.WriteString("\n\nPrevious version of the report:\n")
	b.WriteString(oldText)
	b.WriteString("\n\nNew version of the report:\n")
	b.WriteString(newText)
	return b.String()
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return b.String()
}
