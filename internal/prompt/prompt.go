// Package prompt renders a campaign and its ordered question list into the
// instruction text the conversational agent runs against. Compilation is a
// pure function of its inputs; the clock is a parameter so output is
// reproducible.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/canvass/internal/store"
)

const languagePolicy = `LANGUAGE POLICY
Detect the participant's first reply.
Do not switch languages once the conversation has started, even if the participant does.
Never use special characters such as %, $, #, or *.`

const generalGuidelines = `GENERAL GUIDELINES
Ask only one question at a time.
Respond in clear, complete sentences.
If the participant provides unexpected information, politely steer them back to the current question.
Do not provide medical or technical advice; clarify that your role is limited to conducting this survey.
If the participant asks for information outside your scope, respond succinctly that you can only administer the survey.`

// Compile builds the agent instructions. Questions must already be in
// ascending question order; the store guarantees that, and the numbered flow
// below depends on it.
func Compile(c store.Campaign, questions []store.Question, now time.Time) string {
	var b strings.Builder

	b.WriteString(c.IntroPrompt)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Current date and time: %s\n\n", now.Format("Monday, January 2, 2006 at 3:04 PM"))

	b.WriteString(languagePolicy)
	b.WriteString("\n\nSURVEY FLOW (ask only one question at a time)\n\n")

	fmt.Fprintf(&b, "1) Briefly explain purpose:\n   %q\n", c.PurposeExplanation)
	for _, q := range questions {
		fmt.Fprintf(&b, "\n%d) Question %d:\n   %q\n", q.Order, q.Order, q.Text)
	}

	fmt.Fprintf(&b, "\n%d) Completion check:\n   After the recap, call check_survey_complete to ensure all questions were answered.\n", len(questions)+3)
	fmt.Fprintf(&b, "\n%d) Closing:\n   If complete, say:\n   %q\n   Then end the call.\n\n", len(questions)+4, c.Closing)

	b.WriteString(generalGuidelines)
	b.WriteString("\n")

	return b.String()
}
