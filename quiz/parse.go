package quiz

import (
	"regexp"
	"strings"
)

// Placeholders shown for fields the model reply did not contain.
const (
	QuestionPlaceholder    = "題目解析失敗"
	OptionsPlaceholder     = "選項解析失敗"
	AnswerPlaceholder      = "?"
	ExplanationPlaceholder = "解說解析失敗"
)

var (
	questionRe    = regexp.MustCompile(`(?s)QUESTION_START\s*(.*?)\s*QUESTION_END`)
	optionsRe     = regexp.MustCompile(`(?s)OPTIONS_START\s*(.*?)\s*OPTIONS_END`)
	answerRe      = regexp.MustCompile(`(?s)ANSWER_START\s*([A-Da-d])\s*ANSWER_END`)
	explanationRe = regexp.MustCompile(`(?s)EXPLANATION_START\s*(.*?)\s*EXPLANATION_END`)

	choiceRe = regexp.MustCompile(`^\(?([A-Da-d])[\)\.:：、]\s*(.*)$`)
)

// Field is either a value extracted from the reply or a parse miss.
type Field struct {
	Text   string `json:"text"`
	Parsed bool   `json:"parsed"`
}

func (f Field) or(placeholder string) string {
	if f.Parsed {
		return f.Text
	}
	return placeholder
}

// Result is the structured form of a quiz reply.
type Result struct {
	Question    Field `json:"question"`
	Options     Field `json:"options"`
	Answer      Field `json:"answer"`
	Explanation Field `json:"explanation"`
}

func (r Result) QuestionText() string    { return r.Question.or(QuestionPlaceholder) }
func (r Result) OptionsText() string     { return r.Options.or(OptionsPlaceholder) }
func (r Result) AnswerLetter() string    { return r.Answer.or(AnswerPlaceholder) }
func (r Result) ExplanationText() string { return r.Explanation.or(ExplanationPlaceholder) }

// Complete reports whether every field was found.
func (r Result) Complete() bool {
	return r.Question.Parsed && r.Options.Parsed && r.Answer.Parsed && r.Explanation.Parsed
}

// Parse extracts the four tagged sections. Each field degrades on its own; Parse never fails.
func Parse(text string) Result {
	var r Result
	if m := questionRe.FindStringSubmatch(text); m != nil {
		r.Question = Field{Text: strings.TrimSpace(m[1]), Parsed: true}
	}
	if m := optionsRe.FindStringSubmatch(text); m != nil {
		r.Options = Field{Text: strings.TrimSpace(m[1]), Parsed: true}
	}
	if m := answerRe.FindStringSubmatch(text); m != nil {
		r.Answer = Field{Text: strings.ToUpper(m[1]), Parsed: true}
	}
	if m := explanationRe.FindStringSubmatch(text); m != nil {
		r.Explanation = Field{Text: strings.TrimSpace(m[1]), Parsed: true}
	}
	return r
}

// Choice is one labelled option line.
type Choice struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Choices splits the options block into lettered lines like "(A) ...".
// Lines without a letter prefix are appended to the previous choice.
func (r Result) Choices() []Choice {
	if !r.Options.Parsed {
		return nil
	}
	var out []Choice
	for _, line := range strings.Split(r.Options.Text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := choiceRe.FindStringSubmatch(line); m != nil {
			out = append(out, Choice{Letter: strings.ToUpper(m[1]), Text: strings.TrimSpace(m[2])})
			continue
		}
		if n := len(out); n > 0 {
			out[n-1].Text = strings.TrimSpace(out[n-1].Text + " " + line)
		}
	}
	return out
}

// ValidLetter reports whether s is one of A-D after normalisation.
func ValidLetter(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "A", "B", "C", "D":
		return s, true
	}
	return s, false
}
