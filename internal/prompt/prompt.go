// Package prompt shows the doorhanger on the terminal.
package prompt

import (
	"context"
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/ooni/dohrollout/internal/model"
)

// Terminal is a model.PromptSurface asking a yes/no question on the
// terminal. An unanswered question expires after Timeout.
type Terminal struct {
	// Timeout is the OPTIONAL time after which the prompt expires. When
	// zero, the prompt only expires when the context is done.
	Timeout time.Duration

	// Logger is the OPTIONAL logger.
	Logger model.Logger

	// Ask is the OPTIONAL function asking the question, which returns
	// true when the user accepts.
	Ask func(spec *model.PromptSpec) (bool, error)
}

var _ model.PromptSurface = &Terminal{}

// AskSurvey asks the question using github.com/AlecAivazis/survey/v2.
func AskSurvey(spec *model.PromptSpec) (bool, error) {
	accept := false
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("%s\n%s\n(yes: %s, no: %s)",
			spec.Title, spec.Message, spec.AcceptLabel, spec.DeclineLabel),
		Default: false,
		Help:    spec.LearnMoreURL,
	}
	err := survey.AskOne(prompt, &accept)
	return accept, err
}

type answer struct {
	accept bool
	err    error
}

// Show implements model.PromptSurface. Note that an expired question
// stays on the terminal and we ignore any late answer.
func (t *Terminal) Show(ctx context.Context, spec *model.PromptSpec) (<-chan *model.PromptResponse, error) {
	ask := t.Ask
	if ask == nil {
		ask = AskSurvey
	}
	logger := model.ValidLoggerOrDefault(t.Logger)
	answers := make(chan *answer, 1)
	go func() {
		accept, err := ask(spec)
		answers <- &answer{accept: accept, err: err}
	}()
	out := make(chan *model.PromptResponse, 1)
	go func() {
		defer close(out)
		var expired <-chan time.Time
		if t.Timeout > 0 {
			timer := time.NewTimer(t.Timeout)
			defer timer.Stop()
			expired = timer.C
		}
		select {
		case <-ctx.Done():
			logger.Debugf("prompt: %s: %s", spec.ID, ctx.Err().Error())
		case <-expired:
			logger.Infof("prompt: %s: expired", spec.ID)
		case a := <-answers:
			if a.err != nil {
				logger.Warnf("prompt: %s: %s", spec.ID, a.err.Error())
				return
			}
			action := model.PromptDecline
			if a.accept {
				action = model.PromptAccept
			}
			out <- &model.PromptResponse{PromptID: spec.ID, Action: action}
		}
	}()
	return out, nil
}
