package app

import (
	"os"

	"github.com/AlecAivazis/survey/v2"
)

// Prompter collects interactive answers for commands that need a secret or a
// confirmation.
type Prompter interface {
	Password(message string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Password(message string) (string, error) {
	var answer string
	if err := survey.AskOne(&survey.Password{Message: message}, &answer); err != nil {
		return "", err
	}
	return answer, nil
}

func (surveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	answer := defaultValue
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: defaultValue}, &answer); err != nil {
		return false, err
	}
	return answer, nil
}

func (r Runner) prompter() Prompter {
	if r.Prompter == nil {
		return surveyPrompter{}
	}
	return r.Prompter
}

func (r Runner) interactive() bool {
	if r.Interactive != nil {
		return r.Interactive()
	}
	return stdinIsTerminal()
}

func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
