package main

import (
	"context"
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/goliatone/go-groupcontent/pkg/entity"
	"github.com/goliatone/go-groupcontent/pkg/markup"
)

var viewModes = []string{entity.ViewModeDefault, "teaser", entity.ViewModeFull}

// entityPrompter collects an entity from the user.
type entityPrompter interface {
	Prompt(ctx context.Context) (entity.GroupContent, error)
}

type surveyPrompter struct{}

type entityAnswers struct {
	Label    string
	URL      string
	Bundle   string
	ViewMode string
	Content  string
	Sanitize bool
}

func (surveyPrompter) Prompt(ctx context.Context) (entity.GroupContent, error) {
	questions := []*survey.Question{
		{
			Name:     "label",
			Prompt:   &survey.Input{Message: "Label:"},
			Validate: survey.Required,
		},
		{
			Name:   "url",
			Prompt: &survey.Input{Message: "URL:", Default: "/"},
		},
		{
			Name:   "bundle",
			Prompt: &survey.Input{Message: "Bundle:", Help: "Content type, used for CSS classes and template suggestions"},
		},
		{
			Name: "viewmode",
			Prompt: &survey.Select{
				Message: "View mode:",
				Options: viewModes,
				Default: entity.ViewModeDefault,
			},
		},
		{
			Name:   "content",
			Prompt: &survey.Multiline{Message: "Content (HTML):"},
		},
		{
			Name:   "sanitize",
			Prompt: &survey.Confirm{Message: "Sanitize content?", Default: false},
		},
	}

	var answers entityAnswers
	if err := survey.Ask(questions, &answers); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return entity.GroupContent{}, context.Canceled
		}
		return entity.GroupContent{}, err
	}
	if err := ctx.Err(); err != nil {
		return entity.GroupContent{}, err
	}

	content := markup.Markup(answers.Content)
	if answers.Sanitize {
		content = markup.NewSanitizer(nil).Sanitize(content)
	}
	return entity.GroupContent{
		Label:    answers.Label,
		URL:      answers.URL,
		Bundle:   answers.Bundle,
		ViewMode: answers.ViewMode,
		Content:  content,
	}, nil
}
