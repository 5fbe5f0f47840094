package quiz

import (
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
)

// File layout:
//
//	[[question]]
//	filename = "vis_04_01_01"
//	prompt = "What is the output of the function?"
//	free_response = true
//	choices = ["Does not compile", "5", "15"]
//
// Questions are numbered in file order unless id is set; choices are
// numbered in list order.
type tomlFile struct {
	Question []tomlQuestion `toml:"question"`
}

type tomlQuestion struct {
	ID           *int     `toml:"id"`
	Filename     string   `toml:"filename"`
	Prompt       string   `toml:"prompt"`
	FreeResponse bool     `toml:"free_response"`
	Choices      []string `toml:"choices"`
}

// ParseTOML decodes a question file into a Bank.
func ParseTOML(r io.Reader) (*Bank, error) {
	var f tomlFile
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	qs := make([]Question, 0, len(f.Question))
	for i, tq := range f.Question {
		if tq.Prompt == "" {
			return nil, fmt.Errorf("question %d: empty prompt", i)
		}
		id := i
		if tq.ID != nil {
			id = *tq.ID
		}
		q := Question{
			ID:                   id,
			Filename:             tq.Filename,
			Prompt:               tq.Prompt,
			ContainsFreeResponse: tq.FreeResponse,
		}
		for j, text := range tq.Choices {
			q.Choices = append(q.Choices, Choice{ID: j, Text: text})
		}
		qs = append(qs, q)
	}
	return NewBank(qs)
}
