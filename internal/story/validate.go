package story

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mjuvonen/truthseeker/internal/errors"
)

var (
	bracePattern  = regexp.MustCompile(`\{\{\s*([\w.]+)\s*\}\}`)
	dollarPattern = regexp.MustCompile(`\$\{\s*([\w.]+)\s*\}`)
)

var ErrUnresolvedPlaceholder = errors.NewSentinel("template placeholder does not resolve")

// Validate cross-checks every template placeholder in the pool against the
// owning story's declared variables. Unresolved paths still render as empty
// strings at generation time; validation is an authoring aid that surfaces
// them before the asset ships.
func (p *Pool) Validate() error {
	var errorList []error
	for i, s := range p.Stories {
		for _, problem := range s.unresolvedPlaceholders() {
			errorList = append(errorList, errors.Wrap(ErrUnresolvedPlaceholder,
				fmt.Sprintf("story %d (%s): %s", i, s.ID, problem)))
		}
	}
	return errors.Join(errorList...)
}

// unresolvedPlaceholders lists "<location>: <path>" for every placeholder that
// cannot resolve against the story's variables.
func (s Story) unresolvedPlaceholders() []string {
	var problems []string
	check := func(location, text string) {
		for _, path := range placeholderPaths(text) {
			if !resolvable(s.Variables, strings.Split(path, ".")) {
				problems = append(problems, fmt.Sprintf("%s references %q", location, path))
			}
		}
	}

	for _, beat := range s.Templates.DescriptionBeats {
		check(fmt.Sprintf("description beat %s", beat.ID), beat.Text)
	}
	for phase, events := range s.Templates.MicroEvents {
		for _, event := range events {
			check(fmt.Sprintf("micro event %s/%s", phase, event.ID), event.Text)
		}
	}
	for _, clue := range s.Templates.InitialClues {
		check(fmt.Sprintf("initial clue %s", clue.ID), clue.Text)
	}
	for _, entry := range s.Templates.StoreClues {
		check(fmt.Sprintf("store clue %s", entry.Clue.ID), entry.Clue.Text)
	}
	for _, entry := range s.Templates.StatementEntries {
		check(fmt.Sprintf("statement entry %s", entry.ID), entry.Text)
	}
	for _, question := range s.Templates.QuizQuestions {
		check(fmt.Sprintf("quiz question %s", question.ID), question.Question)
		check(fmt.Sprintf("quiz question %s answer", question.ID), question.Answer)
		for j, option := range question.Options {
			check(fmt.Sprintf("quiz question %s option %d", question.ID, j), option)
		}
	}
	check("solution summary", s.Templates.Solution.Summary)
	for j, detail := range s.Templates.Solution.Details {
		check(fmt.Sprintf("solution detail %d", j), detail)
	}
	return problems
}

// placeholderPaths extracts the dotted paths of both placeholder dialects.
func placeholderPaths(text string) []string {
	var paths []string
	for _, match := range bracePattern.FindAllStringSubmatch(text, -1) {
		paths = append(paths, match[1])
	}
	for _, match := range dollarPattern.FindAllStringSubmatch(text, -1) {
		paths = append(paths, match[1])
	}
	return paths
}

// resolvable reports whether the dotted path can resolve once each variant
// pool on its way has collapsed to a single pick. A pool resolves when at
// least one of its variants carries the remaining path.
func resolvable(node any, segments []string) bool {
	if len(segments) == 0 {
		return true
	}
	switch value := node.(type) {
	case map[string]any:
		child, ok := value[segments[0]]
		if !ok {
			return false
		}
		return resolvable(child, segments[1:])
	case []any:
		for _, variant := range value {
			if resolvable(variant, segments) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
