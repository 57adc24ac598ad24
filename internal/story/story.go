// Package story defines the story pool asset: templated mystery scenarios
// that the case generator turns into concrete cases.
package story

// Story is one templated mystery scenario. The asset is immutable after
// loading; generation draws from it but never writes back.
type Story struct {
	ID       string            `json:"id" yaml:"id"`
	Title    string            `json:"title" yaml:"title"`
	Tags     []string          `json:"tags" yaml:"tags"`
	Metadata map[string]string `json:"metadata" yaml:"metadata"`

	// Variables holds the named variant pools. A value is either a list of
	// variants (strings or objects) or a nested object of further pools.
	Variables map[string]any `json:"variables" yaml:"variables"`

	Templates Templates `json:"templates" yaml:"templates"`
}

// Templates collects every templated collection of a story. Template text may
// reference variable paths with {{path}} or ${path} placeholders.
type Templates struct {
	DescriptionBeats []Beat                  `json:"descriptionBeats" yaml:"descriptionBeats"`
	MicroEvents      map[string][]MicroEvent `json:"microEvents" yaml:"microEvents"`
	InitialClues     []Clue                  `json:"initialClues" yaml:"initialClues"`
	StoreClues       []StoreClue             `json:"storeClues" yaml:"storeClues"`
	StatementEntries []StatementEntry        `json:"statementEntries" yaml:"statementEntries"`
	QuizQuestions    []QuizQuestion          `json:"quizQuestions" yaml:"quizQuestions"`
	Solution         Solution                `json:"solution" yaml:"solution"`
}

type Beat struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

// MicroEvent is a small narrative event. Events are keyed by investigation
// phase in the story asset; the phase is attached during generation.
type MicroEvent struct {
	ID    string   `json:"id" yaml:"id"`
	Title string   `json:"title" yaml:"title"`
	Text  string   `json:"text" yaml:"text"`
	Tags  []string `json:"tags" yaml:"tags"`
}

type Clue struct {
	ID    string   `json:"id" yaml:"id"`
	Title string   `json:"title" yaml:"title"`
	Text  string   `json:"text" yaml:"text"`
	Tags  []string `json:"tags" yaml:"tags"`
	// Initial marks a store candidate that starts unlocked anyway.
	Initial bool `json:"initial,omitempty" yaml:"initial,omitempty"`
}

// StoreClue is a purchasable clue candidate tagged with an evidence category.
type StoreClue struct {
	Category string `json:"category" yaml:"category"`
	Initial  bool   `json:"initial,omitempty" yaml:"initial,omitempty"`
	Clue     Clue   `json:"clue" yaml:"clue"`
}

type StatementEntry struct {
	ID   string   `json:"id" yaml:"id"`
	Text string   `json:"text" yaml:"text"`
	Tags []string `json:"tags" yaml:"tags"`
}

// QuizQuestion templates one closing-quiz question. Answer is the rendered
// correct option and must never reach a client before reveal.
type QuizQuestion struct {
	ID         string   `json:"id" yaml:"id"`
	Question   string   `json:"question" yaml:"question"`
	Options    []string `json:"options" yaml:"options"`
	Answer     string   `json:"answer" yaml:"answer"`
	Difficulty string   `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Tags       []string `json:"tags" yaml:"tags"`
}

// TagFinal marks the culprit-identification questions that are always kept
// and ordered last in the quiz.
const TagFinal = "quiz:final"

type Solution struct {
	Summary string   `json:"summary" yaml:"summary"`
	Details []string `json:"details" yaml:"details"`
	Tags    []string `json:"tags" yaml:"tags"`
}

// Listing is the client-facing summary of a story.
type Listing struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Tags     []string          `json:"tags"`
	Metadata map[string]string `json:"metadata"`
}

// Listing returns the summary view of the story.
func (s Story) Listing() Listing {
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	metadata := s.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return Listing{
		ID:       s.ID,
		Title:    s.Title,
		Tags:     tags,
		Metadata: metadata,
	}
}
