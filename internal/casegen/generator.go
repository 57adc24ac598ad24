package casegen

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/mjuvonen/truthseeker/internal/errors"
	"github.com/mjuvonen/truthseeker/internal/random"
	"github.com/mjuvonen/truthseeker/internal/story"
)

var ErrStoryNotFound = errors.NewSentinel("story not found")

// Difficulty tiers. Unknown values silently fall back to medium.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// ValidDifficulty reports whether s names a known tier. The generator itself
// falls back to medium; boundaries that want to reject bad input check here.
func ValidDifficulty(s string) bool {
	switch s {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type difficultySettings struct {
	// clueMultiplier scales how much of the initial-clue candidate set is kept.
	clueMultiplier float64
	// quizRatio scales how many non-final quiz questions are kept.
	quizRatio float64
}

var difficultyConfig = map[string]difficultySettings{
	DifficultyEasy:   {clueMultiplier: 1.0, quizRatio: 0.3},
	DifficultyMedium: {clueMultiplier: 0.6, quizRatio: 0.6},
	DifficultyHard:   {clueMultiplier: 0.3, quizRatio: 1.0},
}

// The four core evidence categories. Store candidates with any other
// category collapse into the catch-all bucket.
var coreCategories = []string{"background", "timeline", "physical", "testimonial"}

const otherCategory = "other"

// Clue is a rendered unit of evidence.
type Clue struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Text  string   `json:"text"`
	Tags  []string `json:"tags"`
	Phase string   `json:"phase,omitempty"`
}

// StoreOffer is the single purchasable clue surviving for its category.
type StoreOffer struct {
	Category string `json:"category"`
	Clue     Clue   `json:"clue"`
}

type Beat struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type MicroEvent struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Text  string   `json:"text"`
	Tags  []string `json:"tags"`
	Phase string   `json:"phase"`
}

type Suspect struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Role       string `json:"role,omitempty"`
	Occupation string `json:"occupation,omitempty"`
	Appearance string `json:"appearance,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

type StatementEntry struct {
	ID   string   `json:"id"`
	Text string   `json:"text"`
	Tags []string `json:"tags"`
}

// QuizQuestion carries the rendered correct answer. It must never cross the
// boundary to a client before reveal; that is the transport's duty.
type QuizQuestion struct {
	ID         string   `json:"id"`
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	Answer     string   `json:"answer"`
	Difficulty string   `json:"difficulty,omitempty"`
	Tags       []string `json:"tags"`
}

type Solution struct {
	Summary string   `json:"summary"`
	Details []string `json:"details"`
	Tags    []string `json:"tags"`
}

// Case is one generated instance of a story. Immutable once returned;
// sessions decorate copies of the store entries but never write back.
type Case struct {
	Seed         int64             `json:"seed"`
	StoryID      string            `json:"storyId"`
	StoryTitle   string            `json:"storyTitle"`
	StoryIndex   int               `json:"storyIndex"`
	TotalStories int               `json:"totalStories"`
	Tags         []string          `json:"tags"`
	Metadata     map[string]string `json:"metadata"`
	Difficulty   string            `json:"difficulty"`

	Context Context `json:"-"`

	Narrative        string           `json:"narrative"`
	DescriptionBeats []Beat           `json:"descriptionBeats"`
	MicroEvents      []MicroEvent     `json:"microEvents"`
	Victim           map[string]any   `json:"victim"`
	Location         string           `json:"location"`
	TimeWindow       string           `json:"timeWindow"`
	Suspects         []Suspect        `json:"suspects"`
	InitialClues     []Clue           `json:"initialClues"`
	StoreClues       []StoreOffer     `json:"storeClues"`
	StatementEntries []StatementEntry `json:"statementEntries"`
	Quiz             []QuizQuestion   `json:"quiz"`
	Solution         Solution         `json:"solution"`
}

// Generate produces a case from the pool's story at storyIndex. A nil seed
// derives one from the clock; reproducibility is only guaranteed when the
// caller supplies the seed. Unknown difficulty falls back to medium.
//
// Every random decision draws from one shared stream in a fixed order:
// context build, store-group shuffles in canonical category order, clue
// subsampling, quiz subsampling. Reordering the pipeline breaks seed
// reproducibility.
func Generate(pool *story.Pool, storyIndex int, difficulty string, seed *int64) (*Case, error) {
	s, ok := pool.Story(storyIndex)
	if !ok {
		return nil, errors.Wrap(ErrStoryNotFound, "generate case", slog.Int("storyIndex", storyIndex))
	}

	settings, ok := difficultyConfig[difficulty]
	if !ok {
		difficulty = DifficultyMedium
		settings = difficultyConfig[DifficultyMedium]
	}

	effectiveSeed := random.NewSeed()
	if seed != nil {
		effectiveSeed = *seed
	}
	stream := random.NewStream(effectiveSeed)
	context := BuildContext(s.Variables, stream)

	beats := renderBeats(s.Templates.DescriptionBeats, context)
	microEvents := renderMicroEvents(s.Templates.MicroEvents, context)
	initialClues := renderClues(s.Templates.InitialClues, context)
	initialFromStore, storeOffers, overflow := assembleStore(s.Templates.StoreClues, context, stream)

	candidates := make([]Clue, 0, len(initialClues)+len(initialFromStore)+len(overflow)+len(microEvents))
	candidates = append(candidates, initialClues...)
	candidates = append(candidates, initialFromStore...)
	candidates = append(candidates, overflow...)
	for _, event := range microEvents {
		title := event.Title
		if title == "" {
			title = "Micro Event"
		}
		candidates = append(candidates, Clue{
			ID:    event.ID,
			Title: title,
			Text:  event.Text,
			Tags:  event.Tags,
			Phase: event.Phase,
		})
	}
	selectedClues := subsampleClues(candidates, settings.clueMultiplier, stream)

	statementEntries := renderStatementEntries(s.Templates.StatementEntries, context)
	quiz := selectQuiz(s.Templates.QuizQuestions, settings.quizRatio, context, stream)
	solution := Solution{
		Summary: Render(s.Templates.Solution.Summary, context),
		Details: renderAll(s.Templates.Solution.Details, context),
		Tags:    s.Templates.Solution.Tags,
	}

	narrative := make([]string, len(beats))
	for i, beat := range beats {
		narrative[i] = beat.Text
	}

	return &Case{
		Seed:             effectiveSeed,
		StoryID:          s.ID,
		StoryTitle:       s.Title,
		StoryIndex:       storyIndex,
		TotalStories:     pool.Len(),
		Tags:             s.Tags,
		Metadata:         s.Metadata,
		Difficulty:       difficulty,
		Context:          context,
		Narrative:        strings.Join(narrative, " "),
		DescriptionBeats: beats,
		MicroEvents:      microEvents,
		Victim:           contextObject(context, "victim"),
		Location:         lookupString(context, "locationMain"),
		TimeWindow:       lookupString(context, "timeWindow"),
		Suspects:         extractSuspects(context),
		InitialClues:     selectedClues,
		StoreClues:       storeOffers,
		StatementEntries: statementEntries,
		Quiz:             quiz,
		Solution:         solution,
	}, nil
}

func renderBeats(beats []story.Beat, context Context) []Beat {
	rendered := make([]Beat, len(beats))
	for i, beat := range beats {
		rendered[i] = Beat{ID: beat.ID, Text: Render(beat.Text, context)}
	}
	return rendered
}

// renderMicroEvents flattens the phase-keyed event map. Phases are visited in
// sorted order to keep the output order fixed.
func renderMicroEvents(events map[string][]story.MicroEvent, context Context) []MicroEvent {
	phases := make([]string, 0, len(events))
	for phase := range events {
		phases = append(phases, phase)
	}
	sort.Strings(phases)

	var rendered []MicroEvent
	for _, phase := range phases {
		for _, event := range events[phase] {
			rendered = append(rendered, MicroEvent{
				ID:    event.ID,
				Title: event.Title,
				Text:  Render(event.Text, context),
				Tags:  event.Tags,
				Phase: phase,
			})
		}
	}
	return rendered
}

func renderClues(clues []story.Clue, context Context) []Clue {
	rendered := make([]Clue, len(clues))
	for i, clue := range clues {
		rendered[i] = Clue{
			ID:    clue.ID,
			Title: clue.Title,
			Text:  Render(clue.Text, context),
			Tags:  clue.Tags,
		}
	}
	return rendered
}

func renderStatementEntries(entries []story.StatementEntry, context Context) []StatementEntry {
	rendered := make([]StatementEntry, len(entries))
	for i, entry := range entries {
		rendered[i] = StatementEntry{ID: entry.ID, Text: Render(entry.Text, context), Tags: entry.Tags}
	}
	return rendered
}

func renderAll(texts []string, context Context) []string {
	rendered := make([]string, len(texts))
	for i, text := range texts {
		rendered[i] = Render(text, context)
	}
	return rendered
}

// assembleStore partitions the store candidates. Initial-flagged entries join
// the initial clues directly. The rest group by normalized category; each
// group shuffles on the shared stream and its first entry becomes the sole
// visible offer, the remainder overflow into the initial-clue candidates.
// Groups are visited in the canonical category order so the stream
// consumption is fixed.
func assembleStore(
	entries []story.StoreClue, context Context, stream *random.Stream,
) (initial []Clue, offers []StoreOffer, overflow []Clue) {
	grouped := map[string][]Clue{}
	for _, entry := range entries {
		clue := Clue{
			ID:    entry.Clue.ID,
			Title: entry.Clue.Title,
			Text:  Render(entry.Clue.Text, context),
			Tags:  entry.Clue.Tags,
		}

		if entry.Initial || entry.Clue.Initial {
			initial = append(initial, clue)
			continue
		}

		category := normalizeCategory(entry.Category)
		grouped[category] = append(grouped[category], clue)
	}

	for _, category := range append(append([]string{}, coreCategories...), otherCategory) {
		group, ok := grouped[category]
		if !ok {
			continue
		}
		shuffled := random.Shuffle(stream, group)
		offers = append(offers, StoreOffer{
			Category: displayCategory(category),
			Clue:     shuffled[0],
		})
		overflow = append(overflow, shuffled[1:]...)
	}
	return initial, offers, overflow
}

func normalizeCategory(category string) string {
	normalized := strings.ToLower(category)
	for _, core := range coreCategories {
		if normalized == core {
			return normalized
		}
	}
	return otherCategory
}

func displayCategory(category string) string {
	if category == otherCategory {
		return "OTHER"
	}
	return strings.ToUpper(category[:1]) + category[1:]
}

// subsampleClues keeps count = max(1, round(len*multiplier)) clues via the
// shuffle-and-slice pattern. The stream is only consumed when an actual
// shuffle happens, matching the generation contract.
func subsampleClues(clues []Clue, multiplier float64, stream *random.Stream) []Clue {
	if multiplier >= 1 || len(clues) <= 1 {
		return clues
	}
	count := roundHalfUp(float64(len(clues)) * multiplier)
	if count < 1 {
		count = 1
	}
	if count >= len(clues) {
		return clues
	}
	return random.Shuffle(stream, clues)[:count]
}

// selectQuiz always keeps questions tagged quiz:final in full and orders them
// last; the rest subsample by the difficulty ratio.
func selectQuiz(
	questions []story.QuizQuestion, ratio float64, context Context, stream *random.Stream,
) []QuizQuestion {
	if len(questions) == 0 {
		return []QuizQuestion{}
	}

	var finals, others []story.QuizQuestion
	for _, question := range questions {
		if hasTag(question.Tags, story.TagFinal) {
			finals = append(finals, question)
		} else {
			others = append(others, question)
		}
	}

	selected := others
	if ratio < 1 {
		count := roundHalfUp(float64(len(others)) * ratio)
		if count < 1 {
			count = 1
		}
		shuffled := random.Shuffle(stream, others)
		if count > len(shuffled) {
			count = len(shuffled)
		}
		selected = shuffled[:count]
	}

	rendered := make([]QuizQuestion, 0, len(selected)+len(finals))
	for _, question := range selected {
		rendered = append(rendered, renderQuestion(question, context))
	}
	for _, question := range finals {
		rendered = append(rendered, renderQuestion(question, context))
	}
	return rendered
}

func renderQuestion(question story.QuizQuestion, context Context) QuizQuestion {
	return QuizQuestion{
		ID:         question.ID,
		Question:   Render(question.Question, context),
		Options:    renderAll(question.Options, context),
		Answer:     Render(question.Answer, context),
		Difficulty: question.Difficulty,
		Tags:       question.Tags,
	}
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// extractSuspects flattens the context's suspect map into a list ordered by
// key, the key becoming the suspect id.
func extractSuspects(context Context) []Suspect {
	suspectsValue, ok := context["suspects"].(map[string]any)
	if !ok {
		return []Suspect{}
	}
	suspects := make([]Suspect, 0, len(suspectsValue))
	for _, id := range sortedKeys(suspectsValue) {
		fields, ok := suspectsValue[id].(map[string]any)
		if !ok {
			continue
		}
		suspects = append(suspects, Suspect{
			ID:         id,
			Name:       fieldString(fields, "name"),
			Role:       fieldString(fields, "role"),
			Occupation: fieldString(fields, "occupation"),
			Appearance: fieldString(fields, "appearance"),
			Notes:      fieldString(fields, "notes"),
		})
	}
	return suspects
}

func contextObject(context Context, key string) map[string]any {
	object, _ := context[key].(map[string]any)
	return object
}

func fieldString(fields map[string]any, key string) string {
	value, _ := fields[key].(string)
	return value
}

// roundHalfUp matches the rounding of the original engine: halves round up.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
