// Package session owns the per-session mutable state of one investigation:
// the clue store, the action-point economy, quiz scoring and refunds, and
// story progression. Every transition is atomic with respect to the session;
// a failed operation leaves no partial effects.
package session

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/mjuvonen/truthseeker/internal/casegen"
	"github.com/mjuvonen/truthseeker/internal/errors"
	"github.com/mjuvonen/truthseeker/internal/random"
	"github.com/mjuvonen/truthseeker/internal/story"
)

const (
	// BaseActionPoints is the allotment a fresh investigation starts with.
	BaseActionPoints = 100
	// CostStep prices the Nth clue purchase at N*CostStep.
	CostStep = 10

	sessionIDLength = 24
)

var (
	ErrClueNotFound         = errors.NewSentinel("clue not found in store")
	ErrClueAlreadyPurchased = errors.NewSentinel("clue already purchased")
	ErrQuizAlreadyFinalized = errors.NewSentinel("quiz already finalized")
	ErrMissingAnswers       = errors.NewSentinel("answers required")
	ErrSolutionNotRevealed  = errors.NewSentinel("solution not revealed yet")
	ErrNoMoreStories        = errors.NewSentinel("no more stories")
)

// InsufficientPointsError reports a purchase the balance cannot cover,
// carrying the amounts so the caller can react without retrying blindly.
type InsufficientPointsError struct {
	Required int
	Current  int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient action points: required %d, current %d", e.Required, e.Current)
}

// StoreEntry decorates one purchasable clue with its purchase state.
type StoreEntry struct {
	Category  string       `json:"category"`
	Clue      casegen.Clue `json:"clue"`
	Purchased bool         `json:"purchased"`
	SpentCost int          `json:"spentCost,omitempty"`
}

// Statement is the player-visible aggregation of unlocked clue text.
// Purchased clues append in purchase order and deduplicate by id.
type Statement struct {
	Opening   []casegen.Clue `json:"opening"`
	Initial   []casegen.Clue `json:"initial"`
	Purchased []casegen.Clue `json:"purchased"`
}

type Score struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

type QuestionResult struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
	// UserAnswer is nil when the question was left unanswered.
	UserAnswer    *string `json:"userAnswer"`
	CorrectAnswer string  `json:"correctAnswer"`
}

// PurchaseResult is the outcome of a successful clue purchase.
type PurchaseResult struct {
	Clue            casegen.Clue `json:"clue"`
	ActionPoints    int          `json:"actionPoints"`
	NextAbilityCost int          `json:"nextAbilityCost"`
	SpentCost       int          `json:"spentCost"`
}

// QuizResult is the outcome of finalizing the quiz.
type QuizResult struct {
	Score             Score            `json:"score"`
	Results           []QuestionResult `json:"results"`
	Refund            int              `json:"refund"`
	FinalActionPoints int              `json:"finalActionPoints"`
	RoundSpentPoints  int              `json:"roundSpentPoints"`
}

// Session wraps one generated case with its mutable economy. Operations are
// expected to run one at a time per session; the mutex keeps the background
// sweep and accidental concurrent calls safe rather than enabling parallelism.
type Session struct {
	mu sync.Mutex

	ID string

	pool *story.Pool

	Case           *casegen.Case
	Store          []*StoreEntry
	PurchasedClues []casegen.Clue
	Statement      Statement

	ActionPoints     int
	RoundSpentPoints int

	QuizAnswers      map[string]string
	QuizRevealed     bool
	SolutionRevealed bool

	// storyEntryPoints records the balance each story was entered with, which
	// is what a same-story reset restores for stories past the first.
	storyEntryPoints map[int]int

	CreatedAt    time.Time
	LastAccessed time.Time
}

// New generates a case and wraps it in a fresh session starting with
// startingPoints action points (BaseActionPoints for a new player).
func New(
	pool *story.Pool, storyIndex int, difficulty string, seed *int64, startingPoints int, now time.Time,
) (*Session, error) {
	generated, err := casegen.Generate(pool, storyIndex, difficulty, seed)
	if err != nil {
		return nil, err
	}

	id, err := random.Letters(sessionIDLength)
	if err != nil {
		return nil, errors.Wrap(err, "generate session id")
	}

	s := &Session{
		ID:               id,
		pool:             pool,
		ActionPoints:     startingPoints,
		QuizAnswers:      map[string]string{},
		storyEntryPoints: map[int]int{storyIndex: startingPoints},
		CreatedAt:        now,
		LastAccessed:     now,
	}
	s.installCase(generated)
	return s, nil
}

// installCase swaps in a freshly generated case and clears all per-case state.
// Callers hold the lock or own the session exclusively.
func (s *Session) installCase(generated *casegen.Case) {
	store := make([]*StoreEntry, len(generated.StoreClues))
	for i, offer := range generated.StoreClues {
		store[i] = &StoreEntry{Category: offer.Category, Clue: offer.Clue}
	}

	s.Case = generated
	s.Store = store
	s.PurchasedClues = []casegen.Clue{}
	s.Statement = Statement{
		Opening:   []casegen.Clue{},
		Initial:   generated.InitialClues,
		Purchased: []casegen.Clue{},
	}
	s.RoundSpentPoints = 0
	s.QuizAnswers = map[string]string{}
	s.QuizRevealed = false
	s.SolutionRevealed = false
}

// Snapshot is a consistent read of the session state for rendering.
type Snapshot struct {
	ID               string
	Case             *casegen.Case
	Store            []StoreEntry
	PurchasedClues   []casegen.Clue
	Statement        Statement
	ActionPoints     int
	NextAbilityCost  int
	QuizRevealed     bool
	SolutionRevealed bool
}

// Snapshot copies the state a client view needs under the lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := make([]StoreEntry, len(s.Store))
	for i, entry := range s.Store {
		store[i] = *entry
	}
	return Snapshot{
		ID:               s.ID,
		Case:             s.Case,
		Store:            store,
		PurchasedClues:   slices.Clone(s.PurchasedClues),
		Statement:        s.Statement,
		ActionPoints:     s.ActionPoints,
		NextAbilityCost:  s.nextCost(),
		QuizRevealed:     s.QuizRevealed,
		SolutionRevealed: s.SolutionRevealed,
	}
}

// QuizScore recounts the finalized answers. The second return is false until
// the quiz has been finalized.
func (s *Session) QuizScore() (Score, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.QuizRevealed {
		return Score{}, false
	}
	score := Score{Total: len(s.Case.Quiz)}
	for _, question := range s.Case.Quiz {
		if s.QuizAnswers[question.ID] == question.Answer {
			score.Correct++
		}
	}
	return score, true
}

// NextCost quotes the cost of the next purchase.
func (s *Session) NextCost() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextCost()
}

func (s *Session) nextCost() int {
	return (len(s.PurchasedClues) + 1) * CostStep
}

// PurchaseClue buys the identified store clue. The Nth purchase costs
// N*CostStep. On failure the session is left untouched.
func (s *Session) PurchaseClue(clueID string) (*PurchaseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *StoreEntry
	for _, entry := range s.Store {
		if entry.Clue.ID == clueID {
			target = entry
			break
		}
	}
	if target == nil {
		return nil, ErrClueNotFound
	}
	if target.Purchased {
		return nil, ErrClueAlreadyPurchased
	}

	cost := s.nextCost()
	if s.ActionPoints < cost {
		return nil, &InsufficientPointsError{Required: cost, Current: s.ActionPoints}
	}

	target.Purchased = true
	target.SpentCost = cost
	s.PurchasedClues = append(s.PurchasedClues, target.Clue)
	s.mergePurchasedClue(target.Clue)
	s.ActionPoints = max(0, s.ActionPoints-cost)
	s.RoundSpentPoints += cost

	return &PurchaseResult{
		Clue:            target.Clue,
		ActionPoints:    s.ActionPoints,
		NextAbilityCost: s.nextCost(),
		SpentCost:       cost,
	}, nil
}

// mergePurchasedClue appends the clue to the statement unless an entry with
// the same id is already present.
func (s *Session) mergePurchasedClue(clue casegen.Clue) {
	for _, existing := range s.Statement.Purchased {
		if existing.ID == clue.ID {
			return
		}
	}
	s.Statement.Purchased = append(s.Statement.Purchased, clue)
}

// FinalizeQuiz scores the submitted answers by exact string match and refunds
// a share of this round's spend proportional to accuracy. A session's quiz
// finalizes at most once per case.
func (s *Session) FinalizeQuiz(answers map[string]string) (*QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.QuizRevealed {
		return nil, ErrQuizAlreadyFinalized
	}
	if answers == nil {
		return nil, ErrMissingAnswers
	}

	questions := s.Case.Quiz
	score := Score{Total: len(questions)}
	results := make([]QuestionResult, len(questions))
	for i, question := range questions {
		answer, answered := answers[question.ID]
		correct := answered && answer == question.Answer
		if correct {
			score.Correct++
		}
		var userAnswer *string
		if answered {
			userAnswer = &answer
		}
		results[i] = QuestionResult{
			QuestionID:    question.ID,
			Correct:       correct,
			UserAnswer:    userAnswer,
			CorrectAnswer: question.Answer,
		}
	}

	refund := 0
	if score.Total > 0 && s.RoundSpentPoints > 0 {
		ratio := math.Min(1, math.Max(0, float64(score.Correct)/float64(score.Total)))
		refund = int(math.Floor(float64(s.RoundSpentPoints)*ratio + 0.5))
	}

	roundSpent := s.RoundSpentPoints
	s.ActionPoints += refund
	s.RoundSpentPoints = 0
	s.QuizAnswers = answers
	s.QuizRevealed = true

	return &QuizResult{
		Score:             score,
		Results:           results,
		Refund:            refund,
		FinalActionPoints: s.ActionPoints,
		RoundSpentPoints:  roundSpent,
	}, nil
}

// RevealSolution marks the solution revealed and returns it. Idempotent.
func (s *Session) RevealSolution() casegen.Solution {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SolutionRevealed = true
	return s.Case.Solution
}

// Solution returns the solution once revealed.
func (s *Session) Solution() (casegen.Solution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.SolutionRevealed {
		return casegen.Solution{}, ErrSolutionNotRevealed
	}
	return s.Case.Solution, nil
}

// ResetCase regenerates the current story with a fresh seed and optional new
// difficulty. The first story always restarts at the base allotment; later
// stories restart at the balance they were entered with, so a restart keeps
// the carried-over economy.
func (s *Session) ResetCase(difficulty string, seed *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if difficulty == "" {
		difficulty = s.Case.Difficulty
	}
	storyIndex := s.Case.StoryIndex

	generated, err := casegen.Generate(s.pool, storyIndex, difficulty, seed)
	if err != nil {
		return err
	}

	resetPoints := BaseActionPoints
	if storyIndex != 0 {
		if entry, ok := s.storyEntryPoints[storyIndex]; ok {
			resetPoints = entry
		} else {
			resetPoints = s.ActionPoints
		}
	}

	s.installCase(generated)
	s.ActionPoints = resetPoints
	return nil
}

// AdvanceStory moves to the next story, carrying the action-point balance
// forward unchanged and recording it as the new story's entry value. Fails
// with ErrNoMoreStories past the final story; it never wraps around.
func (s *Session) AdvanceStory() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.Case.StoryIndex + 1
	if nextIndex >= s.pool.Len() {
		return ErrNoMoreStories
	}

	generated, err := casegen.Generate(s.pool, nextIndex, s.Case.Difficulty, nil)
	if err != nil {
		return err
	}

	s.installCase(generated)
	s.storyEntryPoints[nextIndex] = s.ActionPoints
	return nil
}

// Touch refreshes the idle timestamp.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastAccessed = now
}

// IdleSince reports the last access time.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastAccessed
}
