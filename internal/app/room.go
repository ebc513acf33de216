package app

import (
	"errors"
	"log"
	"sync"
	"time"

	"quiz-room-service/internal/domain"
)

// subscriberBuffer bounds each connection's pending broadcasts.
const subscriberBuffer = 32

// errRoomClosed is returned by a room that was retired from the registry
// between lookup and mutation; callers fetch a fresh room and retry.
var errRoomClosed = errors.New("room closed")

// Settings are the per-process session rules shared by every room.
type Settings struct {
	InstructorName  string
	PointsPerAnswer int
	EnforceDeadline bool
	DeadlineGrace   time.Duration
}

// DefaultSettings mirrors the classroom defaults.
func DefaultSettings() Settings {
	return Settings{
		InstructorName:  "Instructor",
		PointsPerAnswer: 1000,
		DeadlineGrace:   2 * time.Second,
	}
}

// Room is the in-memory state of one quiz session. All mutation happens under mu,
// and every broadcast is fanned out while mu is held so subscribers observe
// transitions in the order they were applied.
type Room struct {
	code     string
	settings Settings
	now      func() time.Time

	mu              sync.Mutex
	closed          bool
	order           []string
	participants    map[string]*domain.Participant
	subscribers     map[string]chan domain.Event
	questions       []domain.Question
	current         int
	timePerQuestion time.Duration
	phase           domain.Phase
	answered        map[string]struct{}
	ownerConn       string
	ownerTokenID    string
	deadline        *time.Timer
}

// NewRoom creates an empty Lobby room.
func NewRoom(code string, settings Settings) *Room {
	return NewRoomWithClock(code, settings, time.Now)
}

// NewRoomWithClock stamps joins and score updates with now.
func NewRoomWithClock(code string, settings Settings, now func() time.Time) *Room {
	return &Room{
		code:         code,
		settings:     settings,
		now:          now,
		participants: make(map[string]*domain.Participant),
		subscribers:  make(map[string]chan domain.Event),
		answered:     make(map[string]struct{}),
		current:      -1,
		phase:        domain.PhaseLobby,
	}
}

// RoomFactory returns a constructor for registries.
func RoomFactory(settings Settings) func(code string) *Room {
	return func(code string) *Room {
		return NewRoom(code, settings)
	}
}

// Code returns the room's key.
func (r *Room) Code() string { return r.code }

// IsEmpty reports whether the room has no participants.
func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order) == 0
}

// CloseIfEmpty retires an empty room so no further joins land in it.
// Registries call it before dropping the room from their map.
func (r *Room) CloseIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.order) > 0 {
		return false
	}
	r.closed = true
	r.stopDeadlineLocked()
	return true
}

type joinOutcome struct {
	roster   domain.Roster
	events   <-chan domain.Event
	rejoined bool
	isOwner  bool
	claimed  bool
}

// join adds a participant; rejoining with the same connection is idempotent.
// ownerTokenID is recorded when an instructor join claims an unowned room.
func (r *Room) join(connID, displayName, ownerTokenID string) (joinOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return joinOutcome{}, errRoomClosed
	}

	out := joinOutcome{}
	if _, ok := r.participants[connID]; ok {
		out.rejoined = true
	} else {
		now := r.now()
		r.participants[connID] = &domain.Participant{
			ConnectionID: connID,
			DisplayName:  displayName,
			JoinedAt:     now,
			LastUpdated:  now,
		}
		r.order = append(r.order, connID)
		r.subscribers[connID] = make(chan domain.Event, subscriberBuffer)
	}

	if ownerTokenID != "" && r.ownerConn == "" && r.participants[connID].DisplayName == r.settings.InstructorName {
		r.ownerConn = connID
		r.ownerTokenID = ownerTokenID
		out.claimed = true
	}
	out.isOwner = r.ownerConn == connID
	out.events = r.subscribers[connID]
	out.roster = r.rosterLocked()
	if !out.rejoined || out.claimed {
		r.broadcastLocked(domain.Event{Type: domain.EventPlayersUpdated, Payload: out.roster})
	}
	return out, nil
}

// leave removes a participant and closes its event channel.
func (r *Room) leave(connID string) (domain.Roster, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participants[connID]; !ok {
		return r.rosterLocked(), false
	}
	delete(r.participants, connID)
	delete(r.answered, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if ch, ok := r.subscribers[connID]; ok {
		delete(r.subscribers, connID)
		close(ch)
	}
	if r.ownerConn == connID {
		r.ownerConn = ""
		r.ownerTokenID = ""
	}

	roster := r.rosterLocked()
	r.broadcastLocked(domain.Event{Type: domain.EventPlayersUpdated, Payload: roster})
	return roster, true
}

func (r *Room) authorizeLocked(tokenID string) error {
	if tokenID == "" || r.ownerTokenID == "" || tokenID != r.ownerTokenID {
		return domain.ErrNotOwner
	}
	return nil
}

func (r *Room) start(tokenID string, questions []domain.Question, timePerQuestion time.Duration) (domain.QuestionPush, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeLocked(tokenID); err != nil {
		return domain.QuestionPush{}, err
	}
	if r.phase != domain.PhaseLobby {
		return domain.QuestionPush{}, domain.ErrInvalidPhase
	}
	if len(questions) == 0 {
		return domain.QuestionPush{}, domain.ErrNoQuestions
	}

	r.questions = make([]domain.Question, len(questions))
	copy(r.questions, questions)
	r.timePerQuestion = timePerQuestion
	return r.enterQuestionLocked(0), nil
}

// transition is the result of an advance: either the next question or the final standings.
type transition struct {
	push      *domain.QuestionPush
	standings *domain.Standings
}

func (r *Room) advance(tokenID string) (transition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeLocked(tokenID); err != nil {
		return transition{}, err
	}
	switch r.phase {
	case domain.PhaseComplete:
		return transition{}, nil
	case domain.PhaseLobby:
		return transition{}, domain.ErrInvalidPhase
	}

	if r.current+1 < len(r.questions) {
		push := r.enterQuestionLocked(r.current + 1)
		return transition{push: &push}, nil
	}
	standings := r.completeLocked()
	return transition{standings: &standings}, nil
}

// complete ends the quiz from any phase; a completed room is left untouched.
func (r *Room) complete(tokenID string) (*domain.Standings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeLocked(tokenID); err != nil {
		return nil, err
	}
	if r.phase == domain.PhaseComplete {
		return nil, nil
	}
	standings := r.completeLocked()
	return &standings, nil
}

func (r *Room) reveal(tokenID string) (*domain.Reveal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeLocked(tokenID); err != nil {
		return nil, err
	}
	switch r.phase {
	case domain.PhaseRevealed:
		return nil, nil
	case domain.PhaseInQuestion:
		reveal := r.revealLocked()
		return &reveal, nil
	default:
		return nil, domain.ErrInvalidPhase
	}
}

// autoReveal fires from the deadline timer and only applies to the question it was armed for.
func (r *Room) autoReveal(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.phase != domain.PhaseInQuestion || r.current != index {
		return
	}
	log.Printf("room %s: deadline reached for question %d", r.code, index)
	r.revealLocked()
}

// resend re-broadcasts the current question; the index owned by the room is authoritative.
func (r *Room) resend(tokenID string) (domain.QuestionPush, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeLocked(tokenID); err != nil {
		return domain.QuestionPush{}, err
	}
	if r.phase != domain.PhaseInQuestion && r.phase != domain.PhaseRevealed {
		return domain.QuestionPush{}, domain.ErrInvalidPhase
	}
	push := r.pushLocked()
	r.broadcastLocked(domain.Event{Type: domain.EventNewQuestion, Payload: push})
	return push, nil
}

// submit scores an answer against the stored correct index.
// A nil questionIndex means "the current question".
func (r *Room) submit(connID string, questionIndex *int, optionIndex int) (domain.AnswerResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	participant, ok := r.participants[connID]
	if !ok {
		return domain.AnswerResult{}, domain.ErrParticipantNotFound
	}
	if r.phase != domain.PhaseInQuestion {
		return domain.AnswerResult{}, domain.ErrInvalidPhase
	}
	if questionIndex != nil && *questionIndex != r.current {
		return domain.AnswerResult{}, domain.ErrInvalidPhase
	}
	question := r.questions[r.current]
	if optionIndex < 0 || optionIndex >= len(question.Options) {
		return domain.AnswerResult{}, domain.ErrOptionOutOfRange
	}
	if _, done := r.answered[connID]; done {
		return domain.AnswerResult{}, domain.ErrAlreadyAnswered
	}
	r.answered[connID] = struct{}{}

	correct := optionIndex == question.CorrectIndex
	awarded := 0
	if correct {
		awarded = r.settings.PointsPerAnswer
		participant.Score += awarded
		participant.LastUpdated = r.now()
	}

	r.broadcastLocked(domain.Event{Type: domain.EventPlayersUpdated, Payload: r.rosterLocked()})
	return domain.AnswerResult{
		QuestionIndex: r.current,
		Correct:       correct,
		Awarded:       awarded,
		TotalScore:    participant.Score,
	}, nil
}

func (r *Room) snapshot() domain.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.RoomSnapshot{
		Code:           r.code,
		Phase:          r.phase,
		PlayerCount:    r.playerCountLocked(),
		QuestionIndex:  r.current,
		TotalQuestions: len(r.questions),
	}
}

func (r *Room) enterQuestionLocked(index int) domain.QuestionPush {
	r.current = index
	r.phase = domain.PhaseInQuestion
	r.answered = make(map[string]struct{})

	push := r.pushLocked()
	r.broadcastLocked(domain.Event{Type: domain.EventNewQuestion, Payload: push})
	r.armDeadlineLocked(index)
	return push
}

func (r *Room) revealLocked() domain.Reveal {
	r.phase = domain.PhaseRevealed
	r.stopDeadlineLocked()
	reveal := domain.Reveal{
		QuestionIndex: r.current,
		CorrectIndex:  r.questions[r.current].CorrectIndex,
		Players:       r.rosterLocked().Players,
	}
	r.broadcastLocked(domain.Event{Type: domain.EventQuestionRevealed, Payload: reveal})
	return reveal
}

func (r *Room) completeLocked() domain.Standings {
	r.phase = domain.PhaseComplete
	r.stopDeadlineLocked()

	participants := make([]domain.Participant, 0, len(r.order))
	for _, id := range r.order {
		participants = append(participants, *r.participants[id])
	}
	standings := domain.Standings{
		RoomCode:       r.code,
		Players:        r.rosterLocked().Players,
		Leaderboard:    domain.Rank(participants, r.settings.InstructorName, r.settings.PointsPerAnswer, len(r.questions)),
		TotalQuestions: len(r.questions),
		CompletedAt:    r.now(),
	}
	r.broadcastLocked(domain.Event{Type: domain.EventQuizComplete, Payload: standings})
	return standings
}

func (r *Room) pushLocked() domain.QuestionPush {
	return domain.QuestionPush{
		QuestionIndex:   r.current,
		TotalQuestions:  len(r.questions),
		TimePerQuestion: int(r.timePerQuestion / time.Second),
		Question:        r.questions[r.current].View(),
	}
}

func (r *Room) armDeadlineLocked(index int) {
	r.stopDeadlineLocked()
	if !r.settings.EnforceDeadline || r.timePerQuestion <= 0 {
		return
	}
	r.deadline = time.AfterFunc(r.timePerQuestion+r.settings.DeadlineGrace, func() {
		r.autoReveal(index)
	})
}

func (r *Room) stopDeadlineLocked() {
	if r.deadline != nil {
		r.deadline.Stop()
		r.deadline = nil
	}
}

func (r *Room) playerCountLocked() int {
	count := 0
	for _, id := range r.order {
		if r.participants[id].DisplayName != r.settings.InstructorName {
			count++
		}
	}
	return count
}

func (r *Room) rosterLocked() domain.Roster {
	players := make([]domain.PlayerEntry, 0, len(r.order))
	for _, id := range r.order {
		p := r.participants[id]
		players = append(players, domain.PlayerEntry{
			ConnectionID: p.ConnectionID,
			DisplayName:  p.DisplayName,
			Score:        p.Score,
		})
	}
	return domain.Roster{
		RoomCode:    r.code,
		Players:     players,
		PlayerCount: r.playerCountLocked(),
	}
}

func (r *Room) broadcastLocked(event domain.Event) {
	for _, id := range r.order {
		ch := r.subscribers[id]
		select {
		case ch <- event:
		default:
			// Slow consumer: drop its oldest pending event. Every event carries a
			// full snapshot, so the next one heals the gap.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}
