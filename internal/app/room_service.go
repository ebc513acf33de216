package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-room-service/internal/domain"
)

// DefaultTimePerQuestion applies when a start request omits the duration.
const DefaultTimePerQuestion = 30 * time.Second

const publishTimeout = 5 * time.Second

// RoomRepository abstracts where live rooms are registered (in-memory, Redis-marked, etc).
type RoomRepository interface {
	GetOrCreate(code string) (*Room, bool)
	Get(code string) (*Room, bool)
	DeleteIfEmpty(code string) bool
}

// QuizRepository loads and stores generated quiz content.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// Generator produces question records for a topic.
type Generator interface {
	Generate(ctx context.Context, topic string, count int) ([]domain.Question, error)
}

// OwnerTokens issues and verifies room-owner credentials.
type OwnerTokens interface {
	Issue(roomCode string) (token string, tokenID string, err error)
	Verify(token, roomCode string) (tokenID string, err error)
}

// ResultPublisher ships final standings to downstream consumers.
type ResultPublisher interface {
	PublishStandings(ctx context.Context, standings domain.Standings) error
}

// Option configures optional collaborators of a RoomService.
type Option func(*RoomService)

// WithGenerator wires the quiz content generator.
func WithGenerator(g Generator) Option {
	return func(s *RoomService) { s.generator = g }
}

// WithPublisher wires a results publisher.
func WithPublisher(p ResultPublisher) Option {
	return func(s *RoomService) { s.publisher = p }
}

// RoomService coordinates membership, progression and scoring for all rooms.
type RoomService struct {
	rooms     RoomRepository
	quizzes   QuizRepository
	tokens    OwnerTokens
	settings  Settings
	generator Generator
	publisher ResultPublisher

	mu    sync.Mutex
	conns map[string]string // connectionID -> room code
}

func NewRoomService(rooms RoomRepository, quizzes QuizRepository, tokens OwnerTokens, settings Settings, opts ...Option) *RoomService {
	s := &RoomService{
		rooms:    rooms,
		quizzes:  quizzes,
		tokens:   tokens,
		settings: settings,
		conns:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// JoinResult is what a connection learns when it joins a room.
type JoinResult struct {
	ConnectionID string
	RoomCode     string
	Roster       domain.Roster
	Events       <-chan domain.Event
	Rejoined     bool
	IsOwner      bool
	OwnerToken   string
}

// Join attaches a connection to a room, creating the room if it does not exist yet.
// A connection belongs to at most one room; joining another room leaves the previous one.
func (s *RoomService) Join(ctx context.Context, code, connID, displayName string) (JoinResult, error) {
	code = strings.TrimSpace(code)
	displayName = strings.TrimSpace(displayName)
	if code == "" || displayName == "" || connID == "" {
		return JoinResult{}, domain.ErrInvalidJoin
	}

	if previous, ok := s.roomOf(connID); ok && previous != code {
		s.Leave(ctx, connID)
	}

	var token, tokenID string
	if displayName == s.settings.InstructorName {
		var err error
		token, tokenID, err = s.tokens.Issue(code)
		if err != nil {
			return JoinResult{}, fmt.Errorf("issue owner token: %w", err)
		}
	}

	for {
		room, created := s.rooms.GetOrCreate(code)
		if created {
			log.Printf("room %s created", code)
		}
		out, err := room.join(connID, displayName, tokenID)
		if errors.Is(err, errRoomClosed) {
			continue
		}
		if err != nil {
			return JoinResult{}, err
		}

		s.mu.Lock()
		s.conns[connID] = code
		s.mu.Unlock()

		if !out.rejoined {
			log.Printf("room %s: %s joined as %q", code, connID, displayName)
		}
		result := JoinResult{
			ConnectionID: connID,
			RoomCode:     code,
			Roster:       out.roster,
			Events:       out.events,
			Rejoined:     out.rejoined,
			IsOwner:      out.isOwner,
		}
		if out.claimed {
			result.OwnerToken = token
		}
		return result, nil
	}
}

// Leave detaches a connection from its room and drops the room once empty.
func (s *RoomService) Leave(_ context.Context, connID string) {
	s.mu.Lock()
	code, ok := s.conns[connID]
	delete(s.conns, connID)
	s.mu.Unlock()
	if !ok {
		return
	}

	room, ok := s.rooms.Get(code)
	if !ok {
		return
	}
	if _, removed := room.leave(connID); removed {
		log.Printf("room %s: %s left", code, connID)
	}
	if s.rooms.DeleteIfEmpty(code) {
		log.Printf("room %s deleted", code)
	}
}

// RoomOf reports which room a connection is joined to.
func (s *RoomService) RoomOf(connID string) (string, bool) {
	return s.roomOf(connID)
}

func (s *RoomService) roomOf(connID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.conns[connID]
	return code, ok
}

// StartRequest carries the instructor's start-game parameters.
// Inline questions take precedence over QuizID.
type StartRequest struct {
	RoomCode        string
	OwnerToken      string
	QuizID          string
	Questions       []domain.Question
	TimePerQuestion time.Duration
}

// Start moves a Lobby room onto its first question.
func (s *RoomService) Start(ctx context.Context, req StartRequest) (domain.QuestionPush, error) {
	room, tokenID, err := s.ownedRoom(req.RoomCode, req.OwnerToken)
	if err != nil {
		return domain.QuestionPush{}, err
	}

	questions, err := s.resolveQuestions(ctx, req)
	if err != nil {
		return domain.QuestionPush{}, err
	}

	timePerQuestion := req.TimePerQuestion
	if timePerQuestion <= 0 {
		timePerQuestion = DefaultTimePerQuestion
	}

	push, err := room.start(tokenID, questions, timePerQuestion)
	if err != nil {
		return domain.QuestionPush{}, err
	}
	log.Printf("room %s: started with %d questions, %s each", req.RoomCode, len(questions), timePerQuestion)
	return push, nil
}

func (s *RoomService) resolveQuestions(ctx context.Context, req StartRequest) ([]domain.Question, error) {
	if len(req.Questions) > 0 {
		questions := assignQuestionIDs(req.Questions)
		if err := domain.ValidateQuestions(questions); err != nil {
			return nil, err
		}
		return questions, nil
	}
	if req.QuizID == "" {
		return nil, domain.ErrNoQuestions
	}
	quiz, err := s.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return quiz.Questions, nil
}

// Transition is the outcome of advancing a room. Both fields are nil when the
// room was already complete.
type Transition struct {
	Question  *domain.QuestionPush
	Standings *domain.Standings
}

// Advance moves to the next question, or completes the quiz after the last one.
func (s *RoomService) Advance(ctx context.Context, code, ownerToken string) (Transition, error) {
	room, tokenID, err := s.ownedRoom(code, ownerToken)
	if err != nil {
		return Transition{}, err
	}
	t, err := room.advance(tokenID)
	if err != nil {
		return Transition{}, err
	}
	if t.push != nil {
		log.Printf("room %s: question %d/%d", code, t.push.QuestionIndex+1, t.push.TotalQuestions)
	}
	if t.standings != nil {
		s.finish(ctx, *t.standings)
	}
	return Transition{Question: t.push, Standings: t.standings}, nil
}

// Complete ends the quiz immediately. It returns nil standings if the room was already complete.
func (s *RoomService) Complete(ctx context.Context, code, ownerToken string) (*domain.Standings, error) {
	room, tokenID, err := s.ownedRoom(code, ownerToken)
	if err != nil {
		return nil, err
	}
	standings, err := room.complete(tokenID)
	if err != nil {
		return nil, err
	}
	if standings != nil {
		s.finish(ctx, *standings)
	}
	return standings, nil
}

// Reveal closes the current question and broadcasts its answer.
func (s *RoomService) Reveal(_ context.Context, code, ownerToken string) (*domain.Reveal, error) {
	room, tokenID, err := s.ownedRoom(code, ownerToken)
	if err != nil {
		return nil, err
	}
	return room.reveal(tokenID)
}

// ResendQuestion re-broadcasts the current question as tracked by the room.
func (s *RoomService) ResendQuestion(_ context.Context, code, ownerToken string) (domain.QuestionPush, error) {
	room, tokenID, err := s.ownedRoom(code, ownerToken)
	if err != nil {
		return domain.QuestionPush{}, err
	}
	return room.resend(tokenID)
}

// Submission is a participant's answer to the current question.
type Submission struct {
	QuestionIndex *int
	OptionIndex   int
}

// SubmitAnswer scores a submission server-side and broadcasts the updated roster.
func (s *RoomService) SubmitAnswer(_ context.Context, code, connID string, sub Submission) (domain.AnswerResult, error) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return domain.AnswerResult{}, domain.ErrRoomNotFound
	}
	return room.submit(connID, sub.QuestionIndex, sub.OptionIndex)
}

// Snapshot summarizes a live room.
func (s *RoomService) Snapshot(_ context.Context, code string) (domain.RoomSnapshot, error) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return domain.RoomSnapshot{}, domain.ErrRoomNotFound
	}
	return room.snapshot(), nil
}

// GenerateQuiz asks the generator for questions, validates them as a whole and stores the quiz.
func (s *RoomService) GenerateQuiz(ctx context.Context, topic string, count int) (domain.Quiz, error) {
	if s.generator == nil {
		return domain.Quiz{}, errors.New("quiz generator not configured")
	}
	questions, err := s.generator.Generate(ctx, topic, count)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("generate quiz: %w", err)
	}
	questions = assignQuestionIDs(questions)
	if err := domain.ValidateQuestions(questions); err != nil {
		return domain.Quiz{}, err
	}

	quiz := domain.Quiz{
		ID:        uuid.NewString(),
		Topic:     topic,
		Questions: questions,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.quizzes.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	log.Printf("quiz %s generated: %d questions about %q", quiz.ID, len(questions), topic)
	return quiz, nil
}

func (s *RoomService) ownedRoom(code, ownerToken string) (*Room, string, error) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return nil, "", domain.ErrRoomNotFound
	}
	tokenID, err := s.tokens.Verify(ownerToken, code)
	if err != nil {
		return nil, "", domain.ErrNotOwner
	}
	return room, tokenID, nil
}

func (s *RoomService) finish(ctx context.Context, standings domain.Standings) {
	log.Printf("room %s: quiz complete, %d ranked players", standings.RoomCode, len(standings.Leaderboard))
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishStandings(pubCtx, standings); err != nil {
		log.Printf("room %s: publish standings failed: %v", standings.RoomCode, err)
	}
}

func assignQuestionIDs(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
	}
	return out
}
