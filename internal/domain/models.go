package domain

import "time"

// Phase is the progression state of a room.
type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseInQuestion Phase = "in_question"
	PhaseRevealed   Phase = "revealed"
	PhaseComplete   Phase = "complete"
)

// Participant is a live connection joined to a room.
type Participant struct {
	ConnectionID string
	DisplayName  string
	Score        int
	JoinedAt     time.Time
	LastUpdated  time.Time
}

// PlayerEntry is the wire view of a participant in roster broadcasts.
type PlayerEntry struct {
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName"`
	Score        int    `json:"score"`
}

// Roster is a full membership snapshot in join order.
type Roster struct {
	RoomCode    string        `json:"roomCode"`
	Players     []PlayerEntry `json:"players"`
	PlayerCount int           `json:"playerCount"` // excludes the instructor
}

// Question models a multiple-choice question with a single correct option.
type Question struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Difficulty   string   `json:"difficulty,omitempty"`
}

// QuestionView is what learners receive; it never carries the correct index.
type QuestionView struct {
	ID         string   `json:"id"`
	Prompt     string   `json:"prompt"`
	Options    []string `json:"options"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// View strips the answer from a question.
func (q Question) View() QuestionView {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return QuestionView{
		ID:         q.ID,
		Prompt:     q.Prompt,
		Options:    options,
		Difficulty: q.Difficulty,
	}
}

// Quiz is an ordered, immutable set of generated questions.
type Quiz struct {
	ID        string     `json:"id"`
	Topic     string     `json:"topic,omitempty"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"createdAt"`
}

// LeaderboardEntry is a ranked participant in the final standings.
type LeaderboardEntry struct {
	Rank         int    `json:"rank"`
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName"`
	Score        int    `json:"score"`
	Percent      int    `json:"percent"`
}

// QuestionPush announces the current question to a room.
type QuestionPush struct {
	QuestionIndex   int          `json:"questionIndex"`
	TotalQuestions  int          `json:"totalQuestions"`
	TimePerQuestion int          `json:"timePerQuestion"` // seconds
	Question        QuestionView `json:"question"`
}

// Reveal closes a question and publishes its answer.
type Reveal struct {
	QuestionIndex int           `json:"questionIndex"`
	CorrectIndex  int           `json:"correctIndex"`
	Players       []PlayerEntry `json:"players"`
}

// Standings is the final snapshot broadcast when a quiz completes.
type Standings struct {
	RoomCode       string             `json:"roomCode"`
	Players        []PlayerEntry      `json:"players"`
	Leaderboard    []LeaderboardEntry `json:"leaderboard"`
	TotalQuestions int                `json:"totalQuestions"`
	CompletedAt    time.Time          `json:"completedAt"`
}

// AnswerResult is returned privately to the submitting connection.
type AnswerResult struct {
	QuestionIndex int  `json:"questionIndex"`
	Correct       bool `json:"correct"`
	Awarded       int  `json:"awarded"`
	TotalScore    int  `json:"totalScore"`
}

// RoomSnapshot is a read-only summary of a room.
type RoomSnapshot struct {
	Code           string `json:"code"`
	Phase          Phase  `json:"phase"`
	PlayerCount    int    `json:"playerCount"`
	QuestionIndex  int    `json:"questionIndex"`
	TotalQuestions int    `json:"totalQuestions"`
}
