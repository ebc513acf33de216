package domain

// EventType names a message of the room event protocol.
type EventType string

const (
	// client -> server
	EventJoinGame     EventType = "join-game"
	EventLeaveGame    EventType = "leave-game"
	EventStartGame    EventType = "start-game"
	EventSendQuestion EventType = "send-question"
	EventSubmitAnswer EventType = "submit-answer"
	EventRevealAnswer EventType = "reveal-answer"
	EventNextQuestion EventType = "next-question"
	EventPing         EventType = "ping"

	// server -> room
	EventPlayersUpdated   EventType = "players-updated"
	EventNewQuestion      EventType = "new-question"
	EventQuestionRevealed EventType = "question-revealed"

	// both directions: instructor request and room broadcast share a name
	EventQuizComplete EventType = "quiz-complete"

	// server -> connection
	EventJoined       EventType = "joined"
	EventAnswerResult EventType = "answer-result"
	EventPong         EventType = "pong"
	EventError        EventType = "error"
)

// Event is a single broadcast delivered to every connection in a room.
type Event struct {
	Type    EventType
	Payload any
}
