package cli

import (
	"testing"
	"time"

	"quiz-room-service/internal/config"
	"quiz-room-service/internal/domain"
)

func TestSessionSettingsDefaults(t *testing.T) {
	settings := sessionSettings(config.Config{})
	if settings.InstructorName != "Instructor" || settings.PointsPerAnswer != 1000 {
		t.Fatalf("unexpected defaults %+v", settings)
	}
	if settings.EnforceDeadline {
		t.Fatalf("expected deadline off by default")
	}
}

func TestSessionSettingsOverrides(t *testing.T) {
	cfg := config.Config{}
	cfg.Session.InstructorName = "Teacher"
	cfg.Session.PointsPerAnswer = 10
	cfg.Session.EnforceDeadline = true
	cfg.Session.DeadlineGrace = "500ms"

	settings := sessionSettings(cfg)
	if settings.InstructorName != "Teacher" || settings.PointsPerAnswer != 10 || !settings.EnforceDeadline {
		t.Fatalf("unexpected settings %+v", settings)
	}
	if settings.DeadlineGrace != 500*time.Millisecond {
		t.Fatalf("expected 500ms grace, got %s", settings.DeadlineGrace)
	}
}

func TestSampleQuizzesAreValid(t *testing.T) {
	for id, quiz := range sampleQuizzes() {
		if err := domain.ValidateQuestions(quiz.Questions); err != nil {
			t.Fatalf("sample quiz %s invalid: %v", id, err)
		}
	}
}
