package domain

import "time"

// Round identifies one stage of the competition.
type Round int

const (
	Round1 Round = 1
	Round2 Round = 2
	Round3 Round = 3
)

// Rounds lists every round in play order.
var Rounds = []Round{Round1, Round2, Round3}

// Valid reports whether r is one of the three competition rounds.
func (r Round) Valid() bool {
	return r >= Round1 && r <= Round3
}

// Track is the exclusive Round 3 challenge category.
type Track string

const (
	// TrackUnset is the sentinel for a participant who has not chosen yet.
	TrackUnset Track = ""
	TrackDSA   Track = "dsa"
	TrackWeb   Track = "web"
)

func (t Track) Valid() bool {
	return t == TrackDSA || t == TrackWeb
}

// Participant holds identity and progression only. Round access is looked up
// from the gate at decision time and never stored here.
type Participant struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	EnrollmentNo string    `json:"enrollmentNo"`
	IsAdmin      bool      `json:"isAdmin"`
	CurrentRound Round     `json:"currentRound"`
	Round3Track  Track     `json:"round3Track,omitempty"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// RoundAccess is the administrator-controlled switch for one round.
type RoundAccess struct {
	Round     Round      `json:"round"`
	Enabled   bool       `json:"enabled"`
	EnabledAt *time.Time `json:"enabledAt,omitempty"`
}

// Question is a single multiple choice item. CorrectOption indexes Options.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	MediaRefs     []string `json:"mediaRefs,omitempty"`
}

// QuestionSet is the ordered content for one round variant (language or track).
// For Round 3 each question is a challenge and Options is empty.
type QuestionSet struct {
	Round     Round      `json:"round"`
	Variant   string     `json:"variant"`
	Questions []Question `json:"questions"`
}

// ResultRecord is the immutable outcome of one participant's attempt at a round.
type ResultRecord struct {
	ID             string    `json:"id"`
	ParticipantID  string    `json:"participantId"`
	Round          Round     `json:"round"`
	Variant        string    `json:"variant"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Passed         bool      `json:"passed"`
	CompletedAt    time.Time `json:"completedAt"`
}

// ResultSubmission is the request to persist a finished attempt.
type ResultSubmission struct {
	ParticipantID  string
	Round          Round
	Variant        string
	Score          int
	TotalQuestions int
}

// Submission is a Round 3 challenge payload awaiting manual scoring.
type Submission struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participantId"`
	Track         Track     `json:"track"`
	ChallengeID   string    `json:"challengeId"`
	Payload       string    `json:"payload"`
	Scored        bool      `json:"scored"`
	Score         *int      `json:"score,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SubmissionFilter narrows submission listings. Zero fields match everything.
type SubmissionFilter struct {
	ParticipantID string
	Track         Track
	Unscored      bool
}

// LeaderboardEntry is one ranked row of a round's standings.
type LeaderboardEntry struct {
	Rank          int       `json:"rank"`
	ParticipantID string    `json:"participantId"`
	Username      string    `json:"username"`
	CurrentRound  Round     `json:"currentRound"`
	Score         int       `json:"score"`
	Total         int       `json:"total"`
	Percentage    float64   `json:"percentage"`
	CompletedAt   time.Time `json:"completedAt"`
}

// Leaderboard captures the ordered standings of a round.
type Leaderboard struct {
	Round     Round              `json:"round"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
