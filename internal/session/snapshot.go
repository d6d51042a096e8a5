package session

import "contest-service/internal/domain"

// Snapshot is the presentation view of a session. Correct answers are never included.
type Snapshot struct {
	SessionID        string               `json:"sessionId"`
	Participant      domain.Participant   `json:"participant"`
	Round            domain.Round         `json:"round"`
	Variant          string               `json:"variant,omitempty"`
	Variants         []string             `json:"variants,omitempty"`
	Mode             Mode                 `json:"mode"`
	Status           Status               `json:"status"`
	Exit             Exit                 `json:"exit"`
	Cursor           int                  `json:"cursor"`
	TotalQuestions   int                  `json:"totalQuestions"`
	Questions        []QuestionView       `json:"questions,omitempty"`
	Answers          map[int]int          `json:"answers,omitempty"`
	Accepted         []string             `json:"accepted,omitempty"`
	RemainingSeconds int                  `json:"remainingSeconds"`
	AccessOpen       bool                 `json:"accessOpen"`
	Notice           string               `json:"notice,omitempty"`
	Reauth           bool                 `json:"reauth,omitempty"`
	Result           *domain.ResultRecord `json:"result,omitempty"`
}

// QuestionView is a question as shown to the participant.
type QuestionView struct {
	Index     int      `json:"index"`
	ID        string   `json:"id"`
	Prompt    string   `json:"prompt"`
	Options   []string `json:"options,omitempty"`
	MediaRefs []string `json:"mediaRefs,omitempty"`
}

func viewOf(index int, q domain.Question) QuestionView {
	return QuestionView{
		Index:     index,
		ID:        q.ID,
		Prompt:    q.Prompt,
		Options:   q.Options,
		MediaRefs: q.MediaRefs,
	}
}
