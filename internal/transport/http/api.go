package http

import (
	"net/http"
	"strconv"

	"contest-service/internal/app"
	"contest-service/internal/domain"
	"github.com/gin-gonic/gin"
)

// API exposes ContestService over REST.
type API struct {
	service *app.ContestService
}

func NewAPI(service *app.ContestService) *API {
	return &API{service: service}
}

func (a *API) Register(r gin.IRouter) {
	r.POST("/participants", a.registerParticipant)
	r.GET("/participants/:id", a.getParticipant)
	r.GET("/participants/:id/results", a.listResults)
	r.POST("/participants/:id/track", a.selectTrack)

	r.GET("/rounds/:round/access", a.getRoundAccess)
	r.GET("/rounds/:round/questions", a.getQuestions)
	r.POST("/results", a.submitResult)

	r.POST("/round3/submissions", a.submitChallenge)
	r.GET("/round3/submissions", a.listSubmissions)

	r.GET("/leaderboard", a.getLeaderboard)

	admin := r.Group("/admin")
	admin.POST("/rounds/:round/access", a.setRoundAccess)
	admin.POST("/submissions/:id/score", a.scoreSubmission)
	admin.POST("/leaderboard/promote", a.promote)
}

type registerRequest struct {
	Username     string `json:"username" binding:"required"`
	EnrollmentNo string `json:"enrollment_no"`
}

// Administrators are provisioned through the roster import, never over REST.
func (a *API) registerParticipant(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	p, err := a.service.RegisterParticipant(c.Request.Context(), req.Username, req.EnrollmentNo, false)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (a *API) getParticipant(c *gin.Context) {
	p, err := a.service.Participant(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *API) listResults(c *gin.Context) {
	results, err := a.service.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

type trackRequest struct {
	Track string `json:"track" binding:"required"`
}

func (a *API) selectTrack(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	p, err := a.service.SelectTrack(c.Request.Context(), c.Param("id"), domain.Track(req.Track))
	if err != nil {
		if p.Round3Track != domain.TrackUnset {
			c.JSON(statusFor(err), gin.H{
				"error":            err.Error(),
				"already_selected": true,
				"track":            p.Round3Track,
			})
			return
		}
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *API) getRoundAccess(c *gin.Context) {
	round, ok := roundParam(c, c.Param("round"))
	if !ok {
		return
	}
	access, err := a.service.RoundAccess(c.Request.Context(), round)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, access)
}

type accessRequest struct {
	AdminID string `json:"admin_id" binding:"required"`
	Enabled *bool  `json:"enabled" binding:"required"`
}

func (a *API) setRoundAccess(c *gin.Context) {
	round, ok := roundParam(c, c.Param("round"))
	if !ok {
		return
	}
	var req accessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	access, err := a.service.SetRoundAccess(c.Request.Context(), round, *req.Enabled, req.AdminID)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, access)
}

// questionView omits the correct option.
type questionView struct {
	ID        string   `json:"id"`
	Prompt    string   `json:"prompt"`
	Options   []string `json:"options,omitempty"`
	MediaRefs []string `json:"mediaRefs,omitempty"`
}

func (a *API) getQuestions(c *gin.Context) {
	round, ok := roundParam(c, c.Param("round"))
	if !ok {
		return
	}
	set, err := a.service.Questions(c.Request.Context(), round, c.Query("variant"))
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	views := make([]questionView, len(set.Questions))
	for i, q := range set.Questions {
		views[i] = questionView{ID: q.ID, Prompt: q.Prompt, Options: q.Options, MediaRefs: q.MediaRefs}
	}
	c.JSON(http.StatusOK, gin.H{"round": set.Round, "variant": set.Variant, "questions": views})
}

type resultRequest struct {
	ParticipantID  string `json:"participant_id" binding:"required"`
	Round          int    `json:"round" binding:"required"`
	Variant        string `json:"variant"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"total_questions" binding:"required"`
}

func (a *API) submitResult(c *gin.Context) {
	var req resultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	participant, rec, err := a.service.SubmitResult(c.Request.Context(), domain.ResultSubmission{
		ParticipantID:  req.ParticipantID,
		Round:          domain.Round(req.Round),
		Variant:        req.Variant,
		Score:          req.Score,
		TotalQuestions: req.TotalQuestions,
	})
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"participant": participant, "result": rec})
}

type challengeRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
	ChallengeID   string `json:"challenge_id" binding:"required"`
	Payload       string `json:"payload" binding:"required"`
}

func (a *API) submitChallenge(c *gin.Context) {
	var req challengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	sub, accepted, err := a.service.SubmitChallenge(c.Request.Context(), req.ParticipantID, req.ChallengeID, req.Payload)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	status := http.StatusCreated
	if !accepted {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"accepted": accepted, "submission": sub})
}

func (a *API) listSubmissions(c *gin.Context) {
	filter := domain.SubmissionFilter{
		ParticipantID: c.Query("participant_id"),
		Track:         domain.Track(c.Query("track")),
		Unscored:      c.Query("unscored") == "true",
	}
	if filter.Track != domain.TrackUnset && !filter.Track.Valid() {
		respondWithDomainError(c, domain.ErrInvalidTrack)
		return
	}
	subs, err := a.service.Submissions(c.Request.Context(), filter)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}

type scoreRequest struct {
	AdminID string `json:"admin_id" binding:"required"`
	Score   int    `json:"score" binding:"required"`
}

func (a *API) scoreSubmission(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	sub, err := a.service.ScoreSubmission(c.Request.Context(), req.AdminID, c.Param("id"), req.Score)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (a *API) getLeaderboard(c *gin.Context) {
	round, ok := roundParam(c, c.DefaultQuery("round", "1"))
	if !ok {
		return
	}
	board, err := a.service.Leaderboard(c.Request.Context(), round)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

type promoteRequest struct {
	AdminID string `json:"admin_id" binding:"required"`
	Round   int    `json:"round"`
	N       int    `json:"n"`
}

func (a *API) promote(c *gin.Context) {
	var req promoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Round == 0 {
		req.Round = int(domain.Round2)
	}
	if req.N == 0 {
		req.N = 20
	}
	updated, err := a.service.PromoteTopN(c.Request.Context(), req.AdminID, domain.Round(req.Round), req.N)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_updated": updated})
}

func roundParam(c *gin.Context, raw string) (domain.Round, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil || !domain.Round(n).Valid() {
		respondWithDomainError(c, domain.ErrInvalidRound)
		return 0, false
	}
	return domain.Round(n), true
}
