package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/aathi-11/university-voting-portal/internal/middleware"
	"github.com/aathi-11/university-voting-portal/internal/service"
	"github.com/aathi-11/university-voting-portal/internal/util"
)

type VoteHandler struct {
	Ballots *service.Ballots
	Log     *slog.Logger
}

func NewVoteHandler(ballots *service.Ballots, logger *slog.Logger) *VoteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoteHandler{Ballots: ballots, Log: logger}
}

type voteReq struct {
	Candidate string `json:"candidate"`
}

// CastVote records the authenticated subject's ballot. The voter is always
// taken from the session, never from the body.
func (h *VoteHandler) CastVote(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		writeError(c, h.Log, service.ErrUnauthenticated)
		return
	}

	var req voteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.Log, service.ErrMissingCandidate)
		return
	}

	b, err := h.Ballots.Cast(id.Roll, req.Candidate)
	if err != nil {
		writeError(c, h.Log, err)
		return
	}

	util.Success(c, util.Response{
		"message": "Vote recorded",
		"receipt": b.ID,
	})
}
