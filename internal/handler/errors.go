package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aathi-11/university-voting-portal/internal/acl"
	"github.com/aathi-11/university-voting-portal/internal/service"
	"github.com/aathi-11/university-voting-portal/internal/util"
)

type errorReply struct {
	status  int
	code    int
	message string
}

// errorTable maps every caller-visible error kind to a fixed reply. The
// InvalidCredentials message is the same for every cause.
var errorTable = []struct {
	err   error
	reply errorReply
}{
	{service.ErrInvalidInput, errorReply{http.StatusBadRequest, util.CodeInvalidParam, "invalid request parameters"}},
	{service.ErrMissingCandidate, errorReply{http.StatusBadRequest, util.CodeInvalidParam, "candidate required"}},
	{service.ErrAlreadyVoted, errorReply{http.StatusBadRequest, util.CodeAlreadyVoted, "already voted"}},
	{service.ErrDuplicateIdentifier, errorReply{http.StatusConflict, util.CodeConflict, "user already exists"}},
	{service.ErrInvalidCredentials, errorReply{http.StatusUnauthorized, util.CodeAuth, "invalid credentials"}},
	{service.ErrCodeInvalid, errorReply{http.StatusUnauthorized, util.CodeCodeInvalid, "OTP invalid or expired"}},
	{service.ErrUnauthenticated, errorReply{http.StatusUnauthorized, util.CodeSession, "session missing or expired, please log in again"}},
	{acl.ErrForbidden, errorReply{http.StatusForbidden, util.CodeForbidden, acl.ErrForbidden.Error()}},
	{service.ErrSubjectNotFound, errorReply{http.StatusNotFound, util.CodeNotFound, "user not found"}},
	{service.ErrDeliveryFailed, errorReply{http.StatusBadGateway, util.CodeDelivery, "failed to send OTP, check mail configuration"}},
	{service.ErrIntegrity, errorReply{http.StatusInternalServerError, util.CodeServerErr, "stored record failed integrity check"}},
	{service.ErrFormat, errorReply{http.StatusInternalServerError, util.CodeServerErr, "stored record is malformed"}},
}

var internalReply = errorReply{http.StatusInternalServerError, util.CodeServerErr, "internal server error"}

func replyFor(err error) errorReply {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.reply
		}
	}
	return internalReply
}

// writeError replies with the fixed message for err's kind. Anything not in
// the table is logged and reported as a generic server error.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	r := replyFor(err)
	if r.status >= http.StatusInternalServerError {
		logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	util.Error(c, r.status, r.code, r.message)
}

func badRequest(c *gin.Context, msg string) {
	util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msg)
}
