package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aathi-11/university-voting-portal/internal/config"
	"github.com/aathi-11/university-voting-portal/internal/middleware"
	"github.com/aathi-11/university-voting-portal/internal/service"
	"github.com/aathi-11/university-voting-portal/internal/store"
	"github.com/aathi-11/university-voting-portal/internal/util"
)

// AuthHandler serves registration, the two login steps and session info.
type AuthHandler struct {
	Auth  *service.Auth
	Store *store.Store
	Admin config.AdminConfig
	Log   *slog.Logger
}

func NewAuthHandler(auth *service.Auth, st *store.Store, admin config.AdminConfig, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{Auth: auth, Store: st, Admin: admin, Log: logger}
}

// ---------- register ----------

type registerReq struct {
	Roll     string `json:"roll" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "roll, email, password required")
		return
	}

	sub, err := h.Auth.Register(req.Roll, req.Email, req.Password)
	if err != nil {
		writeError(c, h.Log, err)
		return
	}

	util.Success(c, util.Response{
		"message": "Registered successfully",
		"roll":    sub.Roll,
	})
}

// ---------- login step 1 ----------

type loginReq struct {
	Roll     string `json:"roll" binding:"required"`
	Password string `json:"password" binding:"required"`
	AdminKey string `json:"adminKey"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "roll and password required")
		return
	}

	roll := strings.TrimSpace(req.Roll)
	if err := h.Auth.BeginLogin(c.Request.Context(), roll, req.Password, req.AdminKey); err != nil {
		writeError(c, h.Log, err)
		return
	}

	util.Success(c, util.Response{
		"message": "OTP_SENT",
		"roll":    roll,
	})
}

// ---------- login step 2 ----------

type verifyOTPReq struct {
	Roll string `json:"roll" binding:"required"`
	OTP  string `json:"otp" binding:"required"`
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "roll and otp required")
		return
	}

	s, err := h.Auth.CompleteLogin(strings.TrimSpace(req.Roll), strings.TrimSpace(req.OTP))
	if err != nil {
		writeError(c, h.Log, err)
		return
	}

	util.Success(c, util.Response{
		"token":     s.Token,
		"roll":      s.Roll,
		"role":      s.Role,
		"expiresAt": s.ExpiresAt,
	})
}

// ---------- admin seeding ----------

// SeedAdmin creates the configured admin account once. Credentials are
// never echoed back.
func (h *AuthHandler) SeedAdmin(c *gin.Context) {
	sub, created, err := h.Auth.SeedAdmin(h.Admin.Roll, h.Admin.Email, h.Admin.Password)
	if err != nil {
		writeError(c, h.Log, err)
		return
	}

	msg := "Admin already exists"
	if created {
		msg = "Admin created"
	}
	util.Success(c, util.Response{
		"message": msg,
		"roll":    sub.Roll,
		"created": created,
	})
}

// ---------- session info ----------

func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		writeError(c, h.Log, service.ErrUnauthenticated)
		return
	}
	sub, ok := h.Store.Subject(id.Roll)
	if !ok {
		writeError(c, h.Log, service.ErrSubjectNotFound)
		return
	}

	util.Success(c, util.Response{
		"roll":      sub.Roll,
		"role":      id.Role,
		"hasVoted":  sub.HasVoted,
		"expiresAt": id.ExpiresAt,
	})
}

// EncodedToken echoes the presented session token through the text
// encoding and back.
func (h *AuthHandler) EncodedToken(c *gin.Context) {
	encoded := util.EncodeText([]byte(middleware.TokenFromRequest(c)))
	decoded, err := util.DecodeText(encoded)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "encoding failed")
		return
	}

	util.Success(c, util.Response{
		"encoded": encoded,
		"decoded": string(decoded),
	})
}
