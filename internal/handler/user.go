package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/aathi-11/university-voting-portal/internal/store"
	"github.com/aathi-11/university-voting-portal/internal/util"
)

// UserHandler lists registered subjects for admins.
type UserHandler struct {
	Store *store.Store
}

func NewUserHandler(st *store.Store) *UserHandler {
	return &UserHandler{Store: st}
}

// ListUsers returns every subject without its password hash.
func (h *UserHandler) ListUsers(c *gin.Context) {
	subjects := h.Store.Subjects()
	items := make([]gin.H, 0, len(subjects))
	for _, s := range subjects {
		items = append(items, gin.H{
			"roll":     s.Roll,
			"email":    s.Email,
			"role":     s.Role,
			"hasVoted": s.HasVoted,
		})
	}

	util.Success(c, util.Response{
		"items": items,
		"total": len(items),
	})
}
