package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TokenIssuer signs session tokens for an email.
type TokenIssuer interface {
	Issue(email string) (string, error)
}

// RestAuthHandler issues session tokens.
type RestAuthHandler struct {
	tokens TokenIssuer
}

func NewRestAuthHandler(tokens TokenIssuer) *RestAuthHandler {
	return &RestAuthHandler{tokens: tokens}
}

type issueTokenRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// IssueToken handles POST /jwt. The email has already been authenticated by
// the client's identity provider; the server only signs it.
func (h *RestAuthHandler) IssueToken(c *gin.Context) {
	var req issueTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.tokens.Issue(req.Email)
	if err != nil {
		respondError(c, err, "issue token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
