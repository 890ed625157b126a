package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bibliophile/server/internal/auth"
	"bibliophile/server/internal/models"
	"bibliophile/server/internal/services"
)

// RestUserHandler handles REST requests related to users and their roles.
type RestUserHandler struct {
	userService services.IUserService
}

// NewRestUserHandler creates a new RestUserHandler.
func NewRestUserHandler(userService services.IUserService) *RestUserHandler {
	return &RestUserHandler{userService: userService}
}

type registerUserRequest struct {
	Name     string    `json:"name"`
	Email    string    `json:"email" binding:"required,email"`
	PhotoURL string    `json:"photoURL"`
	Role     auth.Role `json:"role" binding:"omitempty,oneof=Buyer Seller"`
}

// RegisterUser handles POST /users. Registering an existing email is a no-op.
func (h *RestUserHandler) RegisterUser(c *gin.Context) {
	var req registerUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, created, err := h.userService.RegisterIfAbsent(c.Request.Context(), &models.User{
		Name:     req.Name,
		Email:    req.Email,
		PhotoURL: req.PhotoURL,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, err, "register user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": true, "created": created, "id": user.ID.Hex()})
}

// CheckRole returns a handler for GET /users/<role>/:email answering
// {"<key>": bool}.
func (h *RestUserHandler) CheckRole(role auth.Role, key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := h.userService.HasRole(c.Request.Context(), c.Param("email"), role)
		if err != nil {
			respondError(c, err, "check role")
			return
		}
		c.JSON(http.StatusOK, gin.H{key: ok})
	}
}

// ListByRole returns a handler for GET /buyers and GET /sellers.
func (h *RestUserHandler) ListByRole(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := h.userService.ListByRole(c.Request.Context(), role)
		if err != nil {
			respondError(c, err, "list users")
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

// DeleteUser handles DELETE /buyers/:id and /sellers/:id.
func (h *RestUserHandler) DeleteUser(c *gin.Context) {
	deleted, err := h.userService.DeleteUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "delete user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": true, "deletedCount": deleted})
}

// VerifySeller handles PUT /sellers/:id.
func (h *RestUserHandler) VerifySeller(c *gin.Context) {
	result, err := h.userService.SetVerifyStatus(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		respondError(c, err, "verify seller")
		return
	}
	c.JSON(http.StatusOK, result)
}

type setRoleRequest struct {
	Role auth.Role `json:"role" binding:"required,oneof=Buyer Seller Admin"`
}

// SetRole handles PUT /users/:id/role. This is the only way to grant Admin.
func (h *RestUserHandler) SetRole(c *gin.Context) {
	var req setRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.userService.SetRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		respondError(c, err, "set role")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetVerifiedSeller handles GET /verifiedSeller?email=.
func (h *RestUserHandler) GetVerifiedSeller(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email query parameter is required"})
		return
	}
	seller, err := h.userService.FindVerifiedSeller(c.Request.Context(), email)
	if err != nil {
		respondError(c, err, "find seller")
		return
	}
	c.JSON(http.StatusOK, seller)
}
