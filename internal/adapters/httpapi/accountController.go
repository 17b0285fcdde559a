package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type AccountController struct{ ac AccountUseCase }

func NewAccountController(ac AccountUseCase) *AccountController { return &AccountController{ac: ac} }

func (ctl *AccountController) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation_error"})
		return
	}
	res, err := ctl.ac.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (ctl *AccountController) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation_error"})
		return
	}
	a, err := ctl.ac.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (ctl *AccountController) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	a, err := ctl.ac.Get(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (ctl *AccountController) ConnectLinkedIn(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		ProfileURL string `json:"profileUrl" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation_error"})
		return
	}
	a, err := ctl.ac.ConnectLinkedIn(c.Request.Context(), userID, req.ProfileURL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (ctl *AccountController) RecountPublished(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	a, err := ctl.ac.RecountPublished(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
