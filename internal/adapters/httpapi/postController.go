package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"postsync/internal/bridge"
	postEntity "postsync/internal/core/post"
	postapp "postsync/internal/core/post/service"
	postPort "postsync/internal/ports/post"
)

const maxSchedulePosts = 50

type PostController struct {
	pc     PostUseCase
	bridge BridgeUseCase
}

func NewPostController(pc PostUseCase, b BridgeUseCase) *PostController {
	return &PostController{pc: pc, bridge: b}
}

func (ctl *PostController) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req postapp.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation_error"})
		return
	}
	res, err := ctl.pc.CreatePending(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (ctl *PostController) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	posts, err := ctl.pc.ListForOwner(c.Request.Context(), userID, c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (ctl *PostController) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	p, err := ctl.pc.GetForOwner(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (ctl *PostController) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req postapp.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation_error"})
		return
	}
	p, err := ctl.pc.UpdatePending(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (ctl *PostController) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := ctl.pc.DeleteIfDeletable(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (ctl *PostController) Retry(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	p, err := ctl.pc.Retry(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (ctl *PostController) Draft(c *gin.Context) {
	var req struct {
		Topic string `json:"topic" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation_error"})
		return
	}
	text, err := ctl.pc.DraftContent(c.Request.Context(), req.Topic)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": text})
}

// Publish hands a pending post to the owner's extension. The answer is
// advisory: the post status only changes through the sync callback.
func (ctl *PostController) Publish(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	p, err := ctl.pc.GetForOwner(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if p.Status != string(postEntity.StatusPending) {
		writeError(c, fmt.Errorf("%w: only pending posts can be published", postEntity.ErrPrecondition))
		return
	}

	res := ctl.bridge.PostNow(c.Request.Context(), userID, bridge.PostNow{
		ID:       p.ID,
		Content:  p.Content,
		ImageURL: p.ImageURL,
	})
	body := gin.H{"result": res}
	if res.TimedOut || res.Unavailable {
		body["advisory"] = bridge.Advisory
	}
	c.JSON(http.StatusOK, body)
}

// Schedule hands a batch of pending posts to the owner's extension queue.
func (ctl *PostController) Schedule(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		PostIDs []string `json:"postIds" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.PostIDs) > maxSchedulePosts {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "code": "validation_error"})
		return
	}

	items := make([]bridge.ScheduledPost, 0, len(req.PostIDs))
	for _, id := range req.PostIDs {
		p, err := ctl.pc.GetForOwner(c.Request.Context(), userID, id)
		if err != nil {
			writeError(c, err)
			return
		}
		if p.Status != string(postEntity.StatusPending) {
			writeError(c, fmt.Errorf("%w: post %s is %s", postEntity.ErrPrecondition, p.ID, p.Status))
			return
		}
		items = append(items, scheduledPost(p))
	}

	res := ctl.bridge.SchedulePosts(c.Request.Context(), userID, items)
	body := gin.H{"result": res}
	if res.TimedOut || res.Unavailable {
		body["advisory"] = bridge.Advisory
	}
	c.JSON(http.StatusOK, body)
}

func scheduledPost(p *postPort.PostDTO) bridge.ScheduledPost {
	sp := bridge.ScheduledPost{
		ID:       p.ID,
		Content:  p.Content,
		ImageURL: p.ImageURL,
	}
	if p.ScheduleTime != nil {
		sp.ScheduleTime = *p.ScheduleTime
	} else {
		sp.ScheduleTime = p.CreatedAt
	}
	return sp
}
