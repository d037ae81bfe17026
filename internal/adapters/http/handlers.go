package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frank005/broadcastaway-sub000/internal/app/orch"
	"github.com/frank005/broadcastaway-sub000/internal/config"
	"github.com/frank005/broadcastaway-sub000/internal/core"
	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

type Controller struct {
	Orch *orch.Orchestrator
	Cfg  *config.Config
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, core.ErrAuthFailure):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, core.ErrRequestTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrConnectionLost):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func (ctl *Controller) Join(c *gin.Context) {
	var req struct {
		Channel string `json:"channel"`
		Name    string `json:"name"`
		Creator bool   `json:"creator"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing channel"})
		return
	}
	if err := ctl.Orch.Join(c.Request.Context(), req.Channel, req.Name, req.Creator); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ctl.Orch.Me())
}

func (ctl *Controller) Leave(c *gin.Context) {
	if err := ctl.Orch.Leave(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"left": true})
}

func (ctl *Controller) State(c *gin.Context) {
	participants := ctl.Orch.Registry.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"me":           ctl.Orch.Me(),
		"role":         ctl.Orch.Role().String(),
		"participants": participants,
	})
}

func (ctl *Controller) Apply(c *gin.Context) {
	if err := ctl.Orch.ApplyToHost(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": true})
}

type targetRequest struct {
	Target string `json:"target"`
}

func (ctl *Controller) Promote(c *gin.Context) {
	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing target"})
		return
	}
	if err := ctl.Orch.Promote(c.Request.Context(), domain.MessagingID(req.Target)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"promoted": req.Target})
}

func (ctl *Controller) Demote(c *gin.Context) {
	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing target"})
		return
	}
	if err := ctl.Orch.Demote(c.Request.Context(), domain.MessagingID(req.Target)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"demoted": req.Target})
}

func (ctl *Controller) LeaveStage(c *gin.Context) {
	if err := ctl.Orch.LeaveStage(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": ctl.Orch.Role().String()})
}

func (ctl *Controller) StartShow(c *gin.Context) {
	if err := ctl.Orch.StartShow(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"live": true})
}

func (ctl *Controller) EndShow(c *gin.Context) {
	if err := ctl.Orch.EndShow(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"live": false})
}

func (ctl *Controller) StartScreen(c *gin.Context) {
	if err := ctl.Orch.StartScreenShare(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sharing": true})
}

func (ctl *Controller) StopScreen(c *gin.Context) {
	ctl.Orch.StopScreenShare(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"sharing": false})
}

func (ctl *Controller) StartConverter(c *gin.Context) {
	id, err := ctl.Orch.StartConverter(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"converter_id": string(id)})
}

func (ctl *Controller) StopConverter(c *gin.Context) {
	var req struct {
		ConverterID string `json:"converter_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ConverterID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing converter_id"})
		return
	}
	if err := ctl.Orch.StopConverter(c.Request.Context(), core.ConverterID(req.ConverterID)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stopped": req.ConverterID})
}

func (ctl *Controller) StartCaptions(c *gin.Context) {
	var req struct {
		Languages []string `json:"languages"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Languages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing languages"})
		return
	}
	if err := ctl.Orch.StartCaptions(c.Request.Context(), req.Languages); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"captions": true})
}

func (ctl *Controller) StopCaptions(c *gin.Context) {
	if err := ctl.Orch.StopCaptions(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"captions": false})
}

func (ctl *Controller) SubscribeCaptions(c *gin.Context) {
	var req struct {
		SourceID           uint32              `json:"source_id"`
		TranscriptionLangs []string            `json:"transcription_langs"`
		TranslationTargets map[string][]string `json:"translation_targets"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SourceID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing source_id"})
		return
	}
	ctl.Orch.SubscribeCaptions(domain.MediaID(req.SourceID), req.TranscriptionLangs, req.TranslationTargets)
	c.JSON(http.StatusOK, gin.H{"subscribed": req.SourceID})
}

func (ctl *Controller) ConnectTool(c *gin.Context) {
	var req struct {
		URL      string `json:"url"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad payload"})
		return
	}
	url := req.URL
	if url == "" {
		url = ctl.Cfg.ToolURL
	}
	password := req.Password
	if password == "" {
		password = ctl.Cfg.ToolPassword
	}
	if err := ctl.Orch.ConnectTool(c.Request.Context(), url, password); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true})
}

func (ctl *Controller) DisconnectTool(c *gin.Context) {
	ctl.Orch.DisconnectTool()
	c.JSON(http.StatusOK, gin.H{"connected": false})
}

func (ctl *Controller) StartMirror(c *gin.Context) {
	if err := ctl.Orch.StartMirror(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mirroring": true})
}

func (ctl *Controller) StopMirror(c *gin.Context) {
	ctl.Orch.StopMirror(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"mirroring": false})
}

func (ctl *Controller) Scenes(c *gin.Context) {
	tool := ctl.Orch.Tool()
	if tool == nil {
		fail(c, core.ErrConnectionLost)
		return
	}
	scenes, err := tool.SceneList(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	current, err := tool.CurrentProgramScene(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scenes": scenes, "current": current})
}

func (ctl *Controller) SetScene(c *gin.Context) {
	var req struct {
		Scene string `json:"scene"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Scene == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing scene"})
		return
	}
	tool := ctl.Orch.Tool()
	if tool == nil {
		fail(c, core.ErrConnectionLost)
		return
	}
	if err := tool.SetCurrentProgramScene(c.Request.Context(), req.Scene); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scene": req.Scene})
}
