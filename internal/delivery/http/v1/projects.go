package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/momentum-app/momentum/internal/models"
	"github.com/momentum-app/momentum/internal/services"
)

type projectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newProjectResponse(p *models.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		Archived:    p.Archived,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type createProjectRequest struct {
	Name        string `json:"name" binding:"required,max=120"`
	Description string `json:"description" binding:"max=2000"`
}

func (h *handlerImpl) HandleCreateProject(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req createProjectRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	project, err := h.projects.CreateProject(c, services.CreateProjectParams{
		OwnerID:     userID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to create project")
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newProjectResponse(project))
}

type projectSummaryResponse struct {
	projectResponse
	Role    string `json:"role"`
	Members int    `json:"members"`
}

func (h *handlerImpl) HandleGetProjects(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	summaries, err := h.projects.GetProjectsByUserID(c, userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to fetch projects")
		abortServiceError(c, err)
		return
	}

	resp := make([]projectSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		resp = append(resp, projectSummaryResponse{
			projectResponse: newProjectResponse(&s.Project),
			Role:            s.Role,
			Members:         s.Members,
		})
	}

	c.JSON(http.StatusOK, gin.H{"projects": resp})
}

type memberResponse struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	State       string `json:"state"`
}

func (h *handlerImpl) HandleGetProject(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	detail, err := h.projects.GetProjectDetail(c, c.Param("id"), userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to fetch project")
		abortServiceError(c, err)
		return
	}

	members := make([]memberResponse, 0, len(detail.Members))
	for _, m := range detail.Members {
		members = append(members, memberResponse{
			UserID:      m.UserID,
			DisplayName: m.DisplayName,
			Role:        m.Role,
			State:       m.State,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"project": newProjectResponse(&detail.Project),
		"members": members,
	})
}

type updateProjectRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=120"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

func (h *handlerImpl) HandleUpdateProject(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req updateProjectRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	project, err := h.projects.UpdateProject(c, services.UpdateProjectParams{
		ProjectID:   c.Param("id"),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to update project")
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newProjectResponse(project))
}

func (h *handlerImpl) HandleArchiveProject(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	err := h.projects.ArchiveProject(c, c.Param("id"), userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to archive project")
		abortServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) HandleDeleteProject(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	err := h.projects.DeleteProject(c, c.Param("id"), userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to delete project")
		abortServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type inviteMemberRequest struct {
	FriendID string `json:"friend_id" binding:"required,uuid"`
	Role     string `json:"role" binding:"omitempty,oneof=manager participant"`
}

func (h *handlerImpl) HandleInviteMember(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req inviteMemberRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	member, err := h.projects.InviteMember(c, services.InviteMemberParams{
		ProjectID: c.Param("id"),
		ActorID:   userID,
		FriendID:  req.FriendID,
		Role:      req.Role,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to invite member")
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"invite_id": member.ID,
		"user_id":   member.UserID,
		"role":      member.Role,
		"state":     member.State,
	})
}

type respondToInviteRequest struct {
	Accept bool `json:"accept"`
}

func (h *handlerImpl) HandleRespondToInvite(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req respondToInviteRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	err = h.projects.RespondToInvite(c, c.Param("id"), userID, req.Accept)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to respond to invite")
		abortServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) HandleRemoveMember(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	err := h.projects.RemoveMember(c, c.Param("id"), userID, c.Param("userID"))
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to remove member")
		abortServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) HandleLeaveProject(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	err := h.projects.Leave(c, c.Param("id"), userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to leave project")
		abortServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
