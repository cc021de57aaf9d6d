package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/momentum-app/momentum/internal/events"
	"github.com/momentum-app/momentum/internal/models"
)

type projectServiceImpl struct {
	logger        zerolog.Logger
	pgPool        *pgxpool.Pool
	hub           *events.Hub
	notifications NotificationService
}

func NewProjectService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
	hub *events.Hub,
	notifications NotificationService,
) ProjectService {
	return &projectServiceImpl{
		logger:        logger,
		pgPool:        pgPool,
		hub:           hub,
		notifications: notifications,
	}
}

func (s *projectServiceImpl) CreateProject(ctx context.Context, params CreateProjectParams) (*models.Project, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrTitleRequired
	}

	now := time.Now()
	project := models.Project{
		Name:        name,
		Description: strings.TrimSpace(params.Description),
		OwnerID:     params.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	projectUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate project uuid")
		return nil, err
	}
	project.ID = projectUUID.String()

	memberUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate member uuid")
		return nil, err
	}

	tx, err := s.pgPool.Begin(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertProjectQuery = `
INSERT INTO projects (id,
                      name,
                      description,
                      owner_id,
                      archived,
                      created_at,
                      updated_at)
VALUES ($1, $2, $3, $4, FALSE, $5, $6)
`
	_, err = tx.Exec(
		ctx,
		insertProjectQuery,
		project.ID,
		project.Name,
		project.Description,
		project.OwnerID,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert project")
		return nil, err
	}

	const insertOwnerMemberQuery = `
INSERT INTO project_members (id,
                             project_id,
                             user_id,
                             role,
                             state,
                             invited_by,
                             created_at,
                             updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	_, err = tx.Exec(
		ctx,
		insertOwnerMemberQuery,
		memberUUID.String(),
		project.ID,
		project.OwnerID,
		models.RoleOwner,
		models.MemberActive,
		project.OwnerID,
		now,
		now,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert owner member")
		return nil, err
	}

	err = tx.Commit(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		return nil, err
	}

	s.hub.Publish([]string{project.OwnerID}, events.Event{
		Entity:    events.EntityProject,
		Action:    events.ActionCreated,
		EntityID:  project.ID,
		ProjectID: project.ID,
		ActorID:   project.OwnerID,
	})

	s.logger.Info().
		Str("project_id", project.ID).
		Str("owner_id", project.OwnerID).
		Msg("created project")
	return &project, nil
}

func (s *projectServiceImpl) GetProjectsByUserID(ctx context.Context, userID string) ([]*ProjectSummary, error) {
	const selectProjectsQuery = `
SELECT p.id,
       p.name,
       p.description,
       p.owner_id,
       p.archived,
       p.created_at,
       p.updated_at,
       m.role,
       (SELECT COUNT(*)
        FROM project_members am
        WHERE am.project_id = p.id AND am.state = 'active')
FROM projects p
JOIN project_members m ON m.project_id = p.id
WHERE m.user_id = $1 AND
      m.state = 'active'
ORDER BY p.created_at
`
	rows, err := s.pgPool.Query(ctx, selectProjectsQuery, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to select projects by user id")
		return nil, err
	}
	defer rows.Close()

	var summaries []*ProjectSummary
	for rows.Next() {
		summary := &ProjectSummary{}
		err = rows.Scan(
			&summary.Project.ID,
			&summary.Project.Name,
			&summary.Project.Description,
			&summary.Project.OwnerID,
			&summary.Project.Archived,
			&summary.Project.CreatedAt,
			&summary.Project.UpdatedAt,
			&summary.Role,
			&summary.Members,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan project")
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	s.logger.Debug().
		Str("user_id", userID).
		Int("count", len(summaries)).
		Msg("selected projects by user id")

	return summaries, nil
}

func (s *projectServiceImpl) GetProjectDetail(ctx context.Context, projectID, userID string) (*ProjectDetail, error) {
	_, err := memberRole(ctx, s.pgPool, projectID, userID)
	if err != nil {
		return nil, err
	}

	detail := &ProjectDetail{}
	detail.Project.ID = projectID

	const selectProjectQuery = `
SELECT name,
       description,
       owner_id,
       archived,
       created_at,
       updated_at
FROM projects
WHERE id = $1
`
	err = s.pgPool.QueryRow(
		ctx,
		selectProjectQuery,
		projectID,
	).Scan(
		&detail.Project.Name,
		&detail.Project.Description,
		&detail.Project.OwnerID,
		&detail.Project.Archived,
		&detail.Project.CreatedAt,
		&detail.Project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Str("project_id", projectID).
				Msg("project not found")
			return nil, ErrProjectNotFound
		}

		s.logger.Error().
			Err(err).
			Str("project_id", projectID).
			Msg("failed to select project")
		return nil, err
	}

	const selectMembersQuery = `
SELECT m.user_id,
       u.display_name,
       m.role,
       m.state
FROM project_members m
JOIN users u ON u.id = m.user_id
WHERE m.project_id = $1
ORDER BY m.created_at
`
	rows, err := s.pgPool.Query(ctx, selectMembersQuery, projectID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("project_id", projectID).
			Msg("failed to select project members")
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var member MemberInfo
		err = rows.Scan(
			&member.UserID,
			&member.DisplayName,
			&member.Role,
			&member.State,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan member")
			return nil, err
		}
		detail.Members = append(detail.Members, member)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	s.logger.Debug().
		Str("project_id", projectID).
		Int("members", len(detail.Members)).
		Msg("selected project detail")

	return detail, nil
}

func (s *projectServiceImpl) UpdateProject(ctx context.Context, params UpdateProjectParams) (*models.Project, error) {
	role, err := memberRole(ctx, s.pgPool, params.ProjectID, params.UserID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleOwner && role != models.RoleManager {
		return nil, ErrPermissionDenied
	}

	project := models.Project{
		ID:        params.ProjectID,
		UpdatedAt: time.Now(),
	}

	const updateProjectQuery = `
UPDATE projects
SET name = COALESCE($1, name),
    description = COALESCE($2, description),
    updated_at = $3
WHERE id = $4
RETURNING name, description, owner_id, archived, created_at
`
	err = s.pgPool.QueryRow(
		ctx,
		updateProjectQuery,
		params.Name,
		params.Description,
		project.UpdatedAt,
		project.ID,
	).Scan(
		&project.Name,
		&project.Description,
		&project.OwnerID,
		&project.Archived,
		&project.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}

		s.logger.Error().
			Err(err).
			Str("project_id", project.ID).
			Msg("failed to update project")
		return nil, err
	}

	s.publishToMembers(ctx, project.ID, params.UserID, events.Event{
		Entity:   events.EntityProject,
		Action:   events.ActionUpdated,
		EntityID: project.ID,
	})

	s.logger.Info().
		Str("project_id", project.ID).
		Msg("updated project")
	return &project, nil
}

func (s *projectServiceImpl) ArchiveProject(ctx context.Context, projectID, userID string) error {
	role, err := memberRole(ctx, s.pgPool, projectID, userID)
	if err != nil {
		return err
	}
	if role != models.RoleOwner && role != models.RoleManager {
		return ErrPermissionDenied
	}

	const archiveProjectQuery = `
UPDATE projects
SET archived = TRUE,
    updated_at = $1
WHERE id = $2
`
	tag, err := s.pgPool.Exec(ctx, archiveProjectQuery, time.Now(), projectID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("project_id", projectID).
			Msg("failed to archive project")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}

	s.publishToMembers(ctx, projectID, userID, events.Event{
		Entity:   events.EntityProject,
		Action:   events.ActionArchived,
		EntityID: projectID,
	})

	s.logger.Info().
		Str("project_id", projectID).
		Msg("archived project")
	return nil
}

func (s *projectServiceImpl) DeleteProject(ctx context.Context, projectID, userID string) error {
	role, err := memberRole(ctx, s.pgPool, projectID, userID)
	if err != nil {
		return err
	}
	if role != models.RoleOwner {
		return ErrPermissionDenied
	}

	// Capture the audience before the membership rows cascade away.
	audience, err := activeMemberIDs(ctx, s.pgPool, projectID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("project_id", projectID).
			Msg("failed to select project members")
		return err
	}

	const deleteProjectQuery = `
DELETE FROM projects
WHERE id = $1
`
	tag, err := s.pgPool.Exec(ctx, deleteProjectQuery, projectID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("project_id", projectID).
			Msg("failed to delete project")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}

	s.hub.Publish(audience, events.Event{
		Entity:    events.EntityProject,
		Action:    events.ActionDeleted,
		EntityID:  projectID,
		ProjectID: projectID,
		ActorID:   userID,
	})

	s.logger.Info().
		Str("project_id", projectID).
		Msg("deleted project")
	return nil
}

func (s *projectServiceImpl) InviteMember(ctx context.Context, params InviteMemberParams) (*models.ProjectMember, error) {
	role, err := memberRole(ctx, s.pgPool, params.ProjectID, params.ActorID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleOwner && role != models.RoleManager {
		return nil, ErrPermissionDenied
	}

	inviteRole := params.Role
	if inviteRole == "" {
		inviteRole = models.RoleParticipant
	}
	if inviteRole == models.RoleOwner || !models.ValidRole(inviteRole) {
		return nil, ErrPermissionDenied
	}

	friends, err := areFriends(ctx, s.pgPool, params.ActorID, params.FriendID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to check friendship")
		return nil, err
	}
	if !friends {
		return nil, ErrNotFriends
	}

	const selectExistingMemberQuery = `
SELECT COUNT(*)
FROM project_members
WHERE project_id = $1 AND user_id = $2
`
	var existing int
	err = s.pgPool.QueryRow(ctx, selectExistingMemberQuery, params.ProjectID, params.FriendID).Scan(&existing)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to check existing membership")
		return nil, err
	}
	if existing > 0 {
		return nil, ErrAlreadyMember
	}

	memberUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate member uuid")
		return nil, err
	}

	now := time.Now()
	member := models.ProjectMember{
		ID:        memberUUID.String(),
		ProjectID: params.ProjectID,
		UserID:    params.FriendID,
		Role:      inviteRole,
		State:     models.MemberInvited,
		InvitedBy: params.ActorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	const insertMemberQuery = `
INSERT INTO project_members (id,
                             project_id,
                             user_id,
                             role,
                             state,
                             invited_by,
                             created_at,
                             updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	_, err = s.pgPool.Exec(
		ctx,
		insertMemberQuery,
		member.ID,
		member.ProjectID,
		member.UserID,
		member.Role,
		member.State,
		member.InvitedBy,
		member.CreatedAt,
		member.UpdatedAt,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert member")
		return nil, err
	}

	_, err = s.notifications.Notify(ctx, member.UserID, models.NotificationProjectInvite, map[string]any{
		"invite_id":  member.ID,
		"project_id": member.ProjectID,
		"invited_by": member.InvitedBy,
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("user_id", member.UserID).
			Msg("failed to notify invited member")
	}

	s.hub.Publish([]string{member.UserID, params.ActorID}, events.Event{
		Entity:    events.EntityMember,
		Action:    events.ActionCreated,
		EntityID:  member.ID,
		ProjectID: member.ProjectID,
		ActorID:   params.ActorID,
	})

	s.logger.Info().
		Str("project_id", member.ProjectID).
		Str("user_id", member.UserID).
		Msg("invited member")
	return &member, nil
}

func (s *projectServiceImpl) RespondToInvite(ctx context.Context, inviteID, userID string, accept bool) error {
	member := models.ProjectMember{
		ID:     inviteID,
		UserID: userID,
	}

	const selectInviteQuery = `
SELECT project_id,
       role
FROM project_members
WHERE id = $1 AND
      user_id = $2 AND
      state = 'invited'
`
	err := s.pgPool.QueryRow(
		ctx,
		selectInviteQuery,
		member.ID,
		member.UserID,
	).Scan(
		&member.ProjectID,
		&member.Role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Str("invite_id", inviteID).
				Msg("invite not found")
			return ErrInviteNotFound
		}

		s.logger.Error().
			Err(err).
			Msg("failed to select invite")
		return err
	}

	if accept {
		const acceptInviteQuery = `
UPDATE project_members
SET state = 'active',
    updated_at = $1
WHERE id = $2
`
		_, err = s.pgPool.Exec(ctx, acceptInviteQuery, time.Now(), member.ID)
	} else {
		const declineInviteQuery = `
DELETE FROM project_members
WHERE id = $1
`
		_, err = s.pgPool.Exec(ctx, declineInviteQuery, member.ID)
	}
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("invite_id", member.ID).
			Msg("failed to respond to invite")
		return err
	}

	action := events.ActionDeleted
	if accept {
		action = events.ActionUpdated
	}
	s.publishToMembers(ctx, member.ProjectID, userID, events.Event{
		Entity:   events.EntityMember,
		Action:   action,
		EntityID: member.ID,
	})

	s.logger.Info().
		Str("invite_id", member.ID).
		Str("project_id", member.ProjectID).
		Bool("accepted", accept).
		Msg("responded to invite")
	return nil
}

func (s *projectServiceImpl) RemoveMember(ctx context.Context, projectID, actorID, memberID string) error {
	actorRole, err := memberRole(ctx, s.pgPool, projectID, actorID)
	if err != nil {
		return err
	}
	if actorRole != models.RoleOwner && actorRole != models.RoleManager {
		return ErrPermissionDenied
	}

	targetRole, err := memberRole(ctx, s.pgPool, projectID, memberID)
	if err != nil {
		return err
	}
	// The owner row is protected; managers may only remove participants.
	if targetRole == models.RoleOwner {
		return ErrPermissionDenied
	}
	if actorRole == models.RoleManager && targetRole != models.RoleParticipant {
		return ErrPermissionDenied
	}

	audience, err := activeMemberIDs(ctx, s.pgPool, projectID)
	if err != nil {
		return err
	}

	const deleteMemberQuery = `
DELETE FROM project_members
WHERE project_id = $1 AND user_id = $2
`
	tag, err := s.pgPool.Exec(ctx, deleteMemberQuery, projectID, memberID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("project_id", projectID).
			Str("user_id", memberID).
			Msg("failed to delete member")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotProjectMember
	}

	s.hub.Publish(audience, events.Event{
		Entity:    events.EntityMember,
		Action:    events.ActionDeleted,
		EntityID:  memberID,
		ProjectID: projectID,
		ActorID:   actorID,
	})

	s.logger.Info().
		Str("project_id", projectID).
		Str("user_id", memberID).
		Msg("removed member")
	return nil
}

func (s *projectServiceImpl) Leave(ctx context.Context, projectID, userID string) error {
	role, err := memberRole(ctx, s.pgPool, projectID, userID)
	if err != nil {
		return err
	}
	if role == models.RoleOwner {
		return ErrOwnerCannotLeave
	}

	audience, err := activeMemberIDs(ctx, s.pgPool, projectID)
	if err != nil {
		return err
	}

	const deleteMemberQuery = `
DELETE FROM project_members
WHERE project_id = $1 AND user_id = $2
`
	_, err = s.pgPool.Exec(ctx, deleteMemberQuery, projectID, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("project_id", projectID).
			Str("user_id", userID).
			Msg("failed to leave project")
		return err
	}

	s.hub.Publish(audience, events.Event{
		Entity:    events.EntityMember,
		Action:    events.ActionDeleted,
		EntityID:  userID,
		ProjectID: projectID,
		ActorID:   userID,
	})

	s.logger.Info().
		Str("project_id", projectID).
		Str("user_id", userID).
		Msg("left project")
	return nil
}

// publishToMembers fans an event out to the project's active members.
// Delivery is best effort: a failed audience lookup only loses the
// invalidation signal, never the committed write.
func (s *projectServiceImpl) publishToMembers(ctx context.Context, projectID, actorID string, event events.Event) {
	audience, err := activeMemberIDs(ctx, s.pgPool, projectID)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("project_id", projectID).
			Msg("failed to select change feed audience")
		return
	}
	event.ProjectID = projectID
	event.ActorID = actorID
	s.hub.Publish(audience, event)
}
