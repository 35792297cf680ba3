package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/centsible-app/centsible/internal/models"
	"github.com/centsible-app/centsible/internal/storage"
)

// joinCodeAlphabet leaves out 0 and 1, which read as O and I when someone
// relays a code out loud.
const joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ23456789"

const (
	joinCodeLength      = 4
	maxJoinCodeAttempts = 5
)

// GroupService manages group creation and membership.
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// Create makes a new group owned by creatorID and enrolls the creator as its
// first member. The join code is generated here; on the rare collision with
// an existing group the create retries with a fresh code.
func (s *GroupService) Create(ctx context.Context, creatorID, name, description string) (*models.Group, error) {
	slog.Info("CreateGroup request received", "name", name, "creator_id", creatorID)

	for attempt := 0; attempt < maxJoinCodeAttempts; attempt++ {
		code, err := generateJoinCode()
		if err != nil {
			return nil, err
		}

		group := &models.Group{
			Name:        name,
			Description: description,
			JoinCode:    code,
			CreatedBy:   creatorID,
		}
		err = s.store.CreateGroup(ctx, group)
		if err == nil {
			slog.Info("Group created", "group_id", group.ID, "join_code", group.JoinCode)
			return group, nil
		}
		if !errors.Is(err, storage.ErrDuplicate) {
			slog.Error("CreateGroup failed", "error", err)
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to find a free join code after %d attempts", maxJoinCodeAttempts)
}

// Join enrolls the user in the group matching the given join code. Codes are
// matched case-insensitively. Joining a group twice is an error.
func (s *GroupService) Join(ctx context.Context, userID, code string) (*models.Group, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	slog.Info("JoinGroup request received", "join_code", code, "user_id", userID)

	group, err := s.store.GetGroupByJoinCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddGroupMember(ctx, group.ID, userID); err != nil {
		return nil, err
	}
	group.Members = append(group.Members, userID)

	slog.Info("User joined group", "group_id", group.ID, "user_id", userID)
	return group, nil
}

// Get returns a group with its member list. Only members may see a group.
func (s *GroupService) Get(ctx context.Context, userID, groupID string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(userID) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotMember)
	}
	return group, nil
}

// ListForUser returns every group the user belongs to, newest first.
func (s *GroupService) ListForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	return s.store.ListGroupsByMember(ctx, userID)
}

// generateJoinCode draws a short code from the join alphabet using crypto/rand,
// so codes are not guessable from previous ones.
func generateJoinCode() (string, error) {
	max := big.NewInt(int64(len(joinCodeAlphabet)))
	code := make([]byte, joinCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate join code: %w", err)
		}
		code[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
