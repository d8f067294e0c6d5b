package services

import (
	"context"
	"fmt"
	"strings"

	"okr-progression-system/models"
)

type UserService struct {
	Store
}

func NewUserService(store Store) *UserService {
	return &UserService{Store: store}
}

// UserSummary is what invite pickers see of a mirrored user.
type UserSummary struct {
	ExternalUserID string  `json:"external_user_id"`
	Username       string  `json:"username"`
	Name           string  `json:"name"`
	AvatarURL      *string `json:"avatar_url,omitempty"`
}

// Search matches username or email case-insensitively. limit is clamped to 1..100.
func (s *UserService) Search(ctx context.Context, query string, limit int) ([]UserSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	q := db.Model(&models.User{}).Order("username ASC").Limit(limit)
	if query = strings.TrimSpace(query); query != "" {
		term := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", term, term)
	}

	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	res := make([]UserSummary, len(users))
	for i, u := range users {
		res[i] = UserSummary{
			ExternalUserID: u.ExternalUserID,
			Username:       u.Username,
			Name:           u.DisplayName(),
			AvatarURL:      u.ProfilePictureURL,
		}
	}
	return res, nil
}
