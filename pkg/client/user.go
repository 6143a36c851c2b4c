package client

import (
	"strconv"

	"github.com/terra-clan/impact-portal/internal/models"
)

// Profile maps the raw record onto a displayable profile. Missing fields get
// the profile defaults; subject is the id the record was requested with.
func (u *UserRecord) Profile(subject string) models.User {
	id, _ := strconv.Atoi(u.ID.String())

	p := models.User{
		ID:       id,
		Name:     or(u.Name, models.DefaultName),
		Username: or(u.Username, "user_"+subject),
		Email:    or(u.Email, models.DefaultEmail),
		Phone:    or(u.Phone, models.DefaultPhone),
		Avatar:   or(u.Avatar, models.DefaultAvatar),
		Bio:      or(u.Bio, models.DefaultBio),
	}
	p.Stats = models.UserStats{
		Challenges: len(u.Challenges),
		Solutions:  len(u.Solutions),
		Points:     u.Points,
	}
	return p
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
