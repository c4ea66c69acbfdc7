package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	errx "github.com/wayfarer-planner/server/internal/core/error"
)

// UserInfo holds the traveller's preferences. It is fixed for a run.
type UserInfo struct {
	Budget               float64  `json:"budget" validate:"gte=0"`
	Interests            []string `json:"interests" validate:"dive,required"`
	PreviousDestinations []string `json:"previous_destinations" validate:"dive,required"`
	Duration             int      `json:"duration" validate:"min=1,max=30"`
	Origin               string   `json:"origin" validate:"required"`
	TravelDate           string   `json:"travel_date" validate:"required,datetime=2006-01-02"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func userValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the preferences before a run starts.
func (u UserInfo) Validate() error {
	err := userValidator().Struct(u)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errx.Configuration("validate user info: %v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return errx.Configuration("invalid user info: %s", strings.Join(msgs, "; "))
}

func (u UserInfo) clone() UserInfo {
	c := u
	c.Interests = slices.Clone(u.Interests)
	c.PreviousDestinations = slices.Clone(u.PreviousDestinations)
	return c
}
