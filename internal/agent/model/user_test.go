package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	errx "github.com/wayfarer-planner/server/internal/core/error"
)

func validUser() UserInfo {
	return UserInfo{
		Budget:     1500,
		Interests:  []string{"beaches"},
		Duration:   7,
		Origin:     "London",
		TravelDate: "2026-11-20",
	}
}

func TestUserInfo_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(u *UserInfo)
		wantErr bool
	}{
		{name: "valid", mutate: func(u *UserInfo) {}},
		{name: "zero budget allowed", mutate: func(u *UserInfo) { u.Budget = 0 }},
		{name: "negative budget", mutate: func(u *UserInfo) { u.Budget = -1 }, wantErr: true},
		{name: "duration too short", mutate: func(u *UserInfo) { u.Duration = 0 }, wantErr: true},
		{name: "duration too long", mutate: func(u *UserInfo) { u.Duration = 31 }, wantErr: true},
		{name: "missing origin", mutate: func(u *UserInfo) { u.Origin = "" }, wantErr: true},
		{name: "bad date", mutate: func(u *UserInfo) { u.TravelDate = "20/11/2026" }, wantErr: true},
		{name: "empty interest", mutate: func(u *UserInfo) { u.Interests = []string{""} }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := validUser()
			tt.mutate(&u)
			err := u.Validate()
			if tt.wantErr {
				assert.True(t, errx.IsKind(err, errx.KindConfiguration), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
