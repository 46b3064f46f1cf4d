package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAge(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 18, Age(time.Date(2008, 6, 15, 0, 0, 0, 0, time.UTC), now), "birthday today")
	assert.Equal(t, 17, Age(time.Date(2008, 6, 16, 0, 0, 0, 0, time.UTC), now), "birthday tomorrow")
	assert.Equal(t, 36, Age(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), now))
}

func TestValidate_FieldNamesComeFromJSONTags(t *testing.T) {
	type payload struct {
		FullName string `json:"full_name" validate:"required"`
	}
	errs, err := Validate(payload{})
	require.NoError(t, err)
	require.Contains(t, errs, "full_name")
	assert.Equal(t, []string{"This field is required"}, errs["full_name"])
}

func TestValidate_CustomTags(t *testing.T) {
	type payload struct {
		Username       string `json:"username" validate:"omitempty,username"`
		BarNumber      string `json:"bar_number" validate:"omitempty,barnum"`
		Specialization string `json:"specialization" validate:"omitempty,practicearea"`
		DateOfBirth    string `json:"date_of_birth" validate:"omitempty,adult"`
	}

	ok, err := Validate(payload{
		Username:       "j.doe+law@firm",
		BarNumber:      "BAR 123/45",
		Specialization: "immigration",
		DateOfBirth:    "1990-01-01",
	})
	require.NoError(t, err)
	assert.Nil(t, ok)

	bad, err := Validate(payload{
		Username:       "has spaces!",
		BarNumber:      "x",
		Specialization: "astrology",
		DateOfBirth:    time.Now().AddDate(-17, 0, 0).Format("2006-01-02"),
	})
	require.NoError(t, err)
	assert.Contains(t, bad, "username")
	assert.Contains(t, bad, "bar_number")
	assert.Contains(t, bad, "specialization")
	assert.Contains(t, bad, "date_of_birth")
}
