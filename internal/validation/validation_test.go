package validation

import (
	"strings"
	"testing"

	"github.com/hyperengineering/pulse/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestValidateUTF8(t *testing.T) {
	for _, v := range []string{"hello world", "", "Hello, 世界", "Hello 👋🏻"} {
		assert.Nil(t, ValidateUTF8("field", v), "value %q", v)
	}

	err := ValidateUTF8("action", string([]byte{0xff, 0xfe}))
	require.NotNil(t, err)
	assert.Equal(t, "action", err.Field)
}

func TestValidateNoNullBytes(t *testing.T) {
	assert.Nil(t, ValidateNoNullBytes("field", "clean"))

	err := ValidateNoNullBytes("resource_type", "task\x00")
	require.NotNil(t, err)
	assert.Equal(t, "resource_type", err.Field)
}

func TestValidateMaxLength(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"within", strings.Repeat("a", 10), false},
		{"at limit", strings.Repeat("a", 64), false},
		{"exceeds", strings.Repeat("a", 65), true},
		{"multibyte counts runes", strings.Repeat("👋", 64), false},
		{"multibyte exceeds", strings.Repeat("👋", 65), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMaxLength("field", tt.value, 64)
			if tt.wantErr {
				require.NotNil(t, err)
				assert.Contains(t, err.Message, "64")
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

func TestValidateULID(t *testing.T) {
	for _, v := range []string{"01ARYZ6S41TSV4RRFFQ69G5FAV", "01J5K8ZQXR2N4M6P8T0V2W4Y6A"} {
		assert.Nil(t, ValidateULID("id", v), "value %q", v)
	}

	for _, v := range []string{"", "01ARYZ6S41", "01ARYZ6S41TSV4RRFFQ69G5FAVX", "01ARYZ6S41TSV4RRFFQ69G5FAU"} {
		err := ValidateULID("id", v)
		require.NotNil(t, err, "value %q", v)
		assert.Equal(t, "id", err.Field)
	}
}

func TestValidateUUID(t *testing.T) {
	assert.Nil(t, ValidateUUID("user_id", "9b8a7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"))

	for _, v := range []string{
		"",
		"not-a-uuid",
		"9b8a7c6d5e4f4a3b8c2d1e0f9a8b7c6d",
		"urn:uuid:9b8a7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d",
		"9b8a7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6z",
	} {
		assert.NotNil(t, ValidateUUID("user_id", v), "value %q", v)
	}
}

func TestValidateRequired(t *testing.T) {
	assert.Nil(t, ValidateRequired("action_map_id", "abc"))

	for _, v := range []string{"", "   ", "\t\n"} {
		err := ValidateRequired("action_map_id", v)
		require.NotNil(t, err)
		assert.Contains(t, err.Message, "required")
	}
}

func TestValidateEnum(t *testing.T) {
	allowed := []string{"weekly", "monthly"}

	assert.Nil(t, ValidateEnum("period", "weekly", allowed))

	err := ValidateEnum("period", "Weekly", allowed)
	require.NotNil(t, err, "enum matching is case sensitive")
	assert.Equal(t, "must be one of: weekly, monthly", err.Message)
}

func TestValidateIntRange(t *testing.T) {
	assert.Nil(t, ValidateIntRange("limit", 1, 1, 100))
	assert.Nil(t, ValidateIntRange("limit", 100, 1, 100))

	err := ValidateIntRange("limit", 0, 1, 100)
	require.NotNil(t, err)
	assert.Equal(t, "must be between 1 and 100", err.Message)

	assert.NotNil(t, ValidateIntRange("limit", 101, 1, 100))
}

func TestValidateMinInt(t *testing.T) {
	assert.Nil(t, ValidateMinInt("target_count", 1, 1))
	assert.NotNil(t, ValidateMinInt("target_count", 0, 1))
}

func TestValidateIdentifier(t *testing.T) {
	assert.Nil(t, ValidateIdentifier("action", "status_change"))
	assert.NotNil(t, ValidateIdentifier("action", strings.Repeat("x", 65)))
	assert.NotNil(t, ValidateIdentifier("action", "a\x00b"))
}

func TestCollector(t *testing.T) {
	var c Collector
	assert.False(t, c.HasErrors())
	assert.Empty(t, c.Errors())

	c.Add(nil)
	assert.False(t, c.HasErrors())

	c.Add(&ValidationError{Field: "a", Message: "bad"})
	c.Add(nil)
	c.Add(&ValidationError{Field: "b", Message: "worse"})

	require.True(t, c.HasErrors())
	errs := c.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, "a", errs[0].Field)
	assert.Equal(t, "b", errs[1].Field)
}

func TestValidateGoalInput(t *testing.T) {
	tests := []struct {
		name       string
		in         types.GoalInput
		wantFields []string
	}{
		{"weekly defaults", types.GoalInput{Period: "weekly", TargetCount: 10}, nil},
		{"monthly explicit", types.GoalInput{Period: "monthly", TargetCount: 1, Year: intPtr(2026), WeekOrMonth: intPtr(12)}, nil},
		{"week 53", types.GoalInput{Period: "weekly", TargetCount: 3, WeekOrMonth: intPtr(53)}, nil},
		{"unknown period", types.GoalInput{Period: "daily", TargetCount: 3}, []string{"period"}},
		{"zero target", types.GoalInput{Period: "weekly", TargetCount: 0}, []string{"target_count"}},
		{"month 13", types.GoalInput{Period: "monthly", TargetCount: 3, WeekOrMonth: intPtr(13)}, []string{"week_or_month"}},
		{"week 54", types.GoalInput{Period: "weekly", TargetCount: 3, WeekOrMonth: intPtr(54)}, nil},
		{"week 55", types.GoalInput{Period: "weekly", TargetCount: 3, WeekOrMonth: intPtr(55)}, []string{"week_or_month"}},
		{"week 0", types.GoalInput{Period: "weekly", TargetCount: 3, WeekOrMonth: intPtr(0)}, []string{"week_or_month"}},
		{"year too early", types.GoalInput{Period: "weekly", TargetCount: 3, Year: intPtr(1999)}, []string{"year"}},
		{
			"everything wrong",
			types.GoalInput{Period: "", TargetCount: -1, Year: intPtr(10000), WeekOrMonth: intPtr(60)},
			[]string{"period", "target_count", "year"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateGoalInput(tt.in)
			fields := make([]string, 0, len(errs))
			for _, e := range errs {
				fields = append(fields, e.Field)
			}
			if tt.wantFields == nil {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}
