package history

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrepareForSubmission_MergesAdjacentRoles(t *testing.T) {
	h := History{
		{Role: RoleUser, Text: "a"},
		{Role: RoleUser, Text: "b"},
		{Role: RoleModel, Text: "c"},
		{Role: RoleModel, Text: "d"},
		{Role: RoleModel, Text: "e"},
		{Role: RoleUser, Text: "f"},
	}

	normalized, needsPlaceholder := PrepareForSubmission(h)

	require.False(t, needsPlaceholder)
	require.Equal(t, History{
		{Role: RoleUser, Text: "a\nb"},
		{Role: RoleModel, Text: "c\nd\ne"},
		{Role: RoleUser, Text: "f"},
	}, normalized)

	// The input must not be mutated by the merge.
	require.Equal(t, "a", h[0].Text)
	require.Equal(t, "c", h[2].Text)
}

func TestPrepareForSubmission_Empty(t *testing.T) {
	normalized, needsPlaceholder := PrepareForSubmission(History{})
	require.Empty(t, normalized)
	require.True(t, needsPlaceholder)
}

func TestPrepareForSubmission_ModelFirstNeedsPlaceholder(t *testing.T) {
	normalized, needsPlaceholder := PrepareForSubmission(History{
		{Role: RoleModel, Text: "leftover model turn"},
		{Role: RoleUser, Text: "question"},
	})

	require.True(t, needsPlaceholder)
	// The real model turn is preserved, not discarded.
	require.Equal(t, History{
		{Role: RoleModel, Text: "leftover model turn"},
		{Role: RoleUser, Text: "question"},
	}, normalized)
}

func TestPrepareForSubmission_SkipsMalformedEntries(t *testing.T) {
	normalized, needsPlaceholder := PrepareForSubmission(History{
		{Role: "system", Text: "bogus role"},
		{Role: RoleUser, Text: ""},
		{Role: RoleUser, Text: "hello"},
		{Role: RoleModel, Text: "hi"},
	})

	require.False(t, needsPlaceholder)
	require.Equal(t, History{
		{Role: RoleUser, Text: "hello"},
		{Role: RoleModel, Text: "hi"},
	}, normalized)
}

func TestPrepareForSubmission_NoAdjacentEqualRoles(t *testing.T) {
	cases := []History{
		{{Role: RoleUser, Text: "a"}},
		{{Role: RoleModel, Text: "a"}, {Role: RoleModel, Text: "b"}},
		{
			{Role: RoleUser, Text: "a"}, {Role: RoleUser, Text: "b"},
			{Role: RoleModel, Text: "c"}, {Role: RoleUser, Text: "d"},
			{Role: RoleUser, Text: "e"}, {Role: RoleModel, Text: "f"},
			{Role: RoleModel, Text: "g"},
		},
	}

	for _, h := range cases {
		normalized, needsPlaceholder := PrepareForSubmission(h)
		for i := 1; i < len(normalized); i++ {
			require.NotEqual(t, normalized[i-1].Role, normalized[i].Role,
				"adjacent roles at %d", i)
		}
		if len(normalized) > 0 {
			require.Equal(t, needsPlaceholder, normalized[0].Role != RoleUser)
		}
	}
}

func alternatingHistory(n int) History {
	h := make(History, 0, n)
	for i := 0; i < n; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleModel
		}
		h = append(h, Message{Role: role, Text: "m"})
	}
	return h
}

func TestEnforceCap_DropsOldest(t *testing.T) {
	// 25 alternating entries starting with user: dropping 5 leaves a model
	// entry first, which is dropped too.
	h := EnforceCap(alternatingHistory(25), 20)

	require.Len(t, h, 19)
	require.Equal(t, RoleUser, h[0].Role)
}

func TestEnforceCap_ExactCapKept(t *testing.T) {
	// Dropping an even number of entries keeps a user entry first.
	h := EnforceCap(alternatingHistory(24), 20)

	require.Len(t, h, 20)
	require.Equal(t, RoleUser, h[0].Role)
}

func TestEnforceCap_UnderCapUntouched(t *testing.T) {
	in := alternatingHistory(6)
	require.Equal(t, in, EnforceCap(in, 20))
}
