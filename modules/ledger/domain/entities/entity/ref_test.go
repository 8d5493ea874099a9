package entity

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRef_UnmarshalJSON(t *testing.T) {
	var r Ref
	require.NoError(t, json.Unmarshal([]byte(`" Groceries "`), &r))
	require.Equal(t, Ref{Title: "Groceries"}, r)

	id := uuid.New()
	require.NoError(t, json.Unmarshal([]byte(`{"id":"`+id.String()+`"}`), &r))
	require.Equal(t, id, *r.ID)
	require.Empty(t, r.Title)

	var rs Refs
	require.NoError(t, json.Unmarshal([]byte(`"a; b;;"`), &rs))
	require.Equal(t, Refs{{Title: "a"}, {Title: "b"}}, rs)

	require.NoError(t, json.Unmarshal([]byte(`[{"title":"x"},"y"]`), &rs))
	require.Equal(t, Refs{{Title: "x"}, {Title: "y"}}, rs)
	require.True(t, Ref{}.IsZero())
}
