package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitials(t *testing.T) {
	t.Parallel()

	require.Equal(t, "M", Member{Name: "Meet"}.Initials())
	require.Equal(t, "BW", Member{Name: "Bob will"}.Initials())
	require.Equal(t, "CB", Member{Name: "  Charlie   black "}.Initials())
	require.Equal(t, "", Member{}.Initials())
}

func TestStaticServiceDefaults(t *testing.T) {
	t.Parallel()

	members, err := NewStaticService().Members(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 3)
	require.Equal(t, "bob.w@example.com", members[1].Email)

	members[0].Name = "changed"
	again, _ := NewStaticService().Members(context.Background())
	require.Equal(t, "Meet", again[0].Name)
}

func TestStaticServiceCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStaticService().Members(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
