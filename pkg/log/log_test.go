package log

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicolasMassart/tessera/pkg/confutil"
	"github.com/NicolasMassart/tessera/pkg/tmconf"
)

func TestLReturnsRootLoggerWhenNoneAttached(t *testing.T) {
	entry := L(context.Background())
	require.NotNil(t, entry)
}

func TestWithLogFieldAttachesAndTruncates(t *testing.T) {
	ctx := context.Background()
	long := strings.Repeat("x", maxFieldLen+10)

	ctx = WithLogField(ctx, "key", long)
	entry := L(ctx)

	v, ok := entry.Data["key"]
	require.True(t, ok)
	assert.Len(t, v.(string), maxFieldLen)
}

func TestWithLogFieldLeavesShortValuesUntouched(t *testing.T) {
	ctx := WithLogField(context.Background(), "key", "short")
	entry := L(ctx)
	assert.Equal(t, "short", entry.Data["key"])
}

func TestWithLoggerRoundTrips(t *testing.T) {
	ctx := WithLogField(context.Background(), "a", "1")
	inner := L(ctx)
	ctx2 := WithLogger(context.Background(), inner)
	assert.Same(t, inner, L(ctx2))
}

func TestSetLevelIgnoresInvalidLevel(t *testing.T) {
	SetLevel("debug")
	assert.True(t, IsDebugEnabled())
	SetLevel("not-a-real-level")
	assert.True(t, IsDebugEnabled(), "an invalid level string must not reset the level")
	SetLevel("info")
}

func TestInitConfigAcceptsEachFormat(t *testing.T) {
	for _, format := range []string{"json", "simple", "prefixed", ""} {
		InitConfig(&tmconf.LogConfig{
			Level:  confutil.P("warn"),
			Format: confutil.P(format),
		})
		assert.Equal(t, "warning", root.GetLevel().String())
	}
	InitConfig(&tmconf.LogConfig{Level: confutil.P("info")})
}

func TestInitConfigFallsBackOnInvalidLevel(t *testing.T) {
	InitConfig(&tmconf.LogConfig{Level: confutil.P("not-a-level")})
	assert.Equal(t, "info", root.GetLevel().String())
}
