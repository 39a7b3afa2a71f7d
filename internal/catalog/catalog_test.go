package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPqStringArrayFormatsPostgresLiteral(t *testing.T) {
	require.Equal(t, `{"english","french"}`, pqStringArray([]string{"english", "french"}))
	require.Equal(t, "{}", pqStringArray(nil))
}

func TestPqStringArrayEscapesQuotesAndBackslashes(t *testing.T) {
	require.Equal(t, `{"say \"hi\"","back\\slash"}`, pqStringArray([]string{`say "hi"`, `back\slash`}))
}
