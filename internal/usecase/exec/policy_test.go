package exec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deckhand/internal/domain"
)

func mustPolicy(t *testing.T, specs ...RuleSpec) *DenylistPolicy {
	t.Helper()
	p, err := NewDenylistPolicy(specs)
	require.NoError(t, err)
	return p
}

func TestNewDenylistPolicy(t *testing.T) {
	t.Run("rejects empty rule value", func(t *testing.T) {
		_, err := NewDenylistPolicy([]RuleSpec{{Kind: RuleToken, Value: ""}})
		assert.Error(t, err)
	})

	t.Run("rejects invalid pattern", func(t *testing.T) {
		_, err := NewDenylistPolicy([]RuleSpec{{Kind: RulePattern, Value: "([unclosed"}})
		assert.Error(t, err)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		_, err := NewDenylistPolicy([]RuleSpec{{Kind: "glob", Value: "*"}})
		assert.Error(t, err)
	})
}

func TestEvaluateStructural(t *testing.T) {
	p := mustPolicy(t)

	tests := []struct {
		name    string
		command string
		denied  bool
	}{
		{"empty", "", true},
		{"whitespace only", "   \t ", true},
		{"invalid utf8", "ls \xff\xfe", true},
		{"null byte", "ls\x00-la", true},
		{"escape sequence", "ls\x1b[2J", true},
		{"tab is allowed", "ls\t-la", false},
		{"newline is allowed", "ls\nuptime", false},
		{"plain command", "uptime", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Evaluate(tt.command)
			if tt.denied {
				var violation *domain.PolicyViolation
				require.ErrorAs(t, err, &violation)
				assert.Equal(t, "structural", violation.Rule)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluateRules(t *testing.T) {
	p := mustPolicy(t,
		RuleSpec{Kind: RuleToken, Value: "mkfs"},
		RuleSpec{Kind: RulePrefix, Value: "shutdown"},
		RuleSpec{Kind: RulePattern, Value: `rm\s+-rf`},
	)

	t.Run("token matches anywhere", func(t *testing.T) {
		var violation *domain.PolicyViolation
		require.ErrorAs(t, p.Evaluate("echo hi && mkfs.ext4 /dev/sda"), &violation)
		assert.Equal(t, "token", violation.Rule)
		assert.Equal(t, "denylisted token: mkfs", violation.Reason)
	})

	t.Run("prefix matches only the start", func(t *testing.T) {
		var violation *domain.PolicyViolation
		require.ErrorAs(t, p.Evaluate("shutdown -h now"), &violation)
		assert.Equal(t, "prefix", violation.Rule)
		assert.Equal(t, "denylisted prefix: shutdown", violation.Reason)

		assert.NoError(t, p.Evaluate("echo shutdown"))
	})

	t.Run("prefix ignores leading whitespace", func(t *testing.T) {
		assert.Error(t, p.Evaluate("   shutdown -h now"))
	})

	t.Run("pattern reason names the expression", func(t *testing.T) {
		var violation *domain.PolicyViolation
		require.ErrorAs(t, p.Evaluate("rm  -rf /data"), &violation)
		assert.Equal(t, "pattern", violation.Rule)
		assert.Equal(t, `denylisted pattern: rm\s+-rf`, violation.Reason)
	})

	t.Run("benign command passes", func(t *testing.T) {
		assert.NoError(t, p.Evaluate("cat /var/log/app.log"))
	})
}

func TestEvaluateNeverAllowsEmbeddedToken(t *testing.T) {
	p := mustPolicy(t, RuleSpec{Kind: RuleToken, Value: "mkfs"})
	rng := rand.New(rand.NewSource(42))

	letters := []rune("abcdefghijklmnopqrstuvwxyz -/.")
	randomChunk := func() string {
		n := rng.Intn(12)
		chunk := make([]rune, n)
		for i := range chunk {
			chunk[i] = letters[rng.Intn(len(letters))]
		}
		return string(chunk)
	}

	// However the token is surrounded, the command must be denied.
	for i := 0; i < 500; i++ {
		command := randomChunk() + "mkfs" + randomChunk()
		assert.Error(t, p.Evaluate(command), "command %q", command)
	}
}
