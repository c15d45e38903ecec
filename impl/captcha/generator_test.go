package captcha

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var questionRe = regexp.MustCompile(`^(\d+) ([+\-×÷]) (\d+) = \?$`)

func newTestGenerator(seed int64) *Generator {
	return NewGenerator(rand.New(rand.NewSource(seed)))
}

func TestGenerateAnswerMatchesQuestion(t *testing.T) {
	g := newTestGenerator(1)
	for i := 0; i < 500; i++ {
		p := g.Generate()

		m := questionRe.FindStringSubmatch(p.Question)
		require.NotNil(t, m, "unexpected question format: %s", p.Question)

		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[3])
		var want int
		switch m[2] {
		case "+":
			want = a + b
		case "-":
			want = a - b
		case "×":
			want = a * b
		case "÷":
			want = a / b
			assert.Zero(t, a%b, "division must be exact: %s", p.Question)
		}
		assert.Equal(t, want, p.Answer, p.Question)
		assert.Positive(t, p.Answer)
	}
}

func TestGenerateOperandRanges(t *testing.T) {
	g := newTestGenerator(2)
	for i := 0; i < 500; i++ {
		p := g.Generate()
		m := questionRe.FindStringSubmatch(p.Question)
		require.NotNil(t, m)

		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[3])
		switch m[2] {
		case "+":
			assert.True(t, a >= 10 && a <= 99, p.Question)
			assert.True(t, b >= 10 && b <= 99, p.Question)
		case "-":
			assert.True(t, a >= 50 && a <= 99, p.Question)
			assert.True(t, b >= 10 && b <= 49, p.Question)
		case "×":
			assert.True(t, a >= 2 && a <= 12, p.Question)
			assert.True(t, b >= 2 && b <= 12, p.Question)
		case "÷":
			assert.True(t, b >= 2 && b <= 12, p.Question)
			assert.True(t, p.Answer >= 2 && p.Answer <= 20, p.Question)
		}
	}
}

func TestGenerateOptions(t *testing.T) {
	g := newTestGenerator(3)
	for i := 0; i < 500; i++ {
		p := g.Generate()

		require.Len(t, p.Options, 4)
		require.Contains(t, optionLetters, p.CorrectLetter)

		seen := map[int]bool{}
		for _, v := range p.Options {
			assert.Positive(t, v, "option must be positive in %v", p.Options)
			assert.False(t, seen[v], "duplicate option in %v", p.Options)
			seen[v] = true
		}

		slot := strings.Index("ABCD", p.CorrectLetter)
		require.GreaterOrEqual(t, slot, 0)
		assert.Equal(t, p.Answer, p.Options[slot])
	}
}

func TestGenerateCorrectSlotVaries(t *testing.T) {
	g := newTestGenerator(4)
	letters := map[string]int{}
	for i := 0; i < 400; i++ {
		letters[g.Generate().CorrectLetter]++
	}
	for _, l := range optionLetters {
		assert.Greater(t, letters[l], 0, "letter %s never chosen", l)
	}
}

func TestDecoySpreadTiers(t *testing.T) {
	assert.Equal(t, 5, decoySpread(4))
	assert.Equal(t, 5, decoySpread(10))
	assert.Equal(t, 15, decoySpread(11))
	assert.Equal(t, 15, decoySpread(50))
	assert.Equal(t, 30, decoySpread(51))
	assert.Equal(t, 30, decoySpread(198))
}

func TestRenderImageProducesPNG(t *testing.T) {
	g := newTestGenerator(5)
	data := g.RenderImage("12 + 34 = ?")
	require.NotEmpty(t, data)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}
