package captcha

import (
	"fmt"
	"math/rand"
	"sync"
)

// Letters a challenge answer can take, in keyboard order.
var optionLetters = []string{"A", "B", "C", "D"}

// Problem is one generated arithmetic challenge: a question line, four
// candidate values and the letter of the correct one.
type Problem struct {
	Question      string
	Answer        int
	Options       []int
	CorrectLetter string
}

// Generator produces arithmetic problems with plausible wrong options.
// The rand source is injectable so tests stay deterministic; the mutex
// makes the shared source safe under concurrent update handlers.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGenerator(rnd *rand.Rand) *Generator {
	return &Generator{rnd: rnd}
}

// Generate picks one of four operations and builds a problem whose
// answer is always a positive integer.
func (g *Generator) Generate() *Problem {
	g.mu.Lock()
	defer g.mu.Unlock()

	var a, b, answer int
	var op string

	switch g.rnd.Intn(4) {
	case 0: // addition
		a = 10 + g.rnd.Intn(90)
		b = 10 + g.rnd.Intn(90)
		answer = a + b
		op = "+"
	case 1: // subtraction, minuend larger so the result stays positive
		a = 50 + g.rnd.Intn(50)
		b = 10 + g.rnd.Intn(40)
		answer = a - b
		op = "-"
	case 2: // multiplication
		a = 2 + g.rnd.Intn(11)
		b = 2 + g.rnd.Intn(11)
		answer = a * b
		op = "×"
	default: // division, dividend built from divisor and quotient
		b = 2 + g.rnd.Intn(11)
		answer = 2 + g.rnd.Intn(19)
		a = b * answer
		op = "÷"
	}

	options, correct := g.buildOptions(answer)
	return &Problem{
		Question:      fmt.Sprintf("%d %s %d = ?", a, op, b),
		Answer:        answer,
		Options:       options,
		CorrectLetter: correct,
	}
}

// buildOptions surrounds the answer with three distinct positive decoys
// and places it at a uniformly random slot.
func (g *Generator) buildOptions(answer int) ([]int, string) {
	spread := decoySpread(answer)

	seen := map[int]bool{answer: true}
	decoys := make([]int, 0, 3)
	for len(decoys) < 3 {
		offset := g.rnd.Intn(2*spread+1) - spread
		candidate := answer + offset
		if candidate <= 0 || seen[candidate] {
			continue
		}
		seen[candidate] = true
		decoys = append(decoys, candidate)
	}

	slot := g.rnd.Intn(len(optionLetters))
	options := make([]int, 0, len(optionLetters))
	options = append(options, decoys[:slot]...)
	options = append(options, answer)
	options = append(options, decoys[slot:]...)
	return options, optionLetters[slot]
}

// decoySpread keeps wrong options near enough to the answer that they
// are not trivially dismissible.
func decoySpread(answer int) int {
	switch {
	case answer <= 10:
		return 5
	case answer <= 50:
		return 15
	default:
		return 30
	}
}
