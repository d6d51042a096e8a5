package domain

// PassPolicy decides the passed flag stored on a ResultRecord.
type PassPolicy struct {
	Ratio float64
}

// DefaultPassPolicy passes at half the questions.
var DefaultPassPolicy = PassPolicy{Ratio: 0.5}

func (p PassPolicy) Passed(score, total int) bool {
	if total <= 0 {
		return false
	}
	return float64(score)/float64(total) >= p.Ratio
}

// AdvancementPolicy decides whether a finished round unlocks the next one.
// Rounds with an absolute minimum advance on that minimum alone; the rest
// advance on the pass flag. Round 3 is the final stage and never advances.
type AdvancementPolicy struct {
	Minimums map[Round]int
}

// DefaultAdvancementPolicy gates Round 2 eligibility at 10 correct Round 1 answers.
var DefaultAdvancementPolicy = AdvancementPolicy{Minimums: map[Round]int{Round1: 10}}

func (p AdvancementPolicy) Advances(round Round, score int, passed bool) bool {
	if round >= Round3 {
		return false
	}
	if min, ok := p.Minimums[round]; ok {
		return score >= min
	}
	return passed
}
