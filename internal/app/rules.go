package app

import "contest-service/internal/domain"

// Rules are the competition settings the backend enforces.
type Rules struct {
	// Variants lists the allowed languages or tracks per round. A round with
	// no entry takes the empty variant only.
	Variants      map[domain.Round][]string
	QuestionLimit int
	Pass          domain.PassPolicy
	Advancement   domain.AdvancementPolicy
}

func DefaultRules() Rules {
	return Rules{
		Variants: map[domain.Round][]string{
			domain.Round1: {"python", "c"},
			domain.Round3: {string(domain.TrackDSA), string(domain.TrackWeb)},
		},
		QuestionLimit: 20,
		Pass:          domain.DefaultPassPolicy,
		Advancement:   domain.DefaultAdvancementPolicy,
	}
}

// ValidVariant reports whether variant is playable for round.
func (r Rules) ValidVariant(round domain.Round, variant string) bool {
	allowed := r.Variants[round]
	if len(allowed) == 0 {
		return variant == ""
	}
	for _, v := range allowed {
		if v == variant {
			return true
		}
	}
	return false
}

