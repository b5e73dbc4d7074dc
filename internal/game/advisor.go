package game

// Advisor action tokens. They match the action names the presentation
// layers accept.
const (
	AdviceHit     = "hit"
	AdviceStand   = "stand"
	AdviceDouble  = "double"
	AdviceSplit   = "split"
	AdviceDecline = "decline"
)

type Advice struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

func (a Advice) Empty() bool {
	return a.Action == ""
}

func (a Advice) String() string {
	if a.Action == "" {
		return ""
	}
	if a.Reason == "" {
		return a.Action
	}
	return a.Action + " (" + a.Reason + ")"
}

// Advise maps the active hand, the dealer's up card and the currently
// legal actions to a basic-strategy recommendation. It never errors; with
// nothing to decide it returns the zero Advice.
func Advise(hand []Card, dealerUp Card, canSplit, canDouble, insuranceOffered bool) Advice {
	if len(hand) == 0 {
		return Advice{}
	}

	up := dealerUp.Rank.Value()

	if canSplit && len(hand) == 2 {
		if a, ok := pairAdvice(hand[0].Rank, up); ok {
			return a
		}
	}

	if insuranceOffered {
		return Advice{Action: AdviceDecline, Reason: "insurance is a losing side bet"}
	}

	score := Score(hand)
	switch {
	case score >= 17:
		return Advice{Action: AdviceStand, Reason: "your hand is strong enough"}
	case score <= 11:
		if canDouble && len(hand) == 2 && score >= 10 && up <= 9 {
			return Advice{Action: AdviceDouble, Reason: "strong position to double down"}
		}
		return Advice{Action: AdviceHit, Reason: "you cannot bust"}
	case score == 12:
		if up >= 4 && up <= 6 {
			return Advice{Action: AdviceStand, Reason: "dealer likely to bust"}
		}
		return Advice{Action: AdviceHit, Reason: "improve your hand"}
	case score <= 16:
		if up >= 2 && up <= 6 {
			return Advice{Action: AdviceStand, Reason: "dealer shows a weak card"}
		}
		return Advice{Action: AdviceHit, Reason: "dealer has a strong position"}
	default:
		return Advice{Action: AdviceHit, Reason: "build your hand"}
	}
}

// pairAdvice is the fixed pair table. Returning ok=false sends pairs the
// table does not name (4s, 5s, and low pairs against a strong dealer)
// through the normal score rules.
func pairAdvice(r Rank, up int) (Advice, bool) {
	switch {
	case r == Ace:
		return Advice{Action: AdviceSplit, Reason: "always split aces"}, true
	case r.Value() == 10:
		return Advice{Action: AdviceStand, Reason: "never split tens"}, true
	case r == Eight:
		return Advice{Action: AdviceSplit, Reason: "always split eights"}, true
	case r == Nine:
		if up == 7 || up == 10 || up == 11 {
			return Advice{Action: AdviceStand, Reason: "your 18 plays better as is"}, true
		}
		return Advice{Action: AdviceSplit, Reason: "two nines beat one eighteen here"}, true
	case r == Two || r == Three || r == Seven:
		if up >= 2 && up <= 7 {
			return Advice{Action: AdviceSplit, Reason: "dealer is weak enough to split"}, true
		}
	case r == Six:
		if up >= 2 && up <= 6 {
			return Advice{Action: AdviceSplit, Reason: "dealer is weak enough to split"}, true
		}
	}
	return Advice{}, false
}

// Advice recomputes the recommendation for the hand currently awaiting a
// decision.
func (t *Table) Advice() Advice {
	switch t.phase {
	case PhaseInsurance:
		return Advise(t.main.Cards, t.dealer[0], false, false, true)
	case PhasePlayer:
		if t.pendingAuto {
			return Advice{}
		}
		return Advise(t.activeHand().Cards, t.dealer[0], t.CanSplitHand(), t.CanDouble(), false)
	default:
		return Advice{}
	}
}
