package game

// HiddenCard is what the presentation layers show for the dealer's hole
// card before reveal.
const HiddenCard = "?"

type HandView struct {
	Cards   []string `json:"cards"`
	Score   int      `json:"score"`
	Bet     int      `json:"bet"`
	Doubled bool     `json:"doubled,omitempty"`
	Busted  bool     `json:"busted,omitempty"`
	Active  bool     `json:"active,omitempty"`
	Outcome string   `json:"outcome,omitempty"`
}

type DealerView struct {
	Cards      []string `json:"cards"`
	Score      int      `json:"score,omitempty"`
	HoleHidden bool     `json:"holeHidden"`
}

// Snapshot is the immutable view handed to presentation layers after every
// action. The hole card is withheld while hidden so a client never sees it
// early.
type Snapshot struct {
	Phase      string      `json:"phase"`
	Balance    int         `json:"balance"`
	Bet        int         `json:"bet,omitempty"`
	Insurance  int         `json:"insurance,omitempty"`
	Dealer     *DealerView `json:"dealer,omitempty"`
	Main       *HandView   `json:"main,omitempty"`
	Split      *HandView   `json:"split,omitempty"`
	Message    string      `json:"message,omitempty"`
	NetProfit  int         `json:"netProfit,omitempty"`
	Pending    bool        `json:"pending,omitempty"`
	Suggestion string      `json:"suggestion,omitempty"`
	Actions    []string    `json:"actions"`
}

func (t *Table) CanDouble() bool {
	if t.phase != PhasePlayer || t.pendingAuto {
		return false
	}
	h := t.activeHand()
	return len(h.Cards) == 2 && !h.Doubled && h.Bet <= t.balance
}

func (t *Table) CanSplitHand() bool {
	if t.phase != PhasePlayer || t.pendingAuto || t.isSplit || t.active != HandMain {
		return false
	}
	h := t.main
	return len(h.Cards) == 2 && !h.Doubled &&
		CanSplit(h.Cards[0], h.Cards[1]) && h.Bet <= t.balance
}

func (t *Table) canReload() bool {
	return t.phase == PhaseBetting && t.balance < t.minBet && t.bet == 0
}

func (t *Table) legalActions() []string {
	switch t.phase {
	case PhaseBetting:
		actions := []string{"bet"}
		if t.bet > 0 {
			actions = append(actions, "start", "clearBet")
		}
		if t.canReload() {
			actions = append(actions, "reload")
		}
		return actions
	case PhaseInsurance:
		return []string{"insurance", "decline"}
	case PhasePlayer:
		if t.pendingAuto {
			return nil
		}
		actions := []string{"hit", "stand"}
		if t.CanDouble() {
			actions = append(actions, "double")
		}
		if t.CanSplitHand() {
			actions = append(actions, "split")
		}
		return actions
	case PhaseSettled:
		return []string{"newRound"}
	default:
		return nil
	}
}

func cardStrings(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

func (t *Table) handView(h *Hand, active bool) *HandView {
	return &HandView{
		Cards:   cardStrings(h.Cards),
		Score:   h.Score(),
		Bet:     h.Bet,
		Doubled: h.Doubled,
		Busted:  h.Busted,
		Active:  active && t.phase == PhasePlayer,
		Outcome: h.Outcome.String(),
	}
}

func (t *Table) dealerView() *DealerView {
	if t.holeHidden {
		return &DealerView{
			Cards:      []string{t.dealer[0].String(), HiddenCard},
			HoleHidden: true,
		}
	}
	return &DealerView{
		Cards: cardStrings(t.dealer),
		Score: Score(t.dealer),
	}
}

func (t *Table) Snapshot() Snapshot {
	snap := Snapshot{
		Phase:     t.phase.String(),
		Balance:   t.balance,
		Bet:       t.bet,
		Insurance: t.insurance,
		Message:   t.message,
		NetProfit: t.netProfit,
		Pending:   t.pendingAuto,
		Actions:   t.legalActions(),
	}

	if t.main != nil {
		snap.Main = t.handView(t.main, t.active == HandMain)
		snap.Dealer = t.dealerView()
	}
	if t.split != nil {
		snap.Split = t.handView(t.split, t.active == HandSplit)
	}

	if adv := t.Advice(); !adv.Empty() {
		snap.Suggestion = adv.String()
	}
	return snap
}
