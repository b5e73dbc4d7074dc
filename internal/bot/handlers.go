package bot

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"blackjack21/internal/config"
	"blackjack21/internal/game"
	"blackjack21/internal/player"
)

type Handler struct {
	bot     *tgbotapi.BotAPI
	cfg     *config.Config
	players player.Repository
	tables  *game.Manager
}

func NewHandler(bot *tgbotapi.BotAPI, cfg *config.Config, repo player.Repository) *Handler {
	return &Handler{
		bot:     bot,
		cfg:     cfg,
		players: repo,
		tables:  game.NewManager(),
	}
}

func identity(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

// ============== HELPERS ==============

func (h *Handler) send(chatID int64, text string) {
	if _, err := h.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (h *Handler) sendWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := h.bot.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (h *Handler) answerCallback(id, text string) {
	h.bot.Request(tgbotapi.NewCallback(id, text))
}

func (h *Handler) getPlayer(chatID int64, name string) (*player.Player, error) {
	return h.players.GetOrCreate(identity(chatID), name, h.cfg.StartBalance, h.cfg.DefaultBet)
}

func (h *Handler) savePlayer(p *player.Player) {
	if err := h.players.Save(p); err != nil {
		log.Printf("Failed to save player: %v", err)
	}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, game.ErrInvalidBet):
		return "Invalid bet"
	case errors.Is(err, game.ErrInsufficientFunds):
		return "Not enough credits"
	case errors.Is(err, game.ErrIllegalAction):
		return "You can't do that right now"
	case errors.Is(err, game.ErrEmptyDeck):
		return "The deck ran out"
	default:
		return "Something went wrong"
	}
}

func has(actions []string, action string) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

// ============== FORMATTING ==============

func formatState(snap game.Snapshot) string {
	var sb strings.Builder

	if snap.Dealer != nil {
		if snap.Dealer.HoleHidden {
			sb.WriteString(fmt.Sprintf("🃏 Dealer: [%s, ?]\n", snap.Dealer.Cards[0]))
		} else {
			sb.WriteString(fmt.Sprintf("🃏 Dealer: %s (%d)\n",
				strings.Join(snap.Dealer.Cards, " "), snap.Dealer.Score))
		}
	}

	if snap.Split != nil {
		sb.WriteString(formatHand("Hand 1", snap.Main))
		sb.WriteString(formatHand("Hand 2", snap.Split))
	} else if snap.Main != nil {
		sb.WriteString(formatHand("You", snap.Main))
	}

	if snap.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n💡 Advisor: %s", snap.Suggestion))
	}

	return sb.String()
}

func formatHand(label string, hv *game.HandView) string {
	marker := ""
	if hv.Active {
		marker = " ➡️"
	}
	return fmt.Sprintf("🎴 %s%s: %s (%d)\n",
		label, marker, strings.Join(hv.Cards, " "), hv.Score)
}

func formatEnd(snap game.Snapshot, p *player.Player) string {
	msg := formatState(snap)
	msg += fmt.Sprintf("\n%s", snap.Message)
	msg += fmt.Sprintf("\n💵 Balance: %d", p.Balance)
	return msg
}

// ============== COMMANDS ==============

func (h *Handler) HandleMessage(msg *tgbotapi.Message) {
	name := ""
	if msg.From != nil {
		name = msg.From.UserName
	}

	text := msg.Text
	chatID := msg.Chat.ID

	// updates arrive on separate goroutines but share the chat's table
	lock := h.tables.Locker(identity(chatID))
	lock.Lock()
	defer lock.Unlock()

	switch {
	case strings.HasPrefix(text, "/start"):
		h.HandleStart(chatID, name)
	case strings.HasPrefix(text, "/help"):
		h.HandleHelp(chatID)
	case strings.HasPrefix(text, "/balance"):
		h.HandleBalance(chatID, name)
	case strings.HasPrefix(text, "/top"):
		h.HandleTop(chatID)
	case strings.HasPrefix(text, "/play"):
		h.HandlePlay(chatID, name, strings.Fields(text)[1:])
	}
}

func (h *Handler) HandleStart(chatID int64, name string) {
	p, err := h.getPlayer(chatID, name)
	if err != nil {
		h.send(chatID, "❌ Error. Try again later.")
		return
	}

	h.send(chatID, fmt.Sprintf(
		"🎰 Welcome to Blackjack!\n\n"+
			"💵 Balance: %d\n\n"+
			"/play <bet> — play a round\n"+
			"/balance — your stats\n"+
			"/top — leaderboard\n"+
			"/help — rules",
		p.Balance))
}

func (h *Handler) HandleHelp(chatID int64) {
	h.send(chatID,
		"📖 Blackjack rules:\n\n"+
			"🎯 Goal: beat the dealer without going over 21\n\n"+
			"📊 Card values:\n"+
			"• 2-10 — face value\n"+
			"• J, Q, K — 10\n"+
			"• A — 11 or 1\n\n"+
			"🎮 Actions:\n"+
			"• Hit — take a card\n"+
			"• Stand — stop\n"+
			"• Double — double the bet, one card, auto-stand\n"+
			"• Split — split a pair into two hands\n"+
			"• Insurance — side bet when the dealer shows an ace\n\n"+
			"🎰 Blackjack pays 3:2, insurance pays 2:1\n"+
			"💡 The advisor suggests the basic-strategy move")
}

func (h *Handler) HandleBalance(chatID int64, name string) {
	p, err := h.getPlayer(chatID, name)
	if err != nil {
		h.send(chatID, "❌ Error")
		return
	}

	h.send(chatID, fmt.Sprintf(
		"💰 Balance: %d\n\n"+
			"📊 Stats:\n"+
			"🎮 Rounds: %d\n"+
			"✅ Wins: %d (%.1f%%)\n"+
			"❌ Losses: %d\n"+
			"🤝 Pushes: %d",
		p.Balance, p.Games, p.Wins, p.WinRate(), p.Losses, p.Draws))
}

func (h *Handler) HandleTop(chatID int64) {
	stats, err := h.players.GetTopByBalance(10)
	if err != nil {
		h.send(chatID, "❌ Error")
		return
	}

	if len(stats) == 0 {
		h.send(chatID, "🏆 Nobody has played yet!")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏆 Top players:\n\n")

	medals := []string{"🥇", "🥈", "🥉"}
	for i, s := range stats {
		medal := fmt.Sprintf("%d.", i+1)
		if i < 3 {
			medal = medals[i]
		}
		name := s.Name
		if name == "" {
			name = "anonymous"
		}
		sb.WriteString(fmt.Sprintf("%s %s — %d 💰 | %d rounds (%.0f%%)\n",
			medal, name, s.Balance, s.Games, s.WinRate))
	}

	h.send(chatID, sb.String())
}

func (h *Handler) HandlePlay(chatID int64, name string, args []string) {
	p, err := h.getPlayer(chatID, name)
	if err != nil {
		h.send(chatID, "❌ Error")
		return
	}

	bet := p.LastBet
	if len(args) > 0 {
		if b, err := strconv.Atoi(args[0]); err == nil && b > 0 {
			bet = b
		} else {
			h.send(chatID, fmt.Sprintf("❌ Invalid bet. Example: /play %d", h.cfg.DefaultBet))
			return
		}
	}

	if bet < h.cfg.MinBet || bet > h.cfg.MaxBet {
		h.send(chatID, fmt.Sprintf("❌ Bet must be between %d and %d", h.cfg.MinBet, h.cfg.MaxBet))
		return
	}

	h.startRound(chatID, p, bet)
}

// startRound places the bet and deals. Reused by /play and the play-again
// button.
func (h *Handler) startRound(chatID int64, p *player.Player, bet int) {
	id := identity(chatID)

	t := h.tables.Get(id)
	if t == nil {
		t = game.NewTable(p.Balance, h.cfg.MinBet)
		h.tables.Set(id, t)
	}

	switch t.Phase() {
	case game.PhaseSettled:
		if err := t.NewRound(); err != nil {
			h.send(chatID, "⚠️ "+errorText(err))
			return
		}
	case game.PhaseBetting:
	default:
		h.send(chatID, "⚠️ Finish the current round first")
		return
	}

	if t.Balance() < h.cfg.MinBet {
		h.sendWithKeyboard(chatID, "💸 You're out of credits!",
			ReloadKeyboard(h.cfg.StartBalance))
		return
	}

	if err := t.PlaceBet(bet); err != nil {
		h.send(chatID, fmt.Sprintf("❌ %s! Balance: %d", errorText(err), t.Balance()))
		return
	}
	p.LastBet = bet

	if err := t.Start(); err != nil {
		h.send(chatID, "⚠️ "+errorText(err))
		return
	}

	h.afterAction(chatID, p, t)
}

// ============== CALLBACKS ==============

func (h *Handler) HandleCallback(cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	name := cb.From.UserName

	h.answerCallback(cb.ID, "")

	// a double-tapped button must not race on the table
	lock := h.tables.Locker(identity(chatID))
	lock.Lock()
	defer lock.Unlock()

	p, err := h.getPlayer(chatID, name)
	if err != nil {
		h.send(chatID, "❌ Error")
		return
	}

	switch cb.Data {
	case CallbackBalance:
		h.HandleBalance(chatID, name)
		return
	case CallbackPlayAgain:
		h.startRound(chatID, p, p.LastBet)
		return
	case CallbackReload:
		h.handleReload(chatID, p)
		return
	}

	t := h.tables.Get(identity(chatID))
	if t == nil {
		h.send(chatID, "No game in progress. Use /play")
		return
	}

	switch cb.Data {
	case CallbackHit:
		err = t.Hit()
	case CallbackStand:
		err = t.Stand()
	case CallbackDouble:
		err = t.DoubleDown()
	case CallbackSplit:
		err = t.Split()
	case CallbackInsurance:
		err = t.TakeInsurance()
	case CallbackDecline:
		err = t.DeclineInsurance()
	default:
		return
	}

	if err != nil {
		h.send(chatID, "⚠️ "+errorText(err))
		return
	}

	h.afterAction(chatID, p, t)
}

func (h *Handler) handleReload(chatID int64, p *player.Player) {
	id := identity(chatID)

	t := h.tables.Get(id)
	if t == nil {
		t = game.NewTable(p.Balance, h.cfg.MinBet)
		h.tables.Set(id, t)
	}

	if err := t.Reload(h.cfg.StartBalance); err != nil {
		h.send(chatID, "⚠️ "+errorText(err))
		return
	}

	p.Balance = t.Balance()
	h.savePlayer(p)
	h.send(chatID, fmt.Sprintf("♻️ Reloaded! Balance: %d\n/play to deal", p.Balance))
}

// ============== ROUND FLOW ==============

// afterAction persists, renders the new state and, when the engine left an
// automatic transition pending, resolves it after the display delay.
func (h *Handler) afterAction(chatID int64, p *player.Player, t *game.Table) {
	snap := t.Snapshot()
	h.persist(p, t, snap)
	h.render(chatID, p, snap)

	if !t.PendingAuto() {
		return
	}

	time.Sleep(h.cfg.RevealDelay)
	if err := t.ResolvePending(); err != nil {
		h.send(chatID, "⚠️ "+errorText(err))
		return
	}

	snap = t.Snapshot()
	h.persist(p, t, snap)
	h.render(chatID, p, snap)
}

func (h *Handler) persist(p *player.Player, t *game.Table, snap game.Snapshot) {
	if snap.Phase == "settled" {
		if snap.Main != nil {
			p.RecordOutcome(snap.Main.Outcome)
		}
		if snap.Split != nil {
			p.RecordOutcome(snap.Split.Outcome)
		}
		p.FinishRound(t.Balance())
	} else {
		p.Balance = t.Balance()
	}
	h.savePlayer(p)
}

func (h *Handler) render(chatID int64, p *player.Player, snap game.Snapshot) {
	switch snap.Phase {
	case "settled":
		if p.Balance < h.cfg.MinBet {
			h.sendWithKeyboard(chatID, formatEnd(snap, p), ReloadKeyboard(h.cfg.StartBalance))
			return
		}
		h.sendWithKeyboard(chatID, formatEnd(snap, p), EndGameKeyboard(p.LastBet))
	case "insurance":
		h.sendWithKeyboard(chatID,
			formatState(snap)+"\n🛡 Dealer shows an ace. Take insurance?",
			InsuranceKeyboard())
	case "player":
		if snap.Pending {
			h.send(chatID, formatState(snap)+"\n⏳ ...")
			return
		}
		h.sendWithKeyboard(chatID, formatState(snap), GameKeyboard(GameKeyboardOptions{
			CanDouble: has(snap.Actions, "double"),
			CanSplit:  has(snap.Actions, "split"),
		}))
	default:
		h.send(chatID, formatState(snap))
	}
}
