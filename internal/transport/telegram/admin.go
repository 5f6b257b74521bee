package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"space-quiz-bot/internal/domain"
)

const pendingAddQuestion = "add_question"

// adminSessions tracks which admins owe the bot a follow-up message
// (e.g. the text of a new question). Entries expire so an abandoned
// prompt cannot swallow an unrelated message days later.
type adminSessions struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   func() time.Time
	pending map[int64]pendingInput
}

type pendingInput struct {
	kind      string
	expiresAt time.Time
}

func newAdminSessions(ttl time.Duration) *adminSessions {
	return &adminSessions{
		ttl:     ttl,
		clock:   time.Now,
		pending: make(map[int64]pendingInput),
	}
}

func (s *adminSessions) set(userID int64, kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[userID] = pendingInput{kind: kind, expiresAt: s.clock().Add(s.ttl)}
}

// take returns and clears the pending input for the user, dropping it
// silently if it expired.
func (s *adminSessions) take(userID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[userID]
	if !ok {
		return "", false
	}
	delete(s.pending, userID)
	if s.clock().After(p.expiresAt) {
		return "", false
	}
	return p.kind, true
}

func adminMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Questions", "admin_questions"),
			tgbotapi.NewInlineKeyboardButtonData("👥 Users", "admin_users"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Top 10", "admin_stats"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Close", "admin_close"),
		),
	)
}

func (b *Bot) handleAdminCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	userID := cb.From.ID
	if !b.isAdmin(userID) {
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	if position, ok := parseTrailingID(cb.Data, "delete_question_"); ok {
		deleted, err := b.engine.DeleteQuestion(ctx, position)
		if err != nil || !deleted {
			log.Printf("delete question %d failed: %v", position, err)
			b.send(chatID, "❌ Could not delete the question.")
			return
		}
		log.Printf("action=delete_question user=%d question=%d", userID, position)
		b.showQuestionList(ctx, chatID, messageID)
		return
	}
	if target, ok := parseTrailingID(cb.Data, "delete_user_"); ok {
		if err := b.engine.DeleteUser(ctx, target); err != nil {
			log.Printf("delete user %d failed: %v", target, err)
			b.send(chatID, "❌ Could not delete the user.")
			return
		}
		log.Printf("action=delete_user user=%d target=%d", userID, target)
		b.showUserList(ctx, chatID, messageID)
		return
	}

	switch cb.Data {
	case "admin_questions":
		b.showQuestionList(ctx, chatID, messageID)
	case "admin_users":
		b.showUserList(ctx, chatID, messageID)
	case "admin_stats":
		b.showAdminTop(ctx, chatID, messageID)
	case "add_question":
		b.sessions.set(userID, pendingAddQuestion)
		b.send(chatID, "📝 Send the question as:\n«prompt; option1; option2; option3; option4; correct»\nExample:\n«How many planets are in the Solar System?; 8; 9; 10; 7; 1»")
	case "admin_back":
		b.editMenu(chatID, messageID, "🔧 Admin panel", adminMenuKeyboard())
	case "admin_close":
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
			log.Printf("error closing admin panel: %v", err)
		}
	}
}

func (b *Bot) showQuestionList(ctx context.Context, chatID int64, messageID int) {
	questions, err := b.engine.ListQuestions(ctx)
	if err != nil {
		log.Printf("list questions failed: %v", err)
		b.send(chatID, "😔 Something went wrong, please try again.")
		return
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, q := range questions {
		label := q.Prompt
		if len([]rune(label)) > 20 {
			label = string([]rune(label)[:20]) + "..."
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("❌ %d: %s", q.Position, label),
				fmt.Sprintf("delete_question_%d", q.Position),
			),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Add question", "add_question"),
		tgbotapi.NewInlineKeyboardButtonData("🔙 Back", "admin_back"),
	))
	b.editMenu(chatID, messageID, "📚 Questions:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) showUserList(ctx context.Context, chatID int64, messageID int) {
	users, err := b.engine.ListUsers(ctx)
	if err != nil {
		log.Printf("list users failed: %v", err)
		b.send(chatID, "😔 Something went wrong, please try again.")
		return
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, user := range users {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🗑 %s (ID: %d)", user.DisplayName, user.ID),
				fmt.Sprintf("delete_user_%d", user.ID),
			),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 Back", "admin_back"),
	))
	b.editMenu(chatID, messageID, "👥 Users:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) showAdminTop(ctx context.Context, chatID int64, messageID int) {
	top, err := b.engine.Top(ctx, 10)
	if err != nil {
		log.Printf("admin top failed: %v", err)
		b.send(chatID, "😔 Something went wrong, please try again.")
		return
	}
	text := "🏆 Top 10:\n\n"
	for _, entry := range top {
		text += fmt.Sprintf("%d. %s — %s\n", entry.Rank, entry.DisplayName, formatDuration(entry.TotalTime))
	}
	if len(top) == 0 {
		text += "No results yet.\n"
	}
	back := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Back", "admin_back"),
		),
	)
	b.editMenu(chatID, messageID, text, back)
}

func (b *Bot) addQuestionFromInput(ctx context.Context, chatID int64, input string) {
	q, err := parseQuestionInput(input)
	if err != nil {
		b.send(chatID, fmt.Sprintf("❌ Error: %v", err))
		return
	}
	position, err := b.engine.AddQuestion(ctx, q)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuestion) {
			b.send(chatID, "❌ Invalid question, nothing was added.")
			return
		}
		log.Printf("add question failed: %v", err)
		b.send(chatID, "😔 Something went wrong, please try again.")
		return
	}
	b.send(chatID, fmt.Sprintf("✅ Question added at position %d!", position))
}

func (b *Bot) editMenu(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("error editing admin menu: %v", err)
	}
}
