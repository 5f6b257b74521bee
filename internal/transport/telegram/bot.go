package telegram

import (
	"context"
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"space-quiz-bot/internal/app"
	"space-quiz-bot/internal/domain"
)

// Bot is the chat interface adapter: it turns Telegram updates into
// engine intents and engine render instructions into messages.
type Bot struct {
	api      *tgbotapi.BotAPI
	engine   *app.QuizService
	admins   map[int64]struct{}
	sessions *adminSessions
}

func NewBot(token string, engine *app.QuizService, adminIDs []int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Bot{
		api:      api,
		engine:   engine,
		admins:   admins,
		sessions: newAdminSessions(10 * time.Minute),
	}, nil
}

// Run consumes updates until the context is canceled.
func (b *Bot) Run(ctx context.Context) {
	log.Printf("authorized on account %s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			}
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
			}
		}
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	_, ok := b.admins[userID]
	return ok
}

func displayName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return "@" + user.UserName
	}
	return user.FirstName
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	switch msg.Command() {
	case "start":
		log.Printf("action=start user=%d", userID)
		b.send(msg.Chat.ID, "🚀 Welcome to the space quiz!\n\nAnswer every question correctly as fast as you can and climb the leaderboard.\nUse /help to see the available commands.")
	case "help":
		log.Printf("action=help user=%d", userID)
		text := "▶️ /start_quiz — start the quiz\n📊 /stats — your statistics\n🏆 /top — leaderboard\n🎁 /get_prize — claim your prize\n👨‍🚀 /author — about the bot\n"
		if b.isAdmin(userID) {
			text += "🔧 /admin — admin panel\n"
		}
		b.send(msg.Chat.ID, text)
	case "start_quiz":
		log.Printf("action=start_quiz user=%d", userID)
		b.beginQuiz(ctx, msg.Chat.ID, userID, displayName(msg.From))
	case "stats":
		log.Printf("action=stats user=%d", userID)
		b.sendStats(ctx, msg.Chat.ID, userID)
	case "top":
		log.Printf("action=top user=%d", userID)
		b.sendTop(ctx, msg.Chat.ID)
	case "get_prize":
		log.Printf("action=get_prize user=%d", userID)
		b.sendPrize(ctx, msg.Chat.ID, userID)
	case "author":
		log.Printf("action=author user=%d", userID)
		b.send(msg.Chat.ID, "👨‍🚀 Space quiz bot.\nQuestions and feedback: ask the quiz admins.")
	case "admin":
		if !b.isAdmin(userID) {
			b.send(msg.Chat.ID, "⛔ Access denied.")
			return
		}
		log.Printf("action=admin user=%d", userID)
		reply := tgbotapi.NewMessage(msg.Chat.ID, "🔧 Admin panel")
		reply.ReplyMarkup = adminMenuKeyboard()
		b.sendMessage(reply)
	case "":
		if b.isAdmin(userID) {
			if kind, ok := b.sessions.take(userID); ok && kind == pendingAddQuestion {
				b.addQuestionFromInput(ctx, msg.Chat.ID, msg.Text)
				return
			}
		}
	default:
		b.send(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if questionID, option, ok := parseAnswerCallback(cb.Data); ok {
		b.handleAnswer(ctx, cb, questionID, option)
		return
	}
	b.ack(cb.ID, "")
	switch cb.Data {
	case "start_quiz":
		b.beginQuiz(ctx, cb.Message.Chat.ID, cb.From.ID, displayName(cb.From))
	case "leaderboard":
		b.sendTop(ctx, cb.Message.Chat.ID)
	default:
		b.handleAdminCallback(ctx, cb)
	}
}

func (b *Bot) beginQuiz(ctx context.Context, chatID, userID int64, name string) {
	render, err := b.engine.Begin(ctx, userID, name)
	if err != nil {
		log.Printf("begin failed for user %d: %v", userID, err)
		b.send(chatID, "😔 Something went wrong, please try again.")
		return
	}
	if render.Kind == domain.RenderNoQuestions {
		b.send(chatID, "❌ No questions available yet!")
		return
	}
	b.sendQuestion(ctx, chatID, userID, render.Question)
}

func (b *Bot) handleAnswer(ctx context.Context, cb *tgbotapi.CallbackQuery, questionID int64, option int) {
	userID := cb.From.ID
	render, err := b.engine.Answer(ctx, userID, questionID, option)
	if err != nil {
		log.Printf("answer failed for user %d: %v", userID, err)
		b.ack(cb.ID, "😔 Something went wrong, please try again.")
		return
	}

	switch render.Kind {
	case domain.RenderStale:
		// Superseded message; acknowledge quietly.
		b.ack(cb.ID, "")
	case domain.RenderIncorrect:
		b.ack(cb.ID, "❌ Wrong! Try again.")
		if render.Question.Hint != "" {
			b.send(cb.Message.Chat.ID, "💡 "+render.Question.Hint)
		}
	case domain.RenderQuestion:
		b.ack(cb.ID, "✅ Correct!")
		b.editToQuestion(ctx, cb.Message.Chat.ID, cb.Message.MessageID, userID, render.Question)
	case domain.RenderFinished:
		b.ack(cb.ID, "✅ Correct!")
		b.editToResult(ctx, cb.Message.Chat.ID, cb.Message.MessageID, userID, render.Result)
	}
}

func (b *Bot) questionText(ctx context.Context, userID int64, q domain.Question) string {
	total := 0
	if summary, err := b.engine.ProgressSummary(ctx, userID); err == nil {
		total = summary.Total
	}
	return fmt.Sprintf("❓ Question %d/%d\n\n%s", q.Position, total, q.Prompt)
}

func questionKeyboard(q domain.Question) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, option := range q.Options {
		data := answerCallbackData(q.Position, i+1)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(option, data),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) sendQuestion(ctx context.Context, chatID, userID int64, q domain.Question) {
	b.sendMedia(chatID, q)
	msg := tgbotapi.NewMessage(chatID, b.questionText(ctx, userID, q))
	msg.ReplyMarkup = questionKeyboard(q)
	b.sendMessage(msg)
}

func (b *Bot) editToQuestion(ctx context.Context, chatID int64, messageID int, userID int64, q domain.Question) {
	b.sendMedia(chatID, q)
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, b.questionText(ctx, userID, q), questionKeyboard(q))
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("error editing question: %v", err)
	}
}

func (b *Bot) sendMedia(chatID int64, q domain.Question) {
	if q.MediaPath == "" {
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(q.MediaPath))
	if _, err := b.api.Send(photo); err != nil {
		log.Printf("error sending media for question %d: %v", q.Position, err)
	}
}

func (b *Bot) editToResult(ctx context.Context, chatID int64, messageID int, userID int64, result domain.QuizResult) {
	text := fmt.Sprintf("🎉 Quiz complete!\n\n⏱ Your time: %s", formatDuration(result.TotalTime))
	if result.NewBest {
		if stats, err := b.engine.Stats(ctx, userID); err == nil && stats.Ranked {
			text += fmt.Sprintf("\n🏆 New personal best! You are #%d on the leaderboard.", stats.Rank)
		} else {
			text += "\n🏆 New personal best!"
		}
	} else {
		text += "\nYour previous best still stands."
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 Play again", "start_quiz"),
			tgbotapi.NewInlineKeyboardButtonData("🏆 Leaderboard", "leaderboard"),
		),
	)
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("error editing result: %v", err)
	}
}

func (b *Bot) sendStats(ctx context.Context, chatID, userID int64) {
	summary, err := b.engine.ProgressSummary(ctx, userID)
	if err != nil {
		log.Printf("stats failed for user %d: %v", userID, err)
		b.send(chatID, "😔 Something went wrong, please try again.")
		return
	}
	text := fmt.Sprintf("📊 Your statistics:\n\n• Questions completed: %d/%d\n", summary.Completed, summary.Total)

	stats, err := b.engine.Stats(ctx, userID)
	if err != nil {
		log.Printf("stats failed for user %d: %v", userID, err)
		b.send(chatID, "😔 Something went wrong, please try again.")
		return
	}
	if stats.Ranked {
		text += fmt.Sprintf("• Best time: %s\n• Leaderboard position: %d", formatDuration(stats.TotalTime), stats.Rank)
	} else {
		text += "• Best time: —\n• Leaderboard position: 🚫"
	}
	b.send(chatID, text)
}

func (b *Bot) sendTop(ctx context.Context, chatID int64) {
	top, err := b.engine.Top(ctx, 10)
	if err != nil {
		log.Printf("top failed: %v", err)
		b.send(chatID, "😔 Something went wrong, please try again.")
		return
	}
	if len(top) == 0 {
		b.send(chatID, "🏆 Leaderboard\n\nNo results yet. Be the first! 🎯")
		return
	}
	text := "🏆 Top players\n\n"
	for _, entry := range top {
		medal := "🔸"
		switch entry.Rank {
		case 1:
			medal = "🥇"
		case 2:
			medal = "🥈"
		case 3:
			medal = "🥉"
		}
		text += fmt.Sprintf("%s %d. %s — %s\n", medal, entry.Rank, entry.DisplayName, formatDuration(entry.TotalTime))
	}
	b.send(chatID, text)
}

func (b *Bot) sendPrize(ctx context.Context, chatID, userID int64) {
	summary, err := b.engine.ProgressSummary(ctx, userID)
	if err != nil {
		log.Printf("prize check failed for user %d: %v", userID, err)
		b.send(chatID, "😔 Something went wrong, please try again.")
		return
	}
	if summary.Total > 0 && summary.Completed == summary.Total {
		b.send(chatID, "🎉 Congratulations on finishing the quiz!\nEnjoy your victory and try to beat your time! 🚀")
		return
	}
	b.send(chatID, fmt.Sprintf("❌ Finish every question to claim the prize!\nCompleted: %d/%d", summary.Completed, summary.Total))
}

func (b *Bot) ack(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Printf("error answering callback: %v", err)
	}
}

func (b *Bot) send(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("error sending message: %v", err)
	}
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%d sec", int(d.Seconds()))
}
