package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"rea_rating_bot/internal/app"
	"rea_rating_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// User-facing texts. Kept short and informal, matching the bot's voice.
const (
	replyOK           = "👌"
	replyError        = "⚠️"
	replyUnknownInput = "😑"

	replyLoginUsage    = "Использование: /logininfo <логин> <пароль>"
	replySemesterUsage = "Семестр, епта, от 1 до 8, если кто не знал"
	replySemesterOK    = "👌, Теперь придется подождать, пока твой рейтинг обновится, я пришлю уведомление (не больше 20 минут))"
	replyNeedLogin     = "Надо ввести логин, пароль и семестр"
	replyEmptyRating   = "У тебя пустой рейтинг"

	replyHelp = "Доступные команды:\n" +
		"/logininfo <логин> <пароль> - сохранить логин от портала\n" +
		"/semester <1-8> - выбрать семестр (сбрасывает сохраненный рейтинг)\n" +
		"/getrating - показать сохраненный рейтинг\n" +
		"/help - это сообщение"
)

// RegisterBotCommands wires the chat command surface: registration,
// credential entry, semester selection and rendering the stored rating,
// plus the inline-query view of the same rating.
func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	accounts *app.AccountService,
	baseLogger *logrus.Entry,
) {
	logger := baseLogger.WithField("handler_group", "bot_commands")

	b.Handle("/start", func(c telebot.Context) error {
		logCtx := logger.WithField("command", "/start").WithField("chat_id", c.Chat().ID)

		if _, err := accounts.GetOrCreate(ctx, c.Chat().ID); err != nil {
			logCtx.WithError(err).Error("Failed to register student")
			return c.Send(replyError)
		}
		logCtx.Info("Student registered or already known")
		return c.Send("😏")
	})

	b.Handle("/help", func(c telebot.Context) error {
		return c.Send(replyHelp)
	})

	b.Handle("/logininfo", func(c telebot.Context) error {
		logCtx := logger.WithField("command", "/logininfo").WithField("chat_id", c.Chat().ID)

		args := c.Args()
		if len(args) != 2 {
			return c.Send(replyLoginUsage)
		}

		if err := accounts.SetCredentials(ctx, c.Chat().ID, args[0], args[1]); err != nil {
			logCtx.WithError(err).Error("Failed to store credentials")
			return c.Send(replyError)
		}
		logCtx.Info("Credentials stored")
		return c.Send(replyOK)
	})

	b.Handle("/semester", func(c telebot.Context) error {
		logCtx := logger.WithField("command", "/semester").WithField("chat_id", c.Chat().ID)

		args := c.Args()
		if len(args) != 1 {
			return c.Send(replySemesterUsage)
		}
		semester, err := strconv.Atoi(args[0])
		if err != nil {
			return c.Send(replySemesterUsage)
		}

		err = accounts.SetSemester(ctx, c.Chat().ID, semester)
		if errors.Is(err, app.ErrInvalidSemester) {
			return c.Send(replySemesterUsage)
		}
		if err != nil {
			logCtx.WithError(err).Error("Failed to set semester")
			return c.Send(replyError)
		}
		logCtx.WithField("semester", semester).Info("Semester selected, baseline reset")
		return c.Send(replySemesterOK)
	})

	b.Handle("/getrating", func(c telebot.Context) error {
		logCtx := logger.WithField("command", "/getrating").WithField("chat_id", c.Chat().ID)

		st, err := accounts.GetOrCreate(ctx, c.Chat().ID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to look up student")
			return c.Send(replyError)
		}
		if !st.Eligible() {
			return c.Send(replyNeedLogin)
		}

		subjects, err := accounts.CurrentRating(ctx, st.ID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to load stored rating")
			return c.Send(replyError)
		}
		if len(subjects) == 0 {
			return c.Send(replyEmptyRating)
		}

		rendered := make([]string, 0, len(subjects))
		for _, subject := range subjects {
			rendered = append(rendered, subject.String())
		}
		return c.Send(strings.Join(rendered, "\n\n"))
	})

	b.Handle(telebot.OnText, func(c telebot.Context) error {
		return c.Send(replyUnknownInput)
	})

	// Inline mode: typing @botname in any chat offers the stored rating,
	// one result per subject. The sender's user id doubles as the chat id
	// of their private dialog with the bot.
	b.Handle(telebot.OnQuery, func(c telebot.Context) error {
		userID := c.Query().Sender.ID
		logCtx := logger.WithField("handler", "inline_query").WithField("user_id", userID)

		results, err := inlineResults(ctx, accounts, userID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to build inline rating")
		}
		return c.Answer(&telebot.QueryResponse{
			Results:    results,
			IsPersonal: true,
		})
	})
}

// inlineResults builds the inline-mode answer for one user: the stored
// baseline rendered one article per subject, or a single explanatory
// article when there is nothing to show. A non-nil error reports a lookup
// failure the caller should log; an error article is still returned so the
// query never goes unanswered.
func inlineResults(ctx context.Context, accounts *app.AccountService, userID int64) (telebot.Results, error) {
	st, err := accounts.Lookup(ctx, userID)
	if errors.Is(err, database.ErrStudentNotFound) {
		return inlineArticle(replyNeedLogin), nil
	}
	if err != nil {
		return inlineArticle(replyError), err
	}
	if !st.Eligible() {
		return inlineArticle(replyNeedLogin), nil
	}

	subjects, err := accounts.CurrentRating(ctx, st.ID)
	if err != nil {
		return inlineArticle(replyError), err
	}
	if len(subjects) == 0 {
		return inlineArticle(replyEmptyRating), nil
	}

	results := make(telebot.Results, 0, len(subjects))
	for i, subject := range subjects {
		article := &telebot.ArticleResult{Title: subject.Name, Text: subject.String()}
		article.SetResultID(strconv.Itoa(i))
		results = append(results, article)
	}
	return results, nil
}

func inlineArticle(text string) telebot.Results {
	article := &telebot.ArticleResult{Title: text, Text: text}
	article.SetResultID("1")
	return telebot.Results{article}
}
