package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"brainbox/internal/model"
	"brainbox/internal/service"
	"brainbox/internal/timeline"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTaskText
	stageProjectName
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
)

const (
	btnConfirm       = "✅ Confirm"
	btnCancel        = "↩️ Cancel"
	menuLabelAdd     = "➕ New task"
	menuLabelTasks   = "📋 Tasks"
	menuLabelToday   = "🕒 Today"
	menuLabelBin     = "🗑 Bin"
	menuLabelHelp    = "ℹ️ Help"
	maxButtonTextLen = 24
)

type conversationState struct {
	stage conversationStage
}

type confirmationAction int

const (
	actionComplete confirmationAction = iota
	actionDelete
)

type confirmationRequest struct {
	taskID string
	action confirmationAction
}

// Services are the operations the bot drives.
type Services struct {
	Auth     *service.AuthService
	Projects *service.ProjectService
	Tasks    *service.TaskService
	Data     *service.DataService
	Summary  *service.SummaryService
}

// Bot is a Telegram front-end over the same services as the HTTP API. A chat
// acts as the account it was linked to with /link.
type Bot struct {
	api           *tgbotapi.BotAPI
	svc           Services
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

func New(token string, svc Services) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info().Str("account", api.Self.UserName).Msg("bot authorized")

	return &Bot{
		api:           api,
		svc:           svc,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Error().Err(err).Msg("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Error().Err(err).Msg("handle message")
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		log.Info().Int64("from", msg.From.ID).Str("command", msg.Command()).Msg("bot command")
		b.clearConversation(msg.From.ID)
		return b.handleCommand(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if state := b.getConversation(msg.From.ID); state != nil {
		return b.handleConversation(ctx, msg, state)
	}

	return b.sendText(msg.Chat.ID, "I did not understand that. Try /add to create a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start", "help":
		return b.handleHelp(msg)
	case "link":
		return b.handleLink(ctx, msg)
	case "projects":
		return b.withActor(ctx, msg, b.handleProjects)
	case "newproject":
		return b.withActor(ctx, msg, b.handleNewProject)
	case "tasks":
		return b.withActor(ctx, msg, b.handleTasks)
	case "add":
		return b.withActor(ctx, msg, b.handleAdd)
	case "complete":
		return b.withActor(ctx, msg, b.handleComplete)
	case "delete":
		return b.withActor(ctx, msg, b.handleDelete)
	case "bin":
		return b.withActor(ctx, msg, b.handleBin)
	case "recover":
		return b.withActor(ctx, msg, b.handleRecover)
	case "schedule":
		return b.withActor(ctx, msg, b.handleSchedule)
	case "unschedule":
		return b.withActor(ctx, msg, b.handleUnschedule)
	case "today":
		return b.withActor(ctx, msg, b.handleToday)
	case "cancel":
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

type actorHandler func(ctx context.Context, msg *tgbotapi.Message, actor service.Actor) error

// withActor resolves the linked account before running h.
func (b *Bot) withActor(ctx context.Context, msg *tgbotapi.Message, h actorHandler) error {
	actor, err := b.svc.Auth.ActorForTelegram(ctx, msg.From.ID)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return h(ctx, msg, actor)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := strings.Join([]string{
		"👋 <b>brainbox</b>",
		"",
		"/link &lt;username&gt; &lt;password&gt; - connect this chat to your account",
		"/projects - list projects",
		"/newproject &lt;name&gt; - create a project",
		"/tasks [projectId] - open tasks of a project",
		"/add &lt;text&gt; - add a task to the current project",
		"/complete &lt;taskId&gt; - mark a task done",
		"/delete &lt;taskId&gt; - move a task to the bin",
		"/bin - show the recycle bin",
		"/recover &lt;taskId|projectId&gt; - bring something back from the bin",
		"/schedule &lt;taskId&gt; HH:MM &lt;minutes&gt; [description] - put a task on the timeline",
		"/unschedule &lt;taskId&gt; - take a task off the timeline",
		"/today - the timeline and open tasks",
	}, "\n")
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleLink(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return b.sendText(msg.Chat.ID, "Usage: /link &lt;username&gt; &lt;password&gt;")
	}
	actor, err := b.svc.Auth.LinkTelegram(ctx, msg.From.ID, args[0], args[1])
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🔗 Linked to <b>%s</b>.", escape(actor.Username)))
}

func (b *Bot) handleProjects(ctx context.Context, msg *tgbotapi.Message, actor service.Actor) error {
	snap, err := b.svc.Data.GetAll(ctx, actor)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	current := currentProjectID(snap.AppSettings)

	var builder strings.Builder
	builder.WriteString("📂 <b>Projects</b>\n")
	for _, p := range snap.Projects {
		if !p.Active() {
			continue
		}
		marker := "•"
		if p.ID == current {
			marker = "▶"
		}
		builder.WriteString(fmt.Sprintf("%s %s <code>%s</code> · %d open\n", marker, escape(p.Name), p.ID, countOpen(snap.Tasks, p.ID)))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleNewProject(ctx context.Context, msg *tgbotapi.Message, actor service.Actor) error {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		b.setConversation(msg.From.ID, &conversationState{stage: stageProjectName})
		return b.sendText(msg.Chat.ID, "Send the name of the new project.")
	}
	return b.createProject(ctx, msg.Chat.ID, actor, name)
}

func (b *Bot) createProject(ctx context.Context, chatID int64, actor service.Actor, name string) error {
	project, err := b.svc.Projects.Create(ctx, actor, name)
	if err != nil {
		return b.sendError(chatID, err)
	}
	return b.sendText(chatID, fmt.Sprintf("📁 Project «%s» created as <code>%s</code>.", escape(project.Name), project.ID))
}

func (b *Bot) handleTasks(ctx context.Context, msg *tgbotapi.Message, actor service.Actor) error {
	return b.sendTaskList(ctx, msg.Chat.ID, actor, strings.TrimSpace(msg.CommandArguments()))
}

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message, actor service.Actor) error {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.setConversation(msg.From.ID, &conversationState{stage: stageTaskText})
		return b.sendText(msg.Chat.ID, "Send the task text.")
	}
	return b.createTask(ctx, msg.Chat.ID, actor, text)
}

func (b *Bot) createTask(ctx context.Context, chatID int64, actor service.Actor, text string) error {
	snap, err := b.svc.Data.GetAll(ctx, actor)
	if err != nil {
		return b.sendError(chatID, err)
	}
	task, err := b.svc.Tasks.Create(ctx, actor, currentProjectID(snap.AppSettings), text)
	if err != nil {
		return b.sendError(chatID, err)
	}
	return b.sendText(chatID, fmt.Sprintf("➕ Task «%s» added as <code>%s</code>.", escape(task.Text), task.ID))
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return b.sendText(msg.Chat.ID, "Please send some text, or /cancel.")
	}
	b.clearConversation(msg.From.ID)

	actor, err := b.svc.Auth.ActorForTelegram(ctx, msg.From.ID)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	switch state.stage {
	case stageTaskText:
		return b.createTask(ctx, msg.Chat.ID, actor, text)
	case stageProjectName:
		return b.createProject(ctx, msg.Chat.ID, actor, text)
	default:
		return nil
	}
}

func (b *Bot) handleComplete(ctx context.Context, msg *tgbotapi.Message, actor service.Actor) error {
	taskID := strings.TrimSpace(msg.CommandArguments())
	if taskID == "" {
		return b.sendText(msg.Chat.ID, "Give the task id: /complete task_12")
	}
	return b.askConfirmation(ctx, msg.Chat.ID, msg.From.ID, actor, confirmationRequest{taskID: taskID, action: actionComplete})
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message, actor service.Actor) error {
	taskID := strings.TrimSpace(msg.CommandArguments())
	if taskID == "" {
		return b.sendText(msg.Chat.ID, "Give the task id: /delete task_12")
	}
	return b.askConfirmation(ctx, msg.Chat.ID, msg.From.ID, actor, confirmationRequest{taskID: taskID, action: actionDelete})
}

func (b *Bot) handleBin(ctx context.Context, msg *tgbotapi.Message, actor service.Actor) error {
	bin, err := b.svc.Data.RecycleBin(ctx, actor)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, b.svc.Summary.Bin(bin))
}

func (b *Bot) handleRecover(ctx context.Context, msg *tgbotapi.Message, actor service.Actor) error {
	id := strings.TrimSpace(msg.CommandArguments())
	switch {
	case strings.HasPrefix(id, model.EntityProject+"_"):
		change, err := b.svc.Projects.Recover(ctx, actor, id)
		if err != nil {
			return b.sendError(msg.Chat.ID, err)
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("♻️ Project «%s» recovered with %d task(s).", escape(change.Project.Name), len(change.Tasks)))
	case strings.HasPrefix(id, model.EntityTask+"_"):
		res, err := b.svc.Tasks.Recover(ctx, actor, id)
		if err != nil {
			return b.sendError(msg.Chat.ID, err)
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("♻️ Task «%s» is active.", escape(res.Task.Text)))
	default:
		return b.sendText(msg.Chat.ID, "Give a task or project id: /recover task_12")
	}
}

func (b *Bot) handleSchedule(ctx context.Context, msg *tgbotapi.Message, actor service.Actor) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 3 {
		return b.sendText(msg.Chat.ID, "Usage: /schedule task_12 09:30 45 [description]")
	}
	start, err := timeline.ParseClock(args[1])
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}
	duration, err := strconv.Atoi(args[2])
	if err != nil {
		return b.sendText(msg.Chat.ID, "Duration must be a number of minutes.")
	}

	res, err := b.svc.Tasks.Schedule(ctx, actor, args[0], service.ScheduleInput{
		StartTime:   start,
		Duration:    duration,
		Description: strings.Join(args[3:], " "),
	})
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	s := res.Task.Schedule
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🕒 «%s» scheduled %s - %s.", escape(res.Task.Text), timeline.FormatClock(s.Start), timeline.FormatClock(s.End())))
}

func (b *Bot) handleUnschedule(ctx context.Context, msg *tgbotapi.Message, actor service.Actor) error {
	taskID := strings.TrimSpace(msg.CommandArguments())
	if taskID == "" {
		return b.sendText(msg.Chat.ID, "Give the task id: /unschedule task_12")
	}
	res, err := b.svc.Tasks.Unschedule(ctx, actor, taskID)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("«%s» is off the timeline.", escape(res.Task.Text)))
}

func (b *Bot) handleToday(ctx context.Context, msg *tgbotapi.Message, actor service.Actor) error {
	text, err := b.svc.Summary.Today(ctx, actor, time.Now())
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, actor service.Actor, projectID string) error {
	snap, err := b.svc.Data.GetAll(ctx, actor)
	if err != nil {
		return b.sendError(chatID, err)
	}
	if projectID == "" {
		projectID = currentProjectID(snap.AppSettings)
	}

	var project *model.Project
	for i := range snap.Projects {
		if snap.Projects[i].ID == projectID {
			project = &snap.Projects[i]
		}
	}
	if project == nil {
		return b.sendText(chatID, "Project not found.")
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>%s</b>\n\n", escape(project.Name)))

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, t := range snap.Tasks {
		if t.ProjectID != projectID || !t.Active() {
			continue
		}
		builder.WriteString(formatTask(t))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ "+shortText(t.Text, maxButtonTextLen), cbCompletePrefix+t.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+t.ID),
		))
	}
	if len(buttons) == 0 {
		return b.sendText(chatID, fmt.Sprintf("No open tasks in «%s». Add one with /add.", escape(project.Name)))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Warn().Err(err).Msg("callback ack")
	}

	var req confirmationRequest
	switch {
	case strings.HasPrefix(cb.Data, cbCompletePrefix):
		req = confirmationRequest{taskID: strings.TrimPrefix(cb.Data, cbCompletePrefix), action: actionComplete}
	case strings.HasPrefix(cb.Data, cbDeletePrefix):
		req = confirmationRequest{taskID: strings.TrimPrefix(cb.Data, cbDeletePrefix), action: actionDelete}
	default:
		return nil
	}
	log.Info().Int64("from", cb.From.ID).Str("task", req.taskID).Msg("callback")

	actor, err := b.svc.Auth.ActorForTelegram(ctx, cb.From.ID)
	if err != nil {
		return b.sendError(cb.Message.Chat.ID, err)
	}
	return b.askConfirmation(ctx, cb.Message.Chat.ID, cb.From.ID, actor, req)
}

func (b *Bot) askConfirmation(ctx context.Context, chatID, userID int64, actor service.Actor, req confirmationRequest) error {
	snap, err := b.svc.Data.GetAll(ctx, actor)
	if err != nil {
		return b.sendError(chatID, err)
	}
	var task *model.Task
	for i := range snap.Tasks {
		if snap.Tasks[i].ID == req.taskID {
			task = &snap.Tasks[i]
		}
	}
	if task == nil {
		return b.sendText(chatID, "Task not found.")
	}
	if !task.Active() {
		return b.sendText(chatID, "That task is already in the bin.")
	}

	verb := "Complete"
	if req.action == actionDelete {
		verb = "Move to the bin"
	}
	b.setConfirmation(userID, req)
	return b.sendWithReplyMarkup(chatID, fmt.Sprintf("%s «%s» (<code>%s</code>)?", verb, escape(task.Text), task.ID), confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		actor, err := b.svc.Auth.ActorForTelegram(ctx, msg.From.ID)
		if err != nil {
			return b.sendError(msg.Chat.ID, err)
		}
		return b.applyConfirmation(ctx, msg.Chat.ID, actor, req)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Cancelled.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or cancel.", confirmKeyboard())
	}
}

func (b *Bot) applyConfirmation(ctx context.Context, chatID int64, actor service.Actor, req confirmationRequest) error {
	var (
		res  *service.TaskResult
		err  error
		done string
	)
	if req.action == actionDelete {
		res, err = b.svc.Tasks.SoftDelete(ctx, actor, req.taskID, model.ReasonIndividualDeletion)
		done = "🗑 «%s» moved to the bin."
	} else {
		res, err = b.svc.Tasks.Complete(ctx, actor, req.taskID)
		done = "✅ «%s» done."
	}
	if err != nil {
		return b.sendError(chatID, err)
	}
	if err := b.sendText(chatID, fmt.Sprintf(done, escape(res.Task.Text))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, actor, res.Task.ProjectID)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	var h actorHandler
	switch strings.ToLower(strings.TrimSpace(msg.Text)) {
	case strings.ToLower(menuLabelAdd):
		h = b.handleAdd
	case strings.ToLower(menuLabelTasks):
		h = b.handleTasks
	case strings.ToLower(menuLabelToday):
		h = b.handleToday
	case strings.ToLower(menuLabelBin):
		h = b.handleBin
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
	return true, b.withActor(ctx, msg, h)
}

func (b *Bot) sendError(chatID int64, err error) error {
	if service.KindOf(err) == service.KindStorage {
		log.Error().Err(err).Int64("chat", chatID).Msg("bot operation failed")
	}
	return b.sendText(chatID, "⚠️ "+escape(service.MessageOf(err)))
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendWithReplyMarkup(chatID, text, mainMenuKeyboard())
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelAdd),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
			tgbotapi.NewKeyboardButton(menuLabelToday),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelBin),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "confirm" || value == "yes"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "cancel" || value == "no"
}

func currentProjectID(settings *model.AppSettings) string {
	if settings != nil && settings.CurrentProjectID != nil && *settings.CurrentProjectID != "" {
		return *settings.CurrentProjectID
	}
	return model.DefaultProjectID
}

func countOpen(tasks []model.Task, projectID string) int {
	var n int
	for _, t := range tasks {
		if t.ProjectID == projectID && t.Active() {
			n++
		}
	}
	return n
}

func formatTask(t model.Task) string {
	line := fmt.Sprintf("🟢 <code>%s</code> %s", t.ID, escape(t.Text))
	if s := t.Schedule; s != nil {
		line += fmt.Sprintf("\n   🕒 %s - %s", timeline.FormatClock(s.Start), timeline.FormatClock(s.End()))
	}
	if t.ScheduleDescription != "" {
		line += "\n   📝 " + escape(t.ScheduleDescription)
	}
	return line + "\n"
}

func shortText(text string, maxLen int) string {
	runes := []rune(strings.TrimSpace(strings.ReplaceAll(text, "\n", " ")))
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
