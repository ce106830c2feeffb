package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"postqueue/internal/domain"
	"postqueue/internal/domain/contract"
	"postqueue/internal/domain/entity"
	"postqueue/internal/domain/service"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"
)

const slotTimeFormat = "Mon 02 Jan 15:04"

const helpText = `Send me a photo, video or file and I will queue it for publishing.

Channels:
/addchannel <id> [name] - register a channel
/channels - list registered channels
/rmchannel <id> - unregister a channel

Queue:
/queue - show unscheduled posts
/scheduled - show scheduled posts
/slots <n> - preview the next n publishing slots
/reschedule - move overdue posts to upcoming slots
/clearqueue - delete unscheduled posts
/clearscheduled - delete scheduled posts

Window:
/window - show the publishing window
/setwindow <start> <end> <interval> - set the window hours

Batches:
/newbatch <channel> <name> - start collecting a batch
/endbatch - stop collecting
/batches - list batches
/schedulebatch <id> - assign slots to a batch
/delbatch <id> - delete a batch and its pending posts

Backups:
/backup <name> - save the queue
/backups - list backups
/restore <name> [replace] - restore a backup
/delbackup <name> - delete a backup`

// Handler wires bot commands to the domain services. One handler serves
// all owners; per-owner batch collection state lives in memory only.
type Handler struct {
	bot      *tele.Bot
	services *service.Instance
	media    contract.MediaStore
	notify   func()
	log      zerolog.Logger
	loc      *time.Location

	mu            sync.Mutex
	activeBatches map[int64]int64 // owner id -> batch collecting uploads
}

func NewHandler(bot *tele.Bot, services *service.Instance, media contract.MediaStore, notify func(), log zerolog.Logger, loc *time.Location) *Handler {
	return &Handler{
		bot:           bot,
		services:      services,
		media:         media,
		notify:        notify,
		log:           log.With().Str("component", "telegram").Logger(),
		loc:           loc,
		activeBatches: make(map[int64]int64),
	}
}

func (h *Handler) Register() {
	h.bot.Handle("/start", func(c tele.Context) error { return c.Send(helpText) })
	h.bot.Handle("/help", func(c tele.Context) error { return c.Send(helpText) })

	h.bot.Handle("/addchannel", h.handleAddChannel)
	h.bot.Handle("/channels", h.handleListChannels)
	h.bot.Handle("/rmchannel", h.handleRemoveChannel)

	h.bot.Handle("/queue", h.handleQueue)
	h.bot.Handle("/scheduled", h.handleScheduled)
	h.bot.Handle("/slots", h.handleSlots)
	h.bot.Handle("/reschedule", h.handleReschedule)
	h.bot.Handle("/clearqueue", h.handleClearQueue)
	h.bot.Handle("/clearscheduled", h.handleClearScheduled)

	h.bot.Handle("/window", h.handleWindow)
	h.bot.Handle("/setwindow", h.handleSetWindow)

	h.bot.Handle("/newbatch", h.handleNewBatch)
	h.bot.Handle("/endbatch", h.handleEndBatch)
	h.bot.Handle("/batches", h.handleListBatches)
	h.bot.Handle("/schedulebatch", h.handleScheduleBatch)
	h.bot.Handle("/delbatch", h.handleDeleteBatch)

	h.bot.Handle("/backup", h.handleBackup)
	h.bot.Handle("/backups", h.handleListBackups)
	h.bot.Handle("/restore", h.handleRestore)
	h.bot.Handle("/delbackup", h.handleDeleteBackup)

	h.bot.Handle(tele.OnPhoto, h.handleMedia)
	h.bot.Handle(tele.OnVideo, h.handleMedia)
	h.bot.Handle(tele.OnAnimation, h.handleMedia)
	h.bot.Handle(tele.OnAudio, h.handleMedia)
	h.bot.Handle(tele.OnDocument, h.handleMedia)
}

func (h *Handler) handleAddChannel(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Send("Usage: /addchannel <id> [name]")
	}

	channel := &entity.Channel{
		OwnerID:   c.Sender().ID,
		ChannelID: args[0],
		Name:      strings.Join(args[1:], " "),
	}
	if err := h.services.Queue.AddChannel(context.Background(), channel); err != nil {
		return h.reportError(c, err)
	}
	return c.Send(fmt.Sprintf("Channel %s registered.", channel.ChannelID))
}

func (h *Handler) handleListChannels(c tele.Context) error {
	channels, err := h.services.Queue.ListChannels(context.Background(), c.Sender().ID)
	if err != nil {
		return h.reportError(c, err)
	}
	if len(channels) == 0 {
		return c.Send("No channels registered. Use /addchannel <id> first.")
	}

	var b strings.Builder
	b.WriteString("Registered channels:\n")
	for _, ch := range channels {
		if ch.Name != "" {
			fmt.Fprintf(&b, "%s (%s)\n", ch.ChannelID, ch.Name)
		} else {
			fmt.Fprintf(&b, "%s\n", ch.ChannelID)
		}
	}
	return c.Send(b.String())
}

func (h *Handler) handleRemoveChannel(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Send("Usage: /rmchannel <id>")
	}
	if err := h.services.Queue.RemoveChannel(context.Background(), c.Sender().ID, args[0]); err != nil {
		return h.reportError(c, err)
	}
	return c.Send(fmt.Sprintf("Channel %s removed.", args[0]))
}

// handleMedia stores the uploaded file and queues a post for it. While a
// batch is being collected the post joins the batch, otherwise it lands
// in the owner's default channel queue unscheduled.
func (h *Handler) handleMedia(c tele.Context) error {
	ownerID := c.Sender().ID
	ctx := context.Background()

	file, mediaType, name := incomingFile(c.Message())
	if file == nil {
		return c.Send("Unsupported message type.")
	}

	rc, err := h.bot.File(file)
	if err != nil {
		return h.reportError(c, fmt.Errorf("failed to download file: %w", err))
	}
	defer rc.Close()

	path, err := h.media.Save(rc, name)
	if err != nil {
		return h.reportError(c, err)
	}

	post := &entity.Post{
		OwnerID:   ownerID,
		MediaPath: path,
		MediaType: mediaType,
		Caption:   c.Message().Caption,
	}

	if batchID, ok := h.activeBatch(ownerID); ok {
		if err := h.services.Schedule.AddPostToBatch(ctx, ownerID, batchID, post); err != nil {
			return h.reportError(c, err)
		}
		return c.Send(fmt.Sprintf("Added to batch #%d.", batchID))
	}

	channelID, err := h.defaultChannel(ctx, ownerID)
	if err != nil {
		return h.reportError(c, err)
	}
	post.ChannelID = channelID

	if err := h.services.Queue.AddPost(ctx, post); err != nil {
		return h.reportError(c, err)
	}
	h.notify()
	return c.Send(fmt.Sprintf("Queued for %s. Use /schedulebatch or /slots to plan slots.", channelID))
}

func (h *Handler) handleQueue(c tele.Context) error {
	posts, err := h.services.Queue.ListQueued(context.Background(), c.Sender().ID, "")
	if err != nil {
		return h.reportError(c, err)
	}
	if len(posts) == 0 {
		return c.Send("The queue is empty.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Queued posts (%d):\n", len(posts))
	for _, p := range posts {
		fmt.Fprintf(&b, "#%d %s -> %s %s\n", p.ID, p.MediaType, p.ChannelID, shorten(p.Caption))
	}
	return c.Send(b.String())
}

func (h *Handler) handleScheduled(c tele.Context) error {
	posts, err := h.services.Queue.ListScheduled(context.Background(), c.Sender().ID, "")
	if err != nil {
		return h.reportError(c, err)
	}
	if len(posts) == 0 {
		return c.Send("Nothing is scheduled.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Scheduled posts (%d):\n", len(posts))
	for _, p := range posts {
		fmt.Fprintf(&b, "#%d %s -> %s at %s", p.ID, p.MediaType, p.ChannelID, p.ScheduledAt.In(h.loc).Format(slotTimeFormat))
		if p.Recurring != nil {
			fmt.Fprintf(&b, " (repeats every %dh)", p.Recurring.IntervalHours)
		}
		b.WriteString("\n")
	}
	return c.Send(b.String())
}

func (h *Handler) handleSlots(c tele.Context) error {
	n := 5
	if args := c.Args(); len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 || v > 50 {
			return c.Send("Usage: /slots <n> with n between 1 and 50")
		}
		n = v
	}

	slots, err := h.services.Schedule.GenerateSlots(context.Background(), c.Sender().ID, n)
	if err != nil {
		return h.reportError(c, err)
	}

	var b strings.Builder
	b.WriteString("Upcoming slots:\n")
	for _, slot := range slots {
		b.WriteString(slot.Format(slotTimeFormat))
		b.WriteString("\n")
	}
	return c.Send(b.String())
}

func (h *Handler) handleReschedule(c tele.Context) error {
	channelID := ""
	if args := c.Args(); len(args) == 1 {
		channelID = args[0]
	}

	moved, err := h.services.Schedule.RescheduleOverdue(context.Background(), c.Sender().ID, channelID)
	if err != nil {
		return h.reportError(c, err)
	}
	if moved == 0 {
		return c.Send("No overdue posts.")
	}
	h.notify()
	return c.Send(fmt.Sprintf("Moved %d overdue post(s) to upcoming slots.", moved))
}

func (h *Handler) handleClearQueue(c tele.Context) error {
	cleared, err := h.services.Queue.ClearQueued(context.Background(), c.Sender().ID, "")
	if err != nil {
		return h.reportError(c, err)
	}
	return c.Send(fmt.Sprintf("Deleted %d queued post(s).", cleared))
}

func (h *Handler) handleClearScheduled(c tele.Context) error {
	cleared, err := h.services.Queue.ClearScheduled(context.Background(), c.Sender().ID, "")
	if err != nil {
		return h.reportError(c, err)
	}
	return c.Send(fmt.Sprintf("Deleted %d scheduled post(s).", cleared))
}

func (h *Handler) handleWindow(c tele.Context) error {
	cfg, err := h.services.Queue.WindowFor(context.Background(), c.Sender().ID)
	if err != nil {
		return h.reportError(c, err)
	}
	return c.Send(fmt.Sprintf("Publishing window: %02d:00-%02d:00, every %dh.", cfg.StartHour, cfg.EndHour, cfg.IntervalHours))
}

func (h *Handler) handleSetWindow(c tele.Context) error {
	args := c.Args()
	if len(args) != 3 {
		return c.Send("Usage: /setwindow <start> <end> <interval>, e.g. /setwindow 10 20 2")
	}

	var vals [3]int
	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return c.Send("Usage: /setwindow <start> <end> <interval>, e.g. /setwindow 10 20 2")
		}
		vals[i] = v
	}

	cfg := entity.WindowConfig{StartHour: vals[0], EndHour: vals[1], IntervalHours: vals[2]}
	if err := h.services.Queue.SetWindow(context.Background(), c.Sender().ID, cfg); err != nil {
		return h.reportError(c, err)
	}
	h.notify()
	return c.Send(fmt.Sprintf("Window set to %02d:00-%02d:00, every %dh.", cfg.StartHour, cfg.EndHour, cfg.IntervalHours))
}

func (h *Handler) handleNewBatch(c tele.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return c.Send("Usage: /newbatch <channel> <name>")
	}

	batch := &entity.Batch{
		OwnerID:   c.Sender().ID,
		ChannelID: args[0],
		Name:      strings.Join(args[1:], " "),
	}
	if err := h.services.Schedule.CreateBatch(context.Background(), batch); err != nil {
		return h.reportError(c, err)
	}

	h.mu.Lock()
	h.activeBatches[c.Sender().ID] = batch.ID
	h.mu.Unlock()

	return c.Send(fmt.Sprintf("Batch #%d %q started. Send media now, /endbatch when done.", batch.ID, batch.Name))
}

func (h *Handler) handleEndBatch(c tele.Context) error {
	h.mu.Lock()
	batchID, ok := h.activeBatches[c.Sender().ID]
	delete(h.activeBatches, c.Sender().ID)
	h.mu.Unlock()

	if !ok {
		return c.Send("No batch is being collected.")
	}
	return c.Send(fmt.Sprintf("Batch #%d closed. Use /schedulebatch %d to assign slots.", batchID, batchID))
}

func (h *Handler) handleListBatches(c tele.Context) error {
	batches, err := h.services.Schedule.ListBatches(context.Background(), c.Sender().ID)
	if err != nil {
		return h.reportError(c, err)
	}
	if len(batches) == 0 {
		return c.Send("No batches.")
	}

	var b strings.Builder
	b.WriteString("Batches:\n")
	for _, batch := range batches {
		fmt.Fprintf(&b, "#%d %q -> %s, %s, %d pending\n", batch.ID, batch.Name, batch.ChannelID, batch.Status, batch.PendingCount)
	}
	return c.Send(b.String())
}

func (h *Handler) handleScheduleBatch(c tele.Context) error {
	batchID, ok := singleIntArg(c, "Usage: /schedulebatch <id>")
	if !ok {
		return nil
	}
	ctx := context.Background()
	ownerID := c.Sender().ID

	batches, err := h.services.Schedule.ListBatches(ctx, ownerID)
	if err != nil {
		return h.reportError(c, err)
	}
	var pending int
	found := false
	for _, b := range batches {
		if b.ID == batchID {
			pending = b.PendingCount
			found = true
			break
		}
	}
	if !found {
		return c.Send("Batch not found.")
	}
	if pending == 0 {
		return c.Send("The batch has no pending posts.")
	}

	slots, err := h.services.Schedule.GenerateSlots(ctx, ownerID, pending)
	if err != nil {
		return h.reportError(c, err)
	}

	report, err := h.services.Schedule.ScheduleBatch(ctx, batchID, slots)
	if err != nil {
		return h.reportError(c, err)
	}
	h.notify()

	msg := fmt.Sprintf("Scheduled %d post(s), first at %s.", report.Scheduled, slots[0].Format(slotTimeFormat))
	if report.Skipped > 0 {
		msg += fmt.Sprintf(" %d left unscheduled.", report.Skipped)
	}
	return c.Send(msg)
}

func (h *Handler) handleDeleteBatch(c tele.Context) error {
	batchID, ok := singleIntArg(c, "Usage: /delbatch <id>")
	if !ok {
		return nil
	}
	if err := h.services.Schedule.DeleteBatch(context.Background(), c.Sender().ID, batchID); err != nil {
		return h.reportError(c, err)
	}
	return c.Send(fmt.Sprintf("Batch #%d deleted.", batchID))
}

func (h *Handler) handleBackup(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Send("Usage: /backup <name>")
	}

	backup, err := h.services.Backup.Snapshot(context.Background(), c.Sender().ID, args[0])
	if err != nil {
		return h.reportError(c, err)
	}
	return c.Send(fmt.Sprintf("Backup %q saved with %d post(s).", backup.Name, backup.PostCount))
}

func (h *Handler) handleListBackups(c tele.Context) error {
	backups, err := h.services.Backup.ListBackups(context.Background(), c.Sender().ID)
	if err != nil {
		return h.reportError(c, err)
	}
	if len(backups) == 0 {
		return c.Send("No backups.")
	}

	var b strings.Builder
	b.WriteString("Backups:\n")
	for _, backup := range backups {
		fmt.Fprintf(&b, "%s - %d post(s), saved %s\n", backup.Name, backup.PostCount, backup.CreatedAt.In(h.loc).Format(slotTimeFormat))
	}
	return c.Send(b.String())
}

func (h *Handler) handleRestore(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 || len(args) > 2 {
		return c.Send("Usage: /restore <name> [replace]")
	}

	opts := entity.RestoreOptions{RestoreMissingMedia: true}
	if len(args) == 2 {
		if args[1] != "replace" {
			return c.Send("Usage: /restore <name> [replace]")
		}
		opts.ReplaceExisting = true
	}

	report, err := h.services.Backup.Restore(context.Background(), c.Sender().ID, args[0], opts)
	if err != nil {
		return h.reportError(c, err)
	}
	h.notify()

	msg := report.Message
	if report.Skipped > 0 {
		msg += fmt.Sprintf(" Skipped %d.", report.Skipped)
	}
	if report.MissingMedia > 0 {
		msg += fmt.Sprintf(" %d had missing media.", report.MissingMedia)
	}
	return c.Send(msg)
}

func (h *Handler) handleDeleteBackup(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Send("Usage: /delbackup <name>")
	}
	if err := h.services.Backup.DeleteBackup(context.Background(), c.Sender().ID, args[0]); err != nil {
		return h.reportError(c, err)
	}
	return c.Send(fmt.Sprintf("Backup %q deleted.", args[0]))
}

func (h *Handler) activeBatch(ownerID int64) (int64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id, ok := h.activeBatches[ownerID]
	return id, ok
}

// defaultChannel picks the owner's default channel, falling back to the
// first registered one.
func (h *Handler) defaultChannel(ctx context.Context, ownerID int64) (string, error) {
	channels, err := h.services.Queue.ListChannels(ctx, ownerID)
	if err != nil {
		return "", err
	}
	if len(channels) == 0 {
		return "", domain.ErrChannelAccessDenied
	}
	for _, ch := range channels {
		if ch.IsDefault {
			return ch.ChannelID, nil
		}
	}
	return channels[0].ChannelID, nil
}

// reportError turns domain errors into short owner-facing replies and
// logs everything else.
func (h *Handler) reportError(c tele.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrChannelAccessDenied):
		return c.Send("That channel is not registered for you. Use /addchannel first.")
	case errors.Is(err, domain.ErrBatchNotFound):
		return c.Send("Batch not found.")
	case errors.Is(err, domain.ErrBackupNotFound):
		return c.Send("Backup not found.")
	case errors.Is(err, domain.ErrInvalidWindow):
		return c.Send(fmt.Sprintf("Invalid window: %v", err))
	default:
		h.log.Error().Err(err).Int64("owner_id", c.Sender().ID).Msg("command failed")
		return c.Send("Something went wrong, try again.")
	}
}

// incomingFile extracts the downloadable file reference from a media
// message along with the media type and a name hint for the extension.
func incomingFile(m *tele.Message) (*tele.File, string, string) {
	switch {
	case m == nil:
		return nil, "", ""
	case m.Photo != nil:
		return &m.Photo.File, domain.MediaPhoto, "photo.jpg"
	case m.Video != nil:
		return &m.Video.File, domain.MediaVideo, fileNameOr(m.Video.FileName, "video.mp4")
	case m.Animation != nil:
		return &m.Animation.File, domain.MediaAnimation, fileNameOr(m.Animation.FileName, "animation.mp4")
	case m.Audio != nil:
		return &m.Audio.File, domain.MediaAudio, fileNameOr(m.Audio.FileName, "audio.mp3")
	case m.Document != nil:
		return &m.Document.File, domain.MediaDocument, fileNameOr(m.Document.FileName, "file.bin")
	default:
		return nil, "", ""
	}
}

func shorten(caption string) string {
	caption = strings.ReplaceAll(caption, "\n", " ")
	if len(caption) > 40 {
		return caption[:37] + "..."
	}
	return caption
}

func fileNameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

// singleIntArg parses the single numeric argument of a command, sending
// the usage hint when it is missing or malformed.
func singleIntArg(c tele.Context, usage string) (int64, bool) {
	args := c.Args()
	if len(args) != 1 {
		_ = c.Send(usage)
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		_ = c.Send(usage)
		return 0, false
	}
	return id, true
}
