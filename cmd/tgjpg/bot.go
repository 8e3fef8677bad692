package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/akira02/tg.jpg/chatconf"
	"github.com/akira02/tg.jpg/corpus"
	"github.com/akira02/tg.jpg/imagesearch"
	"github.com/akira02/tg.jpg/internal/configutil"
	"github.com/akira02/tg.jpg/internal/healthcheck"
	"github.com/akira02/tg.jpg/internal/logutil"
	"github.com/akira02/tg.jpg/internal/pathutil"
	"github.com/akira02/tg.jpg/internal/worker"
	"github.com/akira02/tg.jpg/resolver"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type resolveJob struct {
	ChatID   int64
	Query    string
	Animated bool
}

type chatWorker struct {
	Jobs chan resolveJob
}

// bot owns the long-poll loop and the per-chat resolution workers. The
// resolver core never sees any of this; it gets capabilities injected.
type bot struct {
	api     *telegramAPI
	logger  *slog.Logger
	matcher *corpus.Matcher
	res     *resolver.Resolver
	conf    *chatconf.Store
	journal *deliveryJournal

	localModeDefault bool
	taskTimeout      time.Duration
	inlineCacheTime  int
	publicBaseURL    string

	sem        chan struct{}
	workersCtx context.Context
	mu         sync.Mutex
	workers    map[int64]*chatWorker
}

func newBotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the long-polling Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(configutil.FlagOrViperString(cmd, "telegram-bot-token", "telegram.bot_token"))
			if token == "" {
				return fmt.Errorf("missing telegram.bot_token (set via --telegram-bot-token or %s_TELEGRAM_BOT_TOKEN)", envPrefix)
			}
			baseURL := strings.TrimSpace(configutil.FlagOrViperString(cmd, "telegram-base-url", "telegram.base_url"))

			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			assetsDir := pathutil.ExpandHomePath(configutil.FlagOrViperString(cmd, "assets-dir", "assets.dir"))
			stateDir := pathutil.ResolveStateDir(configutil.FlagOrViperString(cmd, "state-dir", "state_dir"))

			pollTimeout := configutil.FlagOrViperDuration(cmd, "poll-timeout", "telegram.poll_timeout")
			if pollTimeout <= 0 {
				pollTimeout = 30 * time.Second
			}
			taskTimeout := viper.GetDuration("telegram.task_timeout")
			if taskTimeout <= 0 {
				taskTimeout = 2 * time.Minute
			}
			maxConc := configutil.FlagOrViperInt(cmd, "max-concurrency", "telegram.max_concurrency")
			if maxConc <= 0 {
				maxConc = 3
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			conf, err := chatconf.NewStore(stateDir)
			if err != nil {
				return err
			}
			if err := conf.Ensure(ctx); err != nil {
				return err
			}
			journal, err := newDeliveryJournal(stateDir, viper.GetInt64("journal.rotate_max_bytes"))
			if err != nil {
				return err
			}
			defer func() { _ = journal.Close() }()

			search := imagesearch.NewClient()
			if endpoint := strings.TrimSpace(viper.GetString("search.endpoint")); endpoint != "" {
				search.Endpoint = endpoint
			}
			if locale := strings.TrimSpace(viper.GetString("search.locale")); locale != "" {
				search.Locale = locale
			}
			fetcher := resolver.NewFetcher()
			if maxBytes := viper.GetInt64("resolve.max_download_bytes"); maxBytes > 0 {
				fetcher.MaxBytes = maxBytes
			}
			matcher := corpus.NewMatcher(assetsDir)
			res := resolver.New(matcher, search, fetcher, logger)

			api := newTelegramAPI(&http.Client{Timeout: 60 * time.Second}, baseURL, token)
			me, err := api.getMe(ctx)
			if err != nil {
				return err
			}

			healthListen := healthcheck.NormalizeListen(configutil.FlagOrViperString(cmd, "health-listen", "health.listen"))
			if healthListen != "" {
				srv, err := healthcheck.StartServer(ctx, logger, healthListen, "bot")
				if err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			b := &bot{
				api:              api,
				logger:           logger,
				matcher:          matcher,
				res:              res,
				conf:             conf,
				journal:          journal,
				localModeDefault: viper.GetBool("resolve.local_mode_default"),
				taskTimeout:      taskTimeout,
				inlineCacheTime:  viper.GetInt("telegram.inline_cache_time"),
				publicBaseURL:    configutil.FlagOrViperString(cmd, "public-base-url", "assets.public_base_url"),
				sem:              make(chan struct{}, maxConc),
				workersCtx:       ctx,
				workers:          make(map[int64]*chatWorker),
			}

			logger.Info("telegram_start",
				"bot_username", me.Username,
				"bot_id", me.ID,
				"assets_dir", assetsDir,
				"state_dir", stateDir,
				"poll_timeout", pollTimeout.String(),
				"task_timeout", taskTimeout.String(),
				"max_concurrency", maxConc,
			)

			return b.poll(ctx, pollTimeout)
		},
	}

	cmd.Flags().String("telegram-bot-token", "", "Telegram bot token.")
	cmd.Flags().String("telegram-base-url", "", "Telegram API base URL.")
	cmd.Flags().String("assets-dir", "", "Local image corpus directory.")
	cmd.Flags().String("state-dir", "", "State directory (chat settings, delivery journal).")
	cmd.Flags().Duration("poll-timeout", 0, "Long-poll timeout for getUpdates.")
	cmd.Flags().Int("max-concurrency", 0, "Maximum concurrent resolutions across all chats.")
	cmd.Flags().String("health-listen", "", "Health endpoint listen address (empty disables).")
	cmd.Flags().String("public-base-url", "", "Public base URL serving the asset corpus (inline results).")
	return cmd
}

func (b *bot) poll(ctx context.Context, pollTimeout time.Duration) error {
	var offset int64
	for {
		if ctx.Err() != nil {
			return nil
		}
		updates, nextOffset, err := b.api.getUpdates(ctx, offset, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if isTelegramPollTimeoutError(err) {
				continue
			}
			b.logger.Warn("telegram_get_updates_error", "error", err.Error())
			time.Sleep(1 * time.Second)
			continue
		}
		offset = nextOffset

		for _, u := range updates {
			switch {
			case u.InlineQuery != nil:
				b.handleInlineQuery(ctx, u.InlineQuery)
			case u.Message != nil:
				b.handleMessage(ctx, u.Message)
			}
		}
	}
}

func (b *bot) handleMessage(ctx context.Context, msg *telegramMessage) {
	if msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, chatID, msg.Chat.Type, text)
		return
	}

	query, animated, ok := parseImageQuery(text)
	if !ok {
		// Normal chat. Silence is the designed behavior.
		return
	}

	w := b.getOrStartWorker(chatID)
	job := resolveJob{ChatID: chatID, Query: query, Animated: animated}
	if err := worker.Enqueue(ctx, b.workersCtx, w.Jobs, job); err != nil {
		b.logger.Warn("telegram_enqueue_error", "chat_id", chatID, "error", err.Error())
	}
}

func (b *bot) handleCommand(ctx context.Context, chatID int64, chatType, text string) {
	cmdWord, args, _ := strings.Cut(text, " ")
	// Strip a bot mention suffix like /local@my_bot.
	if i := strings.IndexByte(cmdWord, '@'); i > 0 {
		cmdWord = cmdWord[:i]
	}
	args = strings.TrimSpace(args)

	switch strings.ToLower(cmdWord) {
	case "/start", "/help":
		help := "Send a filename like cat.jpg (or .jpeg/.png/.gif) and I will reply with a matching image.\n" +
			"Commands:\n" +
			"/local on|off - prefer the curated local corpus before searching the web\n" +
			"/id - show this chat's id"
		_ = b.api.sendMessage(ctx, chatID, help)
	case "/id":
		_ = b.api.sendMessage(ctx, chatID, fmt.Sprintf("chat_id=%d type=%s", chatID, chatType))
	case "/local":
		b.handleLocalCommand(ctx, chatID, args)
	}
	// Unknown slash commands are ignored, same as normal chat.
}

func (b *bot) handleLocalCommand(ctx context.Context, chatID int64, args string) {
	switch strings.ToLower(args) {
	case "":
		state := "off"
		if b.localModeEnabled(chatID) {
			state = "on"
		}
		_ = b.api.sendMessage(ctx, chatID, "local mode: "+state)
	case "on", "off":
		enabled := args == "on"
		if err := b.conf.SetLocalMode(ctx, chatID, enabled); err != nil {
			b.logger.Warn("chatconf_write_error", "chat_id", chatID, "error", err.Error())
			_ = b.api.sendMessage(ctx, chatID, "failed to update local mode")
			return
		}
		_ = b.api.sendMessage(ctx, chatID, "local mode: "+args)
	default:
		_ = b.api.sendMessage(ctx, chatID, "usage: /local on|off")
	}
}

func (b *bot) localModeEnabled(chatID int64) bool {
	settings, found, err := b.conf.Get(chatID)
	if err != nil {
		b.logger.Warn("chatconf_read_error", "chat_id", chatID, "error", err.Error())
		return b.localModeDefault
	}
	if !found {
		return b.localModeDefault
	}
	return settings.LocalMode
}

func (b *bot) getOrStartWorker(chatID int64) *chatWorker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.workers[chatID]; ok && w != nil {
		return w
	}
	w := &chatWorker{Jobs: make(chan resolveJob, 16)}
	b.workers[chatID] = w
	worker.Start(worker.Options[resolveJob]{
		Ctx:    b.workersCtx,
		Sem:    b.sem,
		Jobs:   w.Jobs,
		Handle: b.runResolution,
	})
	return w
}

func (b *bot) runResolution(ctx context.Context, job resolveJob) {
	taskCtx, cancel := context.WithTimeout(ctx, b.taskTimeout)
	defer cancel()

	localMode := b.localModeEnabled(job.ChatID)
	deliver := func(ctx context.Context, p resolver.Payload) error {
		return b.sendPayload(ctx, job.ChatID, p)
	}

	err := b.res.ResolveAndDeliver(taskCtx, job.Query, job.Animated, localMode, deliver)

	outcome := journalOutcomeDelivered
	switch {
	case err == nil:
	case errors.Is(err, imagesearch.ErrNoCandidates):
		outcome = journalOutcomeNoCandidates
		b.logger.Info("resolve_no_candidates", "chat_id", job.ChatID, "query", job.Query)
	case errors.Is(err, resolver.ErrExhausted):
		outcome = journalOutcomeExhausted
		b.logger.Info("resolve_exhausted", "chat_id", job.ChatID, "query", job.Query)
	default:
		// Corpus scan faults and cancellations land here.
		outcome = journalOutcomeError
		b.logger.Error("resolve_error", "chat_id", job.ChatID, "query", job.Query, "error", err.Error())
	}
	// Failed resolutions stay silent toward the chat by design; only
	// the journal and the log see them.

	if jerr := b.journal.Record(job.ChatID, job.Query, job.Animated, localMode, outcome, err); jerr != nil {
		b.logger.Warn("journal_append_error", "error", jerr.Error())
	}
}

// sendPayload picks the Bot API method from the payload's shape and
// media kind. Telegram fetches URL payloads itself; byte and file
// payloads go up as multipart uploads.
func (b *bot) sendPayload(ctx context.Context, chatID int64, p resolver.Payload) error {
	animated := p.Format == corpus.FormatAnimated
	switch {
	case p.LocalPath != "":
		if animated {
			return b.api.sendAnimationFile(ctx, chatID, p.LocalPath)
		}
		return b.api.sendPhotoFile(ctx, chatID, p.LocalPath)
	case len(p.Bytes) > 0:
		if animated {
			return b.api.sendAnimationUpload(ctx, chatID, bytes.NewReader(p.Bytes), "image.gif")
		}
		return b.api.sendPhotoUpload(ctx, chatID, bytes.NewReader(p.Bytes), "image.jpg")
	default:
		if animated {
			return b.api.sendAnimationByURL(ctx, chatID, p.URL)
		}
		return b.api.sendPhotoByURL(ctx, chatID, p.URL)
	}
}

func (b *bot) handleInlineQuery(ctx context.Context, q *telegramInlineQuery) {
	query := strings.TrimSpace(q.Query)
	if query == "" {
		if err := b.api.answerInlineQuery(ctx, q.ID, nil, b.inlineCacheTime); err != nil {
			b.logger.Warn("telegram_inline_answer_error", "error", err.Error())
		}
		return
	}

	matches, err := b.matcher.FindMatches(query)
	if err != nil {
		b.logger.Error("inline_corpus_error", "query", query, "error", err.Error())
		_ = b.api.answerInlineQuery(ctx, q.ID, nil, b.inlineCacheTime)
		return
	}

	results := buildInlineResults(matches, b.publicBaseURL)
	if err := b.api.answerInlineQuery(ctx, q.ID, results, b.inlineCacheTime); err != nil {
		b.logger.Warn("telegram_inline_answer_error", "error", err.Error())
	}
}
