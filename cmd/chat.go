package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samsaffron/bizarro/internal/config"
	"github.com/samsaffron/bizarro/internal/engine"
	"github.com/samsaffron/bizarro/internal/input"
	"github.com/samsaffron/bizarro/internal/llm"
	"github.com/samsaffron/bizarro/internal/session"
	"github.com/samsaffron/bizarro/internal/signal"
	"github.com/samsaffron/bizarro/internal/tools"
	"github.com/samsaffron/bizarro/internal/ui"
	"github.com/spf13/cobra"
)

var (
	chatFlags         OutputFlags
	chatModel         string
	chatContextLength int
	chatMaxKVSize     int
	chatEnableCache   bool
	chatCacheFile     string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session with the model",
	Long: `Start an interactive chat session.

Type 'quit' or 'exit' to end the session, 'clear' to clear the screen and
'help' for the list of commands.

Examples:
  bizarro chat
  bizarro chat --enable-tools --verbose
  bizarro chat --system "You are a pirate." --show-thinking
  bizarro chat --cache-file ~/.bizarro/chat.db`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	AddOutputFlags(chatCmd.Flags(), &chatFlags)
	AddModelFlags(chatCmd, &chatModel, &chatContextLength, &chatMaxKVSize)
	chatCmd.Flags().BoolVar(&chatEnableCache, "enable-cache", false, "Enable prompt caching for faster generation")
	chatCmd.Flags().StringVar(&chatCacheFile, "cache-file", "", "Path to store the conversation on disk and resume it (implies --enable-cache)")
	registerToolsCompletion(chatCmd)
	rootCmd.AddCommand(chatCmd)
}

// chatSession holds everything one interactive chat needs.
type chatSession struct {
	cfg      *config.Config
	flags    OutputFlags
	out      io.Writer
	errOut   io.Writer
	styles   *ui.Styles
	errStyle *ui.Styles

	engine   *engine.Engine
	registry *tools.Registry
	conv     *llm.Conversation
	stats    *ui.SessionStats
	cache    *llm.Cache
	recorder *session.Recorder
	store    session.Store
	history  *input.History
	reader   input.Reader
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context())
	defer stop()

	flags := resolveOutputFlags(cmd, &chatFlags)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.ApplyOverrides(config.Overrides{
		Model:         chatModel,
		ContextLength: chatContextLength,
		MaxKVSize:     chatMaxKVSize,
		CacheEnabled:  chatEnableCache,
		CacheFile:     chatCacheFile,
	})
	initThemeFromConfig(cfg)

	cs := &chatSession{
		cfg:    cfg,
		flags:  flags,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}
	cs.styles = ui.NewStyles(cs.out)
	cs.errStyle = ui.NewStyles(cs.errOut)

	if err := cs.start(ctx, cmd.InOrStdin()); err != nil {
		return err
	}
	defer cs.store.Close()

	status := cs.loop(ctx)
	cs.finish(context.WithoutCancel(ctx), status)
	return nil
}

// start prints the banner and prepares the conversation, tools and cache.
func (cs *chatSession) start(ctx context.Context, in io.Reader) error {
	cfg := cs.cfg
	fmt.Fprintln(cs.out, cs.styles.Loading.Render("Loading model: "+cfg.Model))

	contextLength, err := config.EffectiveContextLength(cfg.ContextLength, cfg.ModelContextLength)
	if err != nil {
		return err
	}
	fmt.Fprintln(cs.out, cs.styles.Muted.Render(contextBanner(cfg, contextLength)))

	system, err := config.LoadSystemPrompt(cs.flags.System)
	if err != nil {
		return err
	}
	cs.registry, err = toolRegistry(cfg, cs.flags)
	if err != nil {
		return err
	}

	cs.conv = llm.NewConversation()
	if system != "" {
		cs.conv.Append(llm.SystemText(system))
		fmt.Fprintln(cs.out, cs.styles.Muted.Render("System: "+system))
	}
	if cs.flags.EnableTools {
		fmt.Fprintln(cs.out, cs.styles.Muted.Render("Tools enabled: "+strings.Join(cs.registry.Names(), ", ")))
	}
	fmt.Fprintln(cs.out, cs.styles.Info.Render("Chat started! Type 'quit' or 'exit' to end the session."))
	fmt.Fprintln(cs.out)

	cs.stats = ui.NewSessionStats()
	cs.engine = newEngine(cfg, cs.registry, ui.NewTerminal(cs.out))
	cs.engine.SetToolObserver(ui.NewToolPrinter(cs.out, cs.styles, cs.stats, cs.flags.Verbose))

	if cfg.Cache.Enabled || cfg.Cache.File != "" {
		cs.cache = &llm.Cache{Enabled: true}
	}
	cs.openCacheFile(ctx, system)

	historyPath := config.GetHistoryPath()
	cs.history, err = input.LoadHistory(historyPath)
	if err != nil {
		slog.Warn("could not load chat history", "path", historyPath, "error", err)
		cs.history, _ = input.LoadHistory("")
	}

	if ui.IsTerminal(in) && ui.IsTerminal(cs.out) {
		cs.reader = &input.TTYReader{
			Echo:        cs.out,
			PromptStyle: func(s string) string { return cs.styles.Prompt.Render(s) },
			Suggestions: cs.suggestions,
		}
	} else {
		cs.reader = input.NewLineReader(in, cs.out)
	}
	return nil
}

// openCacheFile restores the saved conversation when --cache-file points at
// an existing database. Failures only warn; the chat continues uncached.
func (cs *chatSession) openCacheFile(ctx context.Context, system string) {
	cs.store = &session.NoopStore{}
	path := cs.cfg.Cache.File
	if path == "" {
		return
	}

	_, statErr := os.Stat(path)
	existed := statErr == nil

	store, err := session.NewStore(path, session.Config{MaxAgeDays: cs.cfg.Sessions.MaxAgeDays})
	if err != nil {
		cs.warn(fmt.Sprintf("Warning: Could not load cache from %s: %v", path, err))
		return
	}
	logged := session.NewLoggingStore(store, slog.Default())

	rec, history, err := session.Resume(ctx, logged, cs.cfg.Model, system)
	if err != nil {
		store.Close()
		cs.warn(fmt.Sprintf("Warning: Could not load cache from %s: %v", path, err))
		return
	}
	cs.store = logged
	cs.recorder = rec
	cs.engine.SetTurnCompletedCallback(recordTurn(rec))

	if existed {
		cs.conv.Append(history...)
		fmt.Fprintln(cs.out, cs.styles.Muted.Render("Loaded prompt cache from "+path))
		slog.Debug("resumed session", "id", rec.Session().ID, "messages", len(history))
	} else {
		fmt.Fprintln(cs.out, cs.styles.Muted.Render("Will save prompt cache to "+path))
	}
}

// recordTurn saves per-generation metrics. Store failures are already
// warned about by the LoggingStore, so they never end the turn.
func recordTurn(rec *session.Recorder) engine.TurnCompletedCallback {
	return func(ctx context.Context, round int, msgs []llm.Message, stats llm.GenerationStats) error {
		if err := rec.OnTurnCompleted(ctx, round, msgs, stats); err != nil {
			slog.Debug("record turn", "round", round, "error", err)
		}
		return nil
	}
}

// loop reads and answers user input until the user quits, input ends or the
// session is interrupted.
func (cs *chatSession) loop(ctx context.Context) session.SessionStatus {
	opts := turnOptions(cs.cfg, cs.flags, true, cs.cache)

	for {
		line, err := cs.reader.ReadLine(ctx)
		if errors.Is(err, input.ErrInterrupted) {
			cs.interrupted()
			return session.StatusInterrupted
		}
		if errors.Is(err, io.EOF) {
			return session.StatusComplete
		}
		if err != nil {
			fmt.Fprintln(cs.out, cs.styles.Error.Render("Error: "+err.Error()))
			return session.StatusComplete
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "quit", "exit":
			return session.StatusComplete
		case "clear":
			ui.ClearScreen(cs.out)
			continue
		case "help":
			cs.printHelp()
			continue
		case "":
			continue
		}

		if err := cs.history.Add(line); err != nil {
			slog.Warn("could not save chat history", "error", err)
		}
		cs.conv.Append(llm.UserText(line))

		turnStats, err := cs.engine.RunTurn(ctx, cs.conv, opts)
		if err != nil {
			if ctx.Err() != nil {
				cs.interrupted()
				return session.StatusInterrupted
			}
			fmt.Fprintln(cs.out, cs.styles.Error.Render("Error: "+err.Error()))
			continue
		}

		cs.stats.AddTurn(turnStats)
		if !cs.flags.NoStats {
			ui.WriteGenerationStats(cs.errOut, cs.errStyle, turnStats, cs.flags.Verbose)
		}
	}
}

// finish saves the conversation and prints the session summary.
func (cs *chatSession) finish(ctx context.Context, status session.SessionStatus) {
	if cs.recorder != nil && cs.conv.Len() > 0 {
		path := cs.cfg.Cache.File
		if err := cs.recorder.Save(ctx, cs.conv.Messages(), status); err != nil {
			fmt.Fprintln(cs.out)
			cs.warn(fmt.Sprintf("Warning: Could not save cache to %s: %v", path, err))
		} else {
			fmt.Fprintln(cs.out)
			fmt.Fprintln(cs.out, cs.styles.Muted.Render("Saved prompt cache to "+path))
		}
	}

	slog.Debug("chat finished", "stats", cs.stats.Render())
	if !cs.flags.NoStats && cs.stats.TurnCount > 0 {
		cs.stats.WriteSummary(cs.errOut, cs.errStyle)
	}
}

func (cs *chatSession) interrupted() {
	fmt.Fprintln(cs.out)
	fmt.Fprintln(cs.out, cs.styles.Warning.Render("Chat interrupted."))
}

func (cs *chatSession) warn(msg string) {
	fmt.Fprintln(cs.out, cs.styles.Warning.Render(msg))
}

func (cs *chatSession) printHelp() {
	fmt.Fprintln(cs.out, cs.styles.Bold.Render("Available commands:"))
	fmt.Fprintln(cs.out, "  quit/exit - End the chat session")
	fmt.Fprintln(cs.out, "  clear - Clear the screen")
	fmt.Fprintln(cs.out, "  help - Show this help message")
	if cs.registry.Len() > 0 {
		fmt.Fprintln(cs.out)
		fmt.Fprintln(cs.out, cs.styles.Bold.Render("Available tools:")+" "+strings.Join(cs.registry.Names(), ", "))
	}
	fmt.Fprintln(cs.out)
	fmt.Fprintln(cs.out, cs.styles.Muted.Render("Press Tab to complete commands and earlier inputs"))
}

// suggestions are the completion candidates for the next input line.
func (cs *chatSession) suggestions() []string {
	out := []string{"quit", "exit", "clear", "help"}
	out = append(out, cs.registry.Names()...)
	return append(out, cs.history.Recent(200)...)
}

// contextBanner describes the context window and cache mode at startup.
func contextBanner(cfg *config.Config, contextLength int) string {
	cacheStatus := "disabled"
	switch {
	case cfg.Cache.File != "":
		cacheStatus = "file: " + cfg.Cache.File
	case cfg.Cache.Enabled:
		cacheStatus = "memory"
	}

	banner := fmt.Sprintf("Using context length: %s tokens (model max: %s) | Cache: %s",
		ui.FormatCount(contextLength), ui.FormatCount(cfg.ModelContextLength), cacheStatus)
	if cfg.MaxKVSize > 0 {
		banner += " | KV cache size: " + ui.FormatCount(cfg.MaxKVSize)
	}
	return banner
}
