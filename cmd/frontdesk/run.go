package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/yamagen/frontdesk/internal/agents"
	"github.com/yamagen/frontdesk/internal/config"
	"github.com/yamagen/frontdesk/internal/history"
	"github.com/yamagen/frontdesk/internal/intent"
	"github.com/yamagen/frontdesk/internal/ledger"
	"github.com/yamagen/frontdesk/internal/orchestrator"
	"github.com/yamagen/frontdesk/internal/registry"
	"github.com/yamagen/frontdesk/internal/transcript"
	"github.com/yamagen/frontdesk/internal/tui"
)

// session bundles the dispatcher with everything that needs teardown.
type session struct {
	dispatcher *orchestrator.Dispatcher
	closers    []func() error
}

func (s *session) close() {
	for _, fn := range s.closers {
		_ = fn()
	}
}

// buildSession wires the dispatcher from config. In demo mode agents are
// scripted and routing is keyword-based, so no API key is required.
func buildSession(cfg *config.Config, poster orchestrator.Poster, monitor orchestrator.Monitor) (*session, error) {
	catalog := agents.DefaultCatalog()
	if cfg.Paths.AgentsFile != "" {
		loaded, err := agents.LoadCatalog(cfg.Paths.AgentsFile)
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}

	histPath := cfg.Paths.HistoryDB
	if histPath == "" {
		histPath = history.DefaultPath()
	}
	store, err := history.Open(histPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}

	s := &session{closers: []func() error{store.Close}}

	execs := agents.NewExecutorSet()
	for _, name := range catalog.Names() {
		// Scripted executors stand in until real agent backends register.
		execs.Register(name, agents.NewDemoExecutor())
	}

	var classifier intent.Classifier
	if demoMode {
		classifier = intent.NewKeywordClassifier(catalog.Names())
	} else {
		classifier, err = intent.NewAnthropicClassifier(intent.ClassifierConfig{
			APIKey:        cfg.Anthropic.APIKey,
			Model:         cfg.Anthropic.Model,
			UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
			AWSProfile:    cfg.Anthropic.AWSProfile,
			Agents:        catalog.All(),
		})
		if err != nil {
			s.close()
			return nil, fmt.Errorf("set up classifier: %w (try --demo)", err)
		}
	}

	opts := orchestrator.Options{
		Registry:        registry.New(),
		Ledger:          ledger.New(store, ledger.WithJPYRate(cfg.Ledger.JPYPerUSD)),
		Catalog:         catalog,
		Executors:       execs,
		Classifier:      classifier,
		Poster:          poster,
		Monitor:         monitor,
		Vocab:           config.NewVocabulary(cfg.Vocabulary),
		Pricing:         ledger.PricingFor(cfg.Anthropic.Model),
		PhaseTimeout:    cfg.Timeouts.Phase,
		ClassifyTimeout: cfg.Timeouts.Classify,
	}

	if cfg.Paths.TranscriptDB != "" {
		archive, err := transcript.Open(cfg.Paths.TranscriptDB)
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, archive.Close)
		opts.Archive = archive
	}

	d, err := orchestrator.New(opts)
	if err != nil {
		s.close()
		return nil, err
	}
	s.dispatcher = d

	// Keyword edits in the project config take effect live.
	if projectCfg := config.GetProjectConfigPath(); projectCfg != "" {
		watcher, err := config.NewVocabWatcher(projectCfg, opts.Vocab)
		if err == nil {
			watcher.SetReloadHandler(d.SetVocabulary)
			s.closers = append(s.closers, watcher.Close)
		}
	}

	return s, nil
}

// runChat starts the full-screen chat surface.
func runChat() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if plainMode {
		return runPlain(cfg)
	}

	program, app := tui.NewChatProgram()
	s, err := buildSession(cfg, tui.NewProgramPoster(program), nil)
	if err != nil {
		return err
	}
	defer s.close()

	app.SetSubmitHandler(chatSubmitHandler(s.dispatcher, tui.NewProgramPoster(program)))

	_, err = program.Run()
	return err
}

// chatSubmitHandler forwards TUI input to the dispatcher. Structural errors
// have no task left to post through, so they are reflected into the chat log
// directly.
func chatSubmitHandler(d *orchestrator.Dispatcher, errOut orchestrator.Poster) func(string) {
	return func(text string) {
		err := d.HandleMessage(context.Background(), orchestrator.Inbound{
			ConversationID: "local",
			Channel:        "tui",
			Text:           text,
		})
		if err != nil {
			_ = errOut.Post("local", "tui", fmt.Sprintf("error: %v", err))
		}
	}
}

// consolePoster prints replies directly, for --plain mode.
type consolePoster struct{}

func (consolePoster) Post(conversationID, channel, text string) error {
	fmt.Printf("%s %s\n", color.GreenString("frontdesk:"), text)
	return nil
}

// runPlain reads lines from stdin and prints replies, with the task monitor
// drawn inline. Useful over SSH and in scripts.
func runPlain(cfg *config.Config) error {
	s, err := buildSession(cfg, consolePoster{}, orchestrator.NewTerminalMonitor(os.Stderr))
	if err != nil {
		return err
	}
	defer s.close()

	fmt.Println("frontdesk ready. Type \"help\" for commands, Ctrl-D to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		err := s.dispatcher.HandleMessage(context.Background(), orchestrator.Inbound{
			ConversationID: "local",
			Channel:        "console",
			Text:           scanner.Text(),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
		}
	}
	return scanner.Err()
}
