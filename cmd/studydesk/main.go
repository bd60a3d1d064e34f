package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/example/studydesk/internal/config"
	"github.com/example/studydesk/internal/essay"
	"github.com/example/studydesk/internal/session"
	"github.com/example/studydesk/internal/source"
	"github.com/example/studydesk/internal/speech"
	"github.com/example/studydesk/internal/storage"
	"github.com/example/studydesk/internal/study"
	"github.com/example/studydesk/internal/web"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	if err := cfg.ExpandDataDir(); err != nil {
		return err
	}

	store, err := storage.NewDocStore(cfg.DataDir)
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Info("database opened", "path", cfg.Database)

	studyCtrl := study.NewController(store, db, cfg.DailyLimit, logger)

	essayDef := essay.DefaultEssay()
	if cfg.EssayPath != "" {
		data, err := os.ReadFile(cfg.EssayPath)
		if err != nil {
			return fmt.Errorf("failed to read essay definition: %w", err)
		}
		essayDef, err = essay.ParseEssay(data)
		if err != nil {
			return err
		}
		logger.Info("loaded essay definition", "path", cfg.EssayPath, "title", essayDef.Title)
	}
	essayCtrl := essay.NewController(essayDef, store, db, logger)

	sources := source.NewService(db, studyCtrl, cfg.ReposDir, logger)

	synth := speech.New()
	if _, ok := synth.(speech.Unavailable); ok {
		logger.Warn("no text-to-speech command found, audio cards will show a notice")
	}

	server, err := web.NewServer(studyCtrl, essayCtrl, sources, db, synth, cfg.SpeechRate, session.Mode(cfg.StudyMode), logger)
	if err != nil {
		return err
	}

	logger.Info("listening", "addr", cfg.Listen)
	return http.ListenAndServe(cfg.Listen, server)
}
