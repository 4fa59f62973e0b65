package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/steadyapp/steady/internal/config"
	"github.com/steadyapp/steady/internal/core"
	"github.com/steadyapp/steady/internal/core/coach"
	db "github.com/steadyapp/steady/internal/core/database"
	"github.com/steadyapp/steady/internal/core/llm"
	"github.com/steadyapp/steady/internal/intervention"
	"github.com/steadyapp/steady/internal/services"
)

type App struct {
	DBClient core.DbClient
	Worker   *intervention.Worker
	Server   *Server

	gemini *llm.GeminiLLM
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	// Both generation collaborators are optional; a nil client just routes
	// message generation to the next path down.
	var coachClient core.CoachClient
	if cfg.RemoteCoachConfigured() {
		oc, err := coach.NewOrchestratorClient(cfg.OrchestratorURL, cfg.OrchestratorAPIKey)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the coaching client, %w", err)
		}
		coachClient = oc
		log.Println("Remote coaching orchestrator configured.")
	} else {
		log.Println("Remote coaching orchestrator not configured; using local generation.")
	}

	var (
		llmProvider core.LLMProvider
		gemini      *llm.GeminiLLM
	)
	if cfg.AIAPIKey != "" {
		gemini, err = llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the LLM provider, %w", err)
		}
		llmProvider = gemini
	} else {
		log.Println("GEMINI_API_KEY not set; local AI generation disabled.")
	}

	composer := intervention.NewComposer(dbClient, coachClient, llmProvider)
	worker := intervention.NewWorker(composer, cfg.UpgradeQueueSize)

	engagement := services.NewEngagementService(dbClient)
	checkins := services.NewCheckinService(dbClient, composer, worker, engagement)

	server := NewServer(cfg, dbClient, checkins)

	return &App{DBClient: dbClient, Worker: worker, Server: server, gemini: gemini}, nil
}

func (a *App) Close() {
	if a.gemini != nil {
		_ = a.gemini.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
