// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/ThinkInAIXYZ/go-mcp/server"
	"github.com/rs/zerolog/log"

	"mcp-glucose-log/internal/catalog"
	"mcp-glucose-log/internal/classifier"
	"mcp-glucose-log/internal/events"
	"mcp-glucose-log/internal/mealstore"
	"mcp-glucose-log/internal/photos"
	"mcp-glucose-log/internal/profiles"
	"mcp-glucose-log/internal/storage"
)

const (
	serverName = "glucose-log"
	Version    = "1.0.0"
)

// PhotoArchive stores classified photos and returns their URL.
type PhotoArchive interface {
	Put(ctx context.Context, img classifier.Image) (string, error)
}

// Components are the collaborators the tool handlers work on.
type Components struct {
	Meals      *mealstore.MealLog
	Profiles   *profiles.Profiles
	Catalog    *catalog.Catalog
	Classifier classifier.Classifier
	Estimator  *CarbEstimator
	Photos     PhotoArchive
	Bus        *events.Bus
}

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

type GlucoseLogServer struct {
	server     *server.Server
	httpServer *http.Server
	storage    *storage.SQLiteStorage
	watcher    *catalog.Watcher
	tools      map[string]toolHandler
	config     *Config
	Components
}

// NewGlucoseLogServer opens the database and builds every optional
// integration the config enables.
func NewGlucoseLogServer(ctx context.Context, cfg *Config) (*GlucoseLogServer, error) {
	stor, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	c, watcher, err := buildComponents(ctx, cfg, stor)
	if err != nil {
		stor.Close()
		return nil, err
	}

	s, err := New(cfg, c)
	if err != nil {
		if watcher != nil {
			watcher.Close()
		}
		stor.Close()
		return nil, err
	}
	s.storage = stor
	s.watcher = watcher
	return s, nil
}

// buildComponents creates the catalog watcher last. The caller owns it on
// success.
func buildComponents(ctx context.Context, cfg *Config, stor storage.Store) (Components, *catalog.Watcher, error) {
	bus := events.NewBus()

	meals, err := mealstore.Open(ctx, stor, bus)
	if err != nil {
		return Components{}, nil, fmt.Errorf("failed to open meal log: %w", err)
	}
	profs, err := profiles.Open(ctx, stor)
	if err != nil {
		return Components{}, nil, fmt.Errorf("failed to open profiles: %w", err)
	}

	foods := catalog.NewDefault()
	var chain []classifier.Classifier
	if cfg.RekognitionEnabled {
		rek, err := classifier.NewRekognitionFromRegion(ctx, cfg.AWSRegion, foods)
		if err != nil {
			return Components{}, nil, fmt.Errorf("failed to create rekognition classifier: %w", err)
		}
		chain = append(chain, rek)
	}
	chain = append(chain, classifier.NewPseudo(foods, classifier.WithDelay(cfg.ClassifyDelay)))

	c := Components{
		Meals:      meals,
		Profiles:   profs,
		Catalog:    foods,
		Classifier: classifier.NewChain(chain...),
		Bus:        bus,
	}

	if cfg.LLM.APIKey != "" {
		c.Estimator, err = NewOpenRouterEstimator(cfg.LLM)
		if err != nil {
			return Components{}, nil, err
		}
	} else {
		log.Warn().Msg("OPENROUTER_API_KEY not set, carb estimates will ask for clarification")
	}

	if cfg.PhotoBucket != "" {
		archive, err := photos.NewArchiveFromRegion(ctx, cfg.AWSRegion, cfg.PhotoBucket, cfg.PhotoBaseURL)
		if err != nil {
			return Components{}, nil, fmt.Errorf("failed to create photo archive: %w", err)
		}
		c.Photos = archive
	}

	var watcher *catalog.Watcher
	if cfg.CatalogPath != "" {
		watcher, err = catalog.NewWatcher(cfg.CatalogPath, foods)
		if err != nil {
			return Components{}, nil, fmt.Errorf("failed to watch food catalog: %w", err)
		}
		if err := watcher.Reload(); err != nil {
			watcher.Close()
			return Components{}, nil, fmt.Errorf("failed to load food catalog: %w", err)
		}
	}

	return c, watcher, nil
}

// New wires the tool server around ready-made components.
func New(cfg *Config, c Components) (*GlucoseLogServer, error) {
	if c.Meals == nil || c.Profiles == nil || c.Catalog == nil || c.Classifier == nil {
		return nil, errors.New("meals, profiles, catalog and classifier are required")
	}
	if c.Bus == nil {
		c.Bus = events.NewBus()
	}

	s := &GlucoseLogServer{
		config:     cfg,
		Components: c,
	}

	mcpServer, err := server.NewServer(
		nil, // tool calls are served over plain HTTP below
		server.WithServerInfo(protocol.Implementation{
			Name:    serverName,
			Version: Version,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP server: %w", err)
	}
	s.server = mcpServer

	s.registerTools()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func (s *GlucoseLogServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHTTP)
	mux.Handle("/events", events.NewHub(s.Bus))
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *GlucoseLogServer) handleHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	result, err := s.callTool(r.Context(), &request)
	if err != nil {
		status := statusFor(err)
		logEvent := log.Warn()
		if status == http.StatusInternalServerError {
			logEvent = log.Error()
		}
		logEvent.Err(err).Str("tool", request.Name).Int("status", status).Msg("tool call failed")
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *GlucoseLogServer) callTool(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	handler, ok := s.tools[req.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, req.Name)
	}
	start := time.Now()
	result, err := handler(ctx, req)
	log.Debug().Str("tool", req.Name).Dur("took", time.Since(start)).Bool("ok", err == nil).Msg("tool call")
	return result, err
}

func (s *GlucoseLogServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":      "ok",
		"version":     Version,
		"meals":       s.Meals.Len(),
		"foods":       s.Catalog.Len(),
		"subscribers": s.Bus.Subscribers(),
	}
	if s.storage != nil {
		updated, err := s.storage.UpdatedAt(r.Context(), storage.KeyMeals)
		switch {
		case err == nil:
			health["meals_updated_at"] = updated
		case !errors.Is(err, storage.ErrNotFound):
			log.Error().Err(err).Msg("health check failed")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// Start serves until ctx is cancelled or the listener fails. The catalog
// watcher, when configured, runs for the same lifetime.
func (s *GlucoseLogServer) Start(ctx context.Context) error {
	if s.watcher != nil {
		go s.watcher.Run(ctx)
	}
	log.Info().Str("addr", s.httpServer.Addr).Str("transport", s.config.Transport).Int("tools", len(s.tools)).Msg("starting glucose log server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *GlucoseLogServer) Stop(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		errs = append(errs, s.httpServer.Shutdown(ctx))
	}
	if s.watcher != nil {
		errs = append(errs, s.watcher.Close())
	}
	if s.storage != nil {
		errs = append(errs, s.storage.Close())
	}
	return errors.Join(errs...)
}

func (s *GlucoseLogServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return textResult(string(jsonBytes)), nil
}

func textResult(text string) *protocol.CallToolResult {
	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: text,
			},
		},
	}
}
