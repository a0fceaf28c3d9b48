package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/config"
	httptransport "github.com/example/room-booking/internal/http"
	"github.com/example/room-booking/internal/invitation"
	"github.com/example/room-booking/internal/logging"
	"github.com/example/room-booking/internal/notify"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/memory"
	"github.com/example/room-booking/internal/persistence/postgres"
	"github.com/example/room-booking/internal/persistence/sqlite"
	"github.com/example/room-booking/internal/rooms"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, config.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.LoadWithArgs(args)
	if err != nil {
		return err
	}

	logger, err := logging.New(stdout, logging.Options{Format: cfg.LogFormat, Level: cfg.LogLevel})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	storage, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "store", cfg.Store, "error", err)
		return err
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := seedRooms(ctx, cfg, storage, logger); err != nil {
		logger.Error("failed to seed rooms", "file", cfg.RoomsFile, "error", err)
		return err
	}

	queue := notify.NewQueue(notify.NewLogDispatcher(logger), notify.DefaultQueueConfig(), logger)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := queue.Close(closeCtx); err != nil {
			logger.Warn("notification queue did not drain", "error", err)
		}
	}()

	handler, err := buildHandler(cfg, storage, queue, time.Now, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("room booking API listening", "addr", server.Addr, "store", cfg.Store, "timezone", cfg.Location.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StoreSQLite:
		return sqlite.OpenStore(ctx, sqlite.DefaultConfig(cfg.SQLiteDSN), logger)
	case config.StorePostgres:
		return postgres.OpenStore(ctx, postgres.DefaultConfig(cfg.PostgresDSN), logger)
	default:
		return nil, fmt.Errorf("unsupported store %q", cfg.Store)
	}
}

func seedRooms(ctx context.Context, cfg config.Config, seeder persistence.RoomSeeder, logger *slog.Logger) error {
	if cfg.RoomsFile == "" {
		return nil
	}
	catalog, err := rooms.LoadFile(cfg.RoomsFile)
	if err != nil {
		return err
	}
	if err := rooms.Seed(ctx, seeder, catalog); err != nil {
		return err
	}
	logger.Info("room catalog loaded", "file", cfg.RoomsFile, "rooms", len(catalog))
	return nil
}

func buildHandler(cfg config.Config, storage persistence.Store, dispatcher notify.Dispatcher, now func() time.Time, logger *slog.Logger) (http.Handler, error) {
	tokens, err := invitation.NewService(invitation.Config{
		Secret: cfg.TokenSecret,
		Issuer: invitation.DefaultIssuer,
		TTL:    cfg.TokenTTL,
	}, now)
	if err != nil {
		return nil, fmt.Errorf("configure invitations: %w", err)
	}

	roomService := application.NewRoomServiceWithLogger(storage, now, 0, logger)
	availabilityService := application.NewAvailabilityServiceWithLogger(roomService, storage, cfg.MaxSuggestions, logger)
	meetingService := application.NewMeetingService(application.MeetingServiceDeps{
		Meetings:    storage,
		Rooms:       roomService,
		Suggester:   availabilityService,
		Tokens:      tokens,
		Dispatcher:  dispatcher,
		Links:       cfg.InvitationLink,
		Location:    cfg.Location,
		IDGenerator: uuid.NewString,
		Now:         now,
		Logger:      logger,
	})
	responseService := application.NewResponseServiceWithLogger(tokens, storage, roomService, dispatcher, cfg.Location, now, logger)

	return httptransport.NewRouter(httptransport.RouterConfig{
		Meetings: httptransport.NewMeetingHandler(httptransport.MeetingHandlerConfig{
			Meetings:     meetingService,
			Availability: availabilityService,
			Location:     cfg.Location,
			Logger:       logger,
		}),
		Rooms: httptransport.NewRoomHandler(httptransport.RoomHandlerConfig{
			Rooms:        roomService,
			Availability: availabilityService,
			Schedules:    meetingService,
			Location:     cfg.Location,
			Now:          now,
			Logger:       logger,
		}),
		Confirmations: httptransport.NewConfirmationHandler(responseService, logger),
		CORSOrigins:   cfg.CORSOrigins,
		Logger:        logger,
	}), nil
}
