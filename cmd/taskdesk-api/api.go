package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/taskdesk/pkg/assignment"
	"github.com/dukex/taskdesk/pkg/eventbus"
	"github.com/dukex/taskdesk/pkg/events"
	"github.com/dukex/taskdesk/pkg/persistence"
	"github.com/dukex/taskdesk/pkg/persistence/cache"
	"github.com/dukex/taskdesk/pkg/services"
	"github.com/dukex/taskdesk/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

// Config holds the tunables of the assignment forms.
type Config struct {
	FormIdleTimeout  time.Duration
	StepFetchTimeout time.Duration
	SweepSchedule    string
	StepCacheTTL     time.Duration
}

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	validate    *validator.Validate

	workflows *services.Workflow
	forms     *services.Forms
	sweeper   *services.FormSweeper
	handlers  *web.APIHandlers
}

// NewAPI wires the services. redisClient may be nil, which disables the
// workflow step cache.
func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	redisClient redis.UniversalClient,
	config Config,
) (*API, error) {
	workflowService := services.NewWorkflow(persistence, logger.With("service", "workflow"))
	directory := services.NewDirectory(persistence)

	var steps assignment.StepLookup = workflowService

	if redisClient != nil {
		stepCache := cache.NewStepCache(workflowService, redisClient, config.StepCacheTTL, logger.With("module", "step_cache"))
		workflowService.OnChange(func(ctx context.Context, workflowID string) {
			err := stepCache.Invalidate(ctx, workflowID)
			if err != nil {
				logger.WarnContext(ctx, "Failed to invalidate workflow steps", "workflow_id", workflowID, "error", err)
			}
		})

		steps = stepCache
	}

	taskService := services.NewTask(persistence, steps, directory, eventBus, logger.With("service", "task"))
	forms := services.NewForms(steps, taskService, directory, logger.With("service", "forms"),
		services.WithIdleTimeout(config.FormIdleTimeout),
		services.WithStepFetchTimeout(config.StepFetchTimeout),
	)

	sweeper, err := services.NewFormSweeper(forms, config.SweepSchedule, logger.With("module", "sweeper"))
	if err != nil {
		return nil, err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		validate:    validate,
		workflows:   workflowService,
		forms:       forms,
		sweeper:     sweeper,
		handlers:    web.NewAPIHandlers(workflowService, directory, taskService, forms, validate),
	}, nil
}

func (a *API) App() *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			_, ok := a.workflows.HealthCheck(c.Context())

			return ok
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("taskdesk API")
	})

	a.handlers.Register(app)

	return app
}

// Start subscribes the assignment notifier, starts the form sweeper and
// serves the API until ctx is cancelled.
func (a *API) Start(ctx context.Context, port int) error {
	notifier := NewAssignmentNotifier(a.logger.With("module", "notifier"))

	err := a.eventBus.Handle(events.TaskAssignedEvent, notifier.TaskAssigned)
	if err != nil {
		return err
	}

	err = a.eventBus.Handle(events.TaskDeletedEvent, notifier.TaskDeleted)
	if err != nil {
		return err
	}

	err = a.eventBus.Subscribe(ctx)
	if err != nil {
		return err
	}

	err = a.sweeper.Start()
	if err != nil {
		return err
	}

	defer a.forms.CloseAll()
	defer a.sweeper.Stop()

	app := a.App()

	go func() {
		<-ctx.Done()
		a.logger.Info("Shutting down API server")

		err := app.ShutdownWithTimeout(shutdownTimeout)
		if err != nil {
			a.logger.Error("Failed to shutdown API server", "error", err)
		}
	}()

	return app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
}
