package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

//go:generate mockgen -destination=./app_mock.go -package=app -source=app.go

// Dependency is the interface that wraps the basic methods of a dependency required for the application.
type Dependency interface {
	// Start is anything a dependency needs to do before it's ready to be used
	Start() error
	// Stop is anything a dependency needs to do before it's ready to be stopped
	Stop() error
	// Name is the name of the dependency. It is used for logging and identification purposes, only.
	Name() string
}

// Job is the work the application runs once its dependencies are started.
type Job func(ctx context.Context) error

type App struct {
	serviceName string
	// deps are started in order and stopped in reverse.
	deps []Dependency
	// stopCalled is an atomic bool. It allows stop to be called once
	stopCalled atomic.Bool
	// runCalled allows Run to be called once
	runCalled atomic.Bool
	// stopTimeout is the amount of time the application will wait for dependencies to stop before exiting.
	stopTimeout time.Duration
	// signals are the OS signals that cancel the job.
	signals []os.Signal
}

type Config struct {
	ServiceName string
	StopTimeout time.Duration
}

func (c *Config) validate() error {
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, errors.New("service name is required"))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, errors.New("stop timeout is required"))
	}
	return errors.Join(errs...)
}

// CreateApp creates a new application with the provided dependencies.
func CreateApp(cfg *Config, deps ...Dependency) (*App, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &App{
		serviceName: cfg.ServiceName,
		deps:        deps,
		stopTimeout: cfg.StopTimeout,
		signals:     []os.Signal{os.Interrupt, syscall.SIGTERM},
	}, nil
}

// Run starts every dependency, runs job and stops the dependencies again. The job's context is
// cancelled when ctx is, or when the OS asks the process to stop. Run may only be called once.
func (a *App) Run(ctx context.Context, job Job) error {
	if !a.runCalled.CompareAndSwap(false, true) {
		return errors.New("run has already been called")
	}

	started, err := a.start()
	if err != nil {
		log.Error().Err(err).Msg("Dependency failed to start")
		return errors.Join(err, a.stop(started))
	}

	jobCtx, cancel := signal.NotifyContext(ctx, a.signals...)
	defer cancel()

	log.Debug().Str("service", a.serviceName).Msg("running job")
	jobErr := a.runJob(jobCtx, job)
	if jobCtx.Err() != nil && ctx.Err() == nil {
		log.Info().Msg("OS Signal received: shutdown beginning...")
	}

	if err = a.stop(started); err != nil {
		log.Error().Msg("Error stopping application: " + err.Error())
	}
	return errors.Join(jobErr, err)
}

// start starts dependencies in order and returns the ones that started.
func (a *App) start() (started []Dependency, err error) {
	for _, dep := range a.deps {
		log.Info().Msg("Starting dependency: " + dep.Name())
		if err = startDependency(dep); err != nil {
			return started, err
		}
		started = append(started, dep)
	}
	return started, nil
}

func startDependency(dep Dependency) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in Start() for dependency %s: %v", dep.Name(), r)
		}
	}()

	if err = dep.Start(); err != nil {
		return fmt.Errorf("failure in Start() for dependency %s: %w", dep.Name(), err)
	}
	return nil
}

func (a *App) runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in job: %v", r)
		}
	}()
	return job(ctx)
}

// stop attempts a graceful shutdown of each dependency, last started first.
func (a *App) stop(deps []Dependency) error {
	if !a.stopCalled.CompareAndSwap(false, true) {
		return errors.New("stop has already been called")
	}

	ctxTo, cancel := context.WithTimeout(context.Background(), a.stopTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		var errs []error
		for i := len(deps) - 1; i >= 0; i-- {
			dep := deps[i]
			log.Info().Msg("Stopping dependency: " + dep.Name())
			if err := dep.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("failure in Stop() for dependency %s: %w",
					dep.Name(), err))
			}
		}
		done <- errors.Join(errs...)
	}()

	// we need all dependencies to stop before we can return
	select {
	case err := <-done:
		return err
	case <-ctxTo.Done():
		return fmt.Errorf("dependencies did not stop within %s: %w", a.stopTimeout, ctxTo.Err())
	}
}
