package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newDependency(ctrl *gomock.Controller, name string) *MockDependency {
	m := NewMockDependency(ctrl)
	m.EXPECT().Name().Return(name).AnyTimes()
	return m
}

func TestCreateApp(t *testing.T) {
	tests := map[string]struct {
		cfg     *Config
		wantErr bool
	}{
		"valid":           {cfg: &Config{ServiceName: "svc", StopTimeout: time.Second}},
		"missing name":    {cfg: &Config{StopTimeout: time.Second}, wantErr: true},
		"missing timeout": {cfg: &Config{ServiceName: "svc"}, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := CreateApp(tc.cfg)
			if tc.wantErr {
				require.Error(t, err)
				require.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
		})
	}
}

func TestRun(t *testing.T) {
	boom := errors.New("boom")

	tests := map[string]struct {
		setup   func(first, second *MockDependency)
		job     Job
		wantErr error
	}{
		"starts in order and stops in reverse": {
			setup: func(first, second *MockDependency) {
				gomock.InOrder(
					first.EXPECT().Start().Return(nil),
					second.EXPECT().Start().Return(nil),
					second.EXPECT().Stop().Return(nil),
					first.EXPECT().Stop().Return(nil),
				)
			},
			job: func(ctx context.Context) error { return nil },
		},
		"job error is returned after stopping": {
			setup: func(first, second *MockDependency) {
				first.EXPECT().Start().Return(nil)
				second.EXPECT().Start().Return(nil)
				second.EXPECT().Stop().Return(nil)
				first.EXPECT().Stop().Return(nil)
			},
			job:     func(ctx context.Context) error { return boom },
			wantErr: boom,
		},
		"failed start stops what already started": {
			setup: func(first, second *MockDependency) {
				first.EXPECT().Start().Return(nil)
				second.EXPECT().Start().Return(boom)
				first.EXPECT().Stop().Return(nil)
			},
			job: func(ctx context.Context) error {
				panic("job must not run")
			},
			wantErr: boom,
		},
		"stop errors are returned": {
			setup: func(first, second *MockDependency) {
				first.EXPECT().Start().Return(nil)
				second.EXPECT().Start().Return(nil)
				second.EXPECT().Stop().Return(boom)
				first.EXPECT().Stop().Return(nil)
			},
			job:     func(ctx context.Context) error { return nil },
			wantErr: boom,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			first := newDependency(ctrl, "first")
			second := newDependency(ctrl, "second")
			tc.setup(first, second)

			a, err := CreateApp(&Config{ServiceName: "svc", StopTimeout: time.Second}, first, second)
			require.NoError(t, err)

			err = a.Run(context.Background(), tc.job)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRunRecoversPanics(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dep := newDependency(ctrl, "dep")
	dep.EXPECT().Start().Return(nil)
	dep.EXPECT().Stop().Return(nil)

	a, err := CreateApp(&Config{ServiceName: "svc", StopTimeout: time.Second}, dep)
	require.NoError(t, err)

	err = a.Run(context.Background(), func(ctx context.Context) error {
		panic("kaboom")
	})
	require.ErrorContains(t, err, "panic in job: kaboom")
}

func TestRunOnce(t *testing.T) {
	a, err := CreateApp(&Config{ServiceName: "svc", StopTimeout: time.Second})
	require.NoError(t, err)

	noop := func(ctx context.Context) error { return nil }
	require.NoError(t, a.Run(context.Background(), noop))
	require.Error(t, a.Run(context.Background(), noop))
}

func TestRunCancelledContext(t *testing.T) {
	a, err := CreateApp(&Config{ServiceName: "svc", StopTimeout: time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = a.Run(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestStopTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	release := make(chan struct{})
	defer close(release)

	dep := newDependency(ctrl, "slow")
	dep.EXPECT().Start().Return(nil)
	dep.EXPECT().Stop().DoAndReturn(func() error {
		<-release
		return nil
	}).MaxTimes(1)

	a, err := CreateApp(&Config{ServiceName: "svc", StopTimeout: 20 * time.Millisecond}, dep)
	require.NoError(t, err)

	err = a.Run(context.Background(), func(ctx context.Context) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
