package app

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/fulfillrelay/internal/config"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
	"github.com/polkiloo/fulfillrelay/internal/queue"
	testhelpers "github.com/polkiloo/fulfillrelay/internal/test"
	"github.com/polkiloo/fulfillrelay/internal/worker"
)

type runtime struct {
	queue   *queue.Memory
	handler *testhelpers.TaskHandlerStub
	target  *testhelpers.MaintainerStub
	pool    *worker.ConsumerPool
	sweeper *worker.Sweeper
}

func newTestRuntime() *runtime {
	logger := testhelpers.DiscardLogger()
	r := &runtime{
		queue:   queue.NewMemory(8, 1, logger),
		handler: &testhelpers.TaskHandlerStub{},
		target:  &testhelpers.MaintainerStub{},
	}
	r.pool = worker.NewConsumerPool(r.queue, r.handler, 1, logger)
	r.sweeper = worker.NewSweeper(r.target, 10*time.Millisecond, nil, logger)
	return r
}

func TestNewHTTPServer(t *testing.T) {
	cfg := &config.Config{RunAddress: ":9999"}
	router := gin.New()
	server := newHTTPServer(serverParams{Config: cfg, Router: router})
	if server.Addr != ":9999" {
		t.Fatalf("expected address :9999, got %q", server.Addr)
	}
	if server.Handler != router {
		t.Fatalf("expected handler to be router")
	}
}

func TestNewWorkersUseConfig(t *testing.T) {
	cfg := &config.Config{SweepInterval: time.Minute, Queue: config.QueueConfig{Workers: 2}}
	pool := newConsumerPool(poolParams{
		Queue:  queue.NewMemory(1, 1, testhelpers.DiscardLogger()),
		Facade: &RelayFacade{},
		Config: cfg,
		Logger: testhelpers.DiscardLogger(),
	})
	if pool == nil {
		t.Fatal("expected consumer pool instance")
	}
	sweeper := newSweeper(sweeperParams{Facade: &RelayFacade{}, Config: cfg, Logger: testhelpers.DiscardLogger()})
	if sweeper == nil {
		t.Fatal("expected sweeper instance")
	}
}

func TestRegisterLifecycleStartStop(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}
	rt := newTestRuntime()

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     testhelpers.DiscardLogger(),
		Server:     server,
		Pool:       rt.pool,
		Sweeper:    rt.sweeper,
		Config:     &config.Config{ShutdownTimeout: 100 * time.Millisecond},
	})

	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected one hook registered, got %d", len(recorder.Hooks))
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := recorder.Start(ctx); err != nil {
		t.Fatalf("on start failed: %v", err)
	}
	cancel()

	if err := rt.queue.Publish(context.Background(), model.Task{Type: model.TaskStatusCheck}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for len(rt.handler.Tasks()) == 0 || len(rt.target.Steps()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected consumers and sweeper to run after start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	done := make(chan error, 1)
	go func() { done <- recorder.Stop(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("on stop failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected on stop to finish")
	}
}

func TestRegisterLifecycleShutdownOnServerError(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	rt := newTestRuntime()

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     testhelpers.DiscardLogger(),
		Server:     &http.Server{Addr: "bad addr"},
		Pool:       rt.pool,
		Sweeper:    rt.sweeper,
		Config:     &config.Config{ShutdownTimeout: time.Second},
	})

	hook := recorder.Hooks[0]
	if err := hook.OnStart(context.Background()); err != nil {
		t.Fatalf("on start returned error: %v", err)
	}

	select {
	case <-shutdowner.Called:
	case <-time.After(time.Second):
		t.Fatal("expected shutdown to be triggered on server error")
	}

	_ = hook.OnStop(context.Background())
}
