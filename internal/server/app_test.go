package server

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/dmitrijs2005/warrantypool/internal/server/archive"
	"github.com/dmitrijs2005/warrantypool/internal/server/config"
	"github.com/dmitrijs2005/warrantypool/internal/server/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.StoreKind = config.StoreMemory
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.EndpointAddrHTTP = "127.0.0.1:0"
	return c
}

func quietLogs(t *testing.T) {
	t.Helper()
	orig := logOutput
	logOutput = io.Discard
	t.Cleanup(func() { logOutput = orig })
}

func TestNewApp_Memory(t *testing.T) {
	quietLogs(t)

	app, err := NewApp(context.Background(), memoryConfig())
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, app.store)
	assert.Nil(t, app.db)
	assert.NotNil(t, app.pool)
	assert.NotNil(t, app.accounts)
	assert.NotNil(t, app.reconciler)
}

func TestNewApp_BadTimeZone(t *testing.T) {
	quietLogs(t)

	c := memoryConfig()
	c.TimeZone = "Mars/Olympus"
	_, err := NewApp(context.Background(), c)
	assert.Error(t, err)
}

func TestNewApp_BadProbeURL(t *testing.T) {
	quietLogs(t)

	c := memoryConfig()
	c.ProbeURL = "::not a url"
	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "probe init error")
}

func TestNewApp_PostgresOpenFails(t *testing.T) {
	quietLogs(t)

	orig := openDB
	t.Cleanup(func() { openDB = orig })
	openDB = func(driver, dsn string) (*sql.DB, error) {
		assert.Equal(t, "pgx", driver)
		return nil, errors.New("no driver")
	}

	c := memoryConfig()
	c.StoreKind = config.StorePostgres
	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "db init error")
}

func TestNewApp_Archive(t *testing.T) {
	quietLogs(t)

	orig := newS3Archiver
	t.Cleanup(func() { newS3Archiver = orig })

	var got archive.S3Config
	newS3Archiver = func(ctx context.Context, cfg archive.S3Config) (archive.Archiver, error) {
		got = cfg
		return archive.Nop{}, nil
	}

	c := memoryConfig()
	c.S3Bucket = "evictions"
	_, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "evictions", got.Bucket)
	assert.True(t, got.UsePathStyle)

	newS3Archiver = func(ctx context.Context, cfg archive.S3Config) (archive.Archiver, error) {
		return nil, errors.New("no bucket")
	}
	_, err = NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "archive init error")
}

func TestRun_StopsOnCancel(t *testing.T) {
	quietLogs(t)

	app, err := NewApp(context.Background(), memoryConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
}

func TestRun_StopsWhenComponentFails(t *testing.T) {
	quietLogs(t)

	c := memoryConfig()
	c.EndpointAddrHTTP = "127.0.0.1:99999"
	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		app.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop after a component failed")
	}
}
