package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andrea-bruno/cloudsync/internal/config"
)

func resetFlags(t *testing.T) {
	t.Helper()

	oldVerbose, oldDebug, oldQuiet := flagVerbose, flagDebug, flagQuiet
	t.Cleanup(func() { flagVerbose, flagDebug, flagQuiet = oldVerbose, oldDebug, oldQuiet })

	flagVerbose, flagDebug, flagQuiet = false, false, false
}

func TestBuildLogger_Default(t *testing.T) {
	resetFlags(t)

	logger := buildLogger(nil)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
}

func TestBuildLogger_Verbose(t *testing.T) {
	resetFlags(t)
	flagVerbose = true

	logger := buildLogger(nil)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_Debug(t *testing.T) {
	resetFlags(t)
	flagDebug = true

	logger := buildLogger(nil)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_Quiet(t *testing.T) {
	resetFlags(t)
	flagQuiet = true

	logger := buildLogger(nil)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelError))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
}

func TestBuildLogger_ConfigDebug(t *testing.T) {
	resetFlags(t)

	cfg := &config.Config{Logging: config.LoggingConfig{LogLevel: "debug"}}
	logger := buildLogger(cfg)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_VerboseOverridesConfig(t *testing.T) {
	resetFlags(t)
	flagVerbose = true

	cfg := &config.Config{Logging: config.LoggingConfig{LogLevel: "error"}}
	logger := buildLogger(cfg)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestCliContextFrom_NilContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, cliContextFrom(ctx))
}

func TestCliContextFrom_WithCLIContext(t *testing.T) {
	expected := &CLIContext{Cfg: &config.Config{CloudRoot: "/test"}}
	ctx := context.WithValue(context.Background(), cliContextKey{}, expected)

	cc := cliContextFrom(ctx)
	assert.Equal(t, expected, cc)
	assert.Equal(t, "/test", cc.Cfg.CloudRoot)
}

func TestMustCLIContext_Panics(t *testing.T) {
	assert.Panics(t, func() { mustCLIContext(context.Background()) })
}

func TestMustCLIContext_Returns(t *testing.T) {
	expected := &CLIContext{Cfg: &config.Config{CloudRoot: "/must-test"}}
	ctx := context.WithValue(context.Background(), cliContextKey{}, expected)

	cc := mustCLIContext(ctx)
	assert.Equal(t, expected, cc)
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	expected := []string{"run", "status", "pause", "resume", "verify"}
	for _, name := range expected {
		_, _, err := cmd.Find([]string{name})
		assert.NoError(t, err, "expected subcommand %q", name)
	}
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	cmd := newRootCmd()

	expectedFlags := []string{"config", "cloud-root", "peer-addr", "json", "verbose", "debug", "quiet"}
	for _, name := range expectedFlags {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "expected persistent flag %q", name)
	}
}

func TestNewRootCmd_MutualExclusivity(t *testing.T) {
	pairs := [][]string{
		{"--verbose", "--debug"},
		{"--verbose", "--quiet"},
		{"--debug", "--quiet"},
	}

	for _, flags := range pairs {
		t.Run(flags[0]+"_"+flags[1], func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetArgs(append(flags, "status"))

			err := cmd.Execute()
			assert.Error(t, err)
		})
	}
}

func TestAnnotationBasedSkipConfig(t *testing.T) {
	cmd := newRootCmd()

	skipPaths := [][]string{{"pause"}, {"resume"}}
	for _, args := range skipPaths {
		sub, _, err := cmd.Find(args)
		assert.NoError(t, err)
		assert.Equal(t, "true", sub.Annotations[skipConfigAnnotation])
	}

	configPaths := [][]string{{"run"}, {"status"}, {"verify"}}
	for _, args := range configPaths {
		sub, _, err := cmd.Find(args)
		assert.NoError(t, err)
		assert.Empty(t, sub.Annotations[skipConfigAnnotation])
	}
}
