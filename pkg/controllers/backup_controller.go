package controllers

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sukryu/gqpanel/pkg/errors"
	"github.com/sukryu/gqpanel/pkg/metrics"
)

const (
	DefaultDumpTimeout    = 120 * time.Second
	DefaultRestoreTimeout = 300 * time.Second

	maxToolOutput = 500
)

// BackupOptions locates the database tools and the database they act on.
type BackupOptions struct {
	BinDir         string
	DumpTimeout    time.Duration
	RestoreTimeout time.Duration

	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// CommandRunner runs an external tool with extra environment entries and
// returns its standard output.
type CommandRunner func(ctx context.Context, path string, args []string, env []string) ([]byte, error)

// BackupController dumps and restores the whole database through pg_dump and
// psql.
type BackupController interface {
	// Backup returns a plain SQL dump and its download file name.
	Backup(ctx context.Context) ([]byte, string, error)
	// Restore replays an uploaded .sql dump.
	Restore(ctx context.Context, filename string, r io.Reader) error
}

type backupController struct {
	opts   BackupOptions
	run    CommandRunner
	logger *zap.Logger
	now    func() time.Time
}

func NewBackupController(opts BackupOptions, logger *zap.Logger) BackupController {
	return NewBackupControllerWithRunner(opts, ExecRunner, logger)
}

func NewBackupControllerWithRunner(opts BackupOptions, run CommandRunner, logger *zap.Logger) BackupController {
	if opts.DumpTimeout <= 0 {
		opts.DumpTimeout = DefaultDumpTimeout
	}
	if opts.RestoreTimeout <= 0 {
		opts.RestoreTimeout = DefaultRestoreTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &backupController{opts: opts, run: run, logger: logger, now: time.Now}
}

// ExecRunner runs the tool as a child process. A non-zero exit carries the
// head of the tool's error output.
func ExecRunner(ctx context.Context, path string, args []string, env []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = append(os.Environ(), env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if len(msg) > maxToolOutput {
			msg = msg[:maxToolOutput]
		}
		if msg == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", err, msg)
	}
	return stdout.Bytes(), nil
}

func (c *backupController) tool(name string) string {
	if c.opts.BinDir == "" {
		return name
	}
	return filepath.Join(c.opts.BinDir, name)
}

func (c *backupController) env() []string {
	env := []string{"PGCLIENTENCODING=UTF8"}
	if c.opts.Password != "" {
		env = append(env, "PGPASSWORD="+c.opts.Password)
	}
	return env
}

func (c *backupController) connArgs() []string {
	return []string{"-U", c.opts.User, "-h", c.opts.Host, "-p", strconv.Itoa(c.opts.Port)}
}

func (c *backupController) Backup(ctx context.Context) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.DumpTimeout)
	defer cancel()

	args := append(c.connArgs(), "-F", "p", "--clean", "--if-exists", "--no-owner", "--no-acl", c.opts.Database)
	out, err := c.run(ctx, c.tool("pg_dump"), args, c.env())
	if err != nil {
		return nil, "", c.toolError("pg_dump", err)
	}
	metrics.ToolRuns.WithLabelValues("pg_dump", metrics.OutcomeSuccess).Inc()

	filename := fmt.Sprintf("greenquality_backup_%s.sql", c.now().Format("20060102_150405"))
	c.logger.Info("database backup created", zap.String("file", filename), zap.Int("bytes", len(out)))
	return out, filename, nil
}

func (c *backupController) Restore(ctx context.Context, filename string, r io.Reader) error {
	if filename == "" || r == nil {
		return errors.ErrInvalidInput.WithReason("select a backup file (.sql)")
	}
	if !strings.HasSuffix(filename, ".sql") {
		return errors.ErrInvalidInput.WithReason("backup file must have the .sql extension")
	}

	tmp, err := os.CreateTemp("", "gqpanel-restore-"+uuid.NewString()+"-*.sql")
	if err != nil {
		c.logger.Error("failed to create restore spool file", zap.Error(err))
		return errors.ErrInternal.WithReason("could not store the uploaded file")
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("failed to remove restore spool file", zap.String("path", tmpPath), zap.Error(err))
		}
	}()

	_, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		c.logger.Error("failed to spool uploaded backup", zap.NamedError("copy", copyErr), zap.NamedError("close", closeErr))
		return errors.ErrInternal.WithReason("could not store the uploaded file")
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.RestoreTimeout)
	defer cancel()

	args := append(c.connArgs(), "-d", c.opts.Database, "-f", tmpPath, "-v", "ON_ERROR_STOP=1")
	if _, err := c.run(ctx, c.tool("psql"), args, c.env()); err != nil {
		return c.toolError("psql", err)
	}
	metrics.ToolRuns.WithLabelValues("psql", metrics.OutcomeSuccess).Inc()
	c.logger.Info("database restored", zap.String("file", filename))
	return nil
}

func (c *backupController) toolError(tool string, err error) error {
	metrics.ToolRuns.WithLabelValues(tool, metrics.OutcomeError).Inc()
	c.logger.Error("database tool failed", zap.String("tool", tool), zap.Error(err))

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.ErrToolTimeout.WithReason(tool)
	case stderrors.Is(err, exec.ErrNotFound), stderrors.Is(err, os.ErrNotExist):
		return errors.ErrToolUnavailable.WithReason(fmt.Sprintf("%s not found, set tools.bindir", tool))
	default:
		return errors.ErrToolFailed.WithReason(tool)
	}
}
