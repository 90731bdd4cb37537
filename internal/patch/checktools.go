package patch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// CommandResult is one check command's outcome.
type CommandResult struct {
	OK      bool
	Skipped bool
	Output  string
}

// CheckReport is CheckTools.All's return shape, field-for-field from
// check_tools.py's CheckReport construction.
type CheckReport struct {
	OK          bool
	TypecheckOK bool
	LintOK      bool
	UnitOK      bool
	Logs        string
}

// CheckConfig carries the commands CheckTools runs, ported from
// RuntimeConfig.Checks. Empty Typecheck/Lint/Unit slices mean "skip".
type CheckConfig struct {
	Typecheck []string
	Lint      []string
	Unit      []string
	Sandboxed bool
	Image     string
	Timeout   time.Duration
}

// CheckTools runs typecheck/lint/unit commands against a project tree,
// either directly via os/exec or, when Sandboxed, inside a throwaway Docker
// container. Grounded on check_tools.py's CheckTools, generalized from its
// hardcoded pnpm/pytest invocations to the configured command lists spec.md
// §2.1's domain stack table names.
type CheckTools struct {
	ProjectPath string
	Config      CheckConfig
}

// NewCheckTools constructs a CheckTools for projectPath with cfg, filling
// any of Typecheck/Lint/Unit cfg left empty from frontend/package.json's
// scripts, if present.
func NewCheckTools(projectPath string, cfg CheckConfig) *CheckTools {
	return &CheckTools{ProjectPath: projectPath, Config: fillFromFrontendScripts(projectPath, cfg)}
}

// fillFromFrontendScripts auto-discovers typecheck/lint/unit commands from
// frontend/package.json for any CheckConfig command list left unset,
// mirroring check_tools.py's package.json-driven skip logic: a script's
// absence there means "skip", its presence means "npm run <script>".
func fillFromFrontendScripts(projectPath string, cfg CheckConfig) CheckConfig {
	if len(cfg.Typecheck) > 0 && len(cfg.Lint) > 0 && len(cfg.Unit) > 0 {
		return cfg
	}
	scripts := frontendScripts(projectPath)
	if scripts == nil {
		return cfg
	}
	if len(cfg.Typecheck) == 0 {
		if _, ok := scripts["typecheck"]; ok {
			cfg.Typecheck = []string{"npm", "run", "typecheck"}
		}
	}
	if len(cfg.Lint) == 0 {
		if _, ok := scripts["lint"]; ok {
			cfg.Lint = []string{"npm", "run", "lint"}
		}
	}
	if len(cfg.Unit) == 0 {
		if _, ok := scripts["test"]; ok {
			cfg.Unit = []string{"npm", "run", "test"}
		}
	}
	return cfg
}

func (c *CheckTools) run(ctx context.Context, argv []string) CommandResult {
	if len(argv) == 0 {
		return CommandResult{OK: true, Skipped: true, Output: "skipped"}
	}
	if c.Config.Sandboxed {
		return c.runSandboxed(ctx, argv)
	}
	return c.runLocal(ctx, argv)
}

func (c *CheckTools) runLocal(ctx context.Context, argv []string) CommandResult {
	cctx, cancel := context.WithTimeout(ctx, checkTimeout(c.Config.Timeout))
	defer cancel()

	cmd := exec.CommandContext(cctx, argv[0], argv[1:]...)
	cmd.Dir = c.ProjectPath
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	if errors.Is(err, exec.ErrNotFound) {
		return CommandResult{OK: true, Skipped: true, Output: "skipped"}
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return CommandResult{OK: true, Skipped: true, Output: "skipped"}
	}
	return CommandResult{OK: err == nil, Output: buf.String()}
}

// runSandboxed runs argv inside a short-lived container built from
// Config.Image, mounting ProjectPath read-write at /workspace. Grounded on
// spec.md §2.1's docker/docker wiring for sandboxed check execution; no
// analogous sandboxing exists in check_tools.py, which always shells out
// directly.
func (c *CheckTools) runSandboxed(ctx context.Context, argv []string) CommandResult {
	cctx, cancel := context.WithTimeout(ctx, checkTimeout(c.Config.Timeout))
	defer cancel()

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return CommandResult{OK: true, Skipped: true, Output: fmt.Sprintf("docker unavailable: %v", err)}
	}
	defer cli.Close()

	resp, err := cli.ContainerCreate(cctx, &container.Config{
		Image:      c.Config.Image,
		Cmd:        argv,
		WorkingDir: "/workspace",
		Tty:        false,
	}, &container.HostConfig{
		Binds: []string{c.ProjectPath + ":/workspace"},
	}, nil, nil, "")
	if err != nil {
		return CommandResult{OK: false, Output: fmt.Sprintf("container create failed: %v", err)}
	}
	defer cli.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true})

	if err := cli.ContainerStart(cctx, resp.ID, container.StartOptions{}); err != nil {
		return CommandResult{OK: false, Output: fmt.Sprintf("container start failed: %v", err)}
	}

	statusCh, errCh := cli.ContainerWait(cctx, resp.ID, container.WaitConditionNotRunning)
	var exitCode int64
	select {
	case err := <-errCh:
		return CommandResult{OK: false, Output: fmt.Sprintf("container wait failed: %v", err)}
	case status := <-statusCh:
		exitCode = status.StatusCode
	}

	logs, err := cli.ContainerLogs(context.Background(), resp.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	var out string
	if err == nil {
		defer logs.Close()
		b, _ := io.ReadAll(logs)
		out = string(b)
	}
	return CommandResult{OK: exitCode == 0, Output: out}
}

func checkTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// Typecheck runs the configured typecheck command, or reports Skipped if
// none is configured.
func (c *CheckTools) Typecheck(ctx context.Context) CommandResult {
	return c.run(ctx, c.Config.Typecheck)
}

// Lint runs the configured lint command.
func (c *CheckTools) Lint(ctx context.Context) CommandResult {
	return c.run(ctx, c.Config.Lint)
}

// Unit runs the configured unit test command.
func (c *CheckTools) Unit(ctx context.Context) CommandResult {
	return c.run(ctx, c.Config.Unit)
}

// All runs typecheck, lint, and unit in sequence and folds them into one
// CheckReport, mirroring check_tools.py's CheckTools.all.
func (c *CheckTools) All(ctx context.Context) CheckReport {
	t := c.Typecheck(ctx)
	l := c.Lint(ctx)
	u := c.Unit(ctx)
	return CheckReport{
		OK:          t.OK && l.OK && u.OK,
		TypecheckOK: t.OK,
		LintOK:      l.OK,
		UnitOK:      u.OK,
		Logs:        fmt.Sprintf("TC: %s\nLint: %s\nUnit: %s", t.Output, l.Output, u.Output),
	}
}

// frontendScripts reads frontend/package.json's "scripts" map, the way
// check_tools.py decides whether typecheck/lint are configured at all.
// Used by fillFromFrontendScripts to back-fill a CheckConfig left
// unconfigured by RuntimeConfig.
func frontendScripts(projectPath string) map[string]string {
	data, err := os.ReadFile(filepath.Join(projectPath, "frontend", "package.json"))
	if err != nil {
		return nil
	}
	var parsed struct {
		Scripts map[string]string `json:"scripts"`
	}
	if json.Unmarshal(data, &parsed) != nil {
		return nil
	}
	return parsed.Scripts
}
