package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/specialistvlad/formulagrid/internal/config"
	"github.com/specialistvlad/formulagrid/internal/executor"
	"github.com/specialistvlad/formulagrid/internal/hcl"
	"github.com/specialistvlad/formulagrid/internal/receipts"
	"github.com/specialistvlad/formulagrid/internal/resolver"
	"github.com/specialistvlad/formulagrid/internal/service"
	"github.com/specialistvlad/formulagrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toolchainHCL = `
formula "autoconf" {
  version = "2.71"
  source {
    url = "https://ftp.gnu.org/gnu/autoconf/autoconf-2.71.tar.gz"
  }
  install {
    step {
      command = "./configure"
      args    = ["--prefix=${prefix}"]
    }
  }
}

formula "automake" {
  desc    = "Tool for generating GNU Standards-compliant Makefiles"
  version = "1.16.5"
  dependencies = ["autoconf"]
  source {
    url = "https://ftp.gnu.org/gnu/automake/automake-1.16.5.tar.gz"
  }
  install {
    step {
      command = "make"
      args    = ["install"]
      env     = { AUTOCONF = "${opt}/../autoconf/bin/autoconf" }
    }
  }
}
`

const daemonHCL = `
formula "tunneld" {
  source {
    url = "https://example.com/tunneld/archive/v0.3.1.tar.gz"
  }
  build_dependencies = ["automake"]
  install {
    step {
      command = "make"
    }
  }
  service {
    program_arguments = ["${bin}/tunneld", "--config", "${etc}/tunneld.conf"]
    stdout_path       = "${log_dir}/out.log"
    run_at_load       = true
    manual            = "tunneld --foreground"
  }
}
`

func formulae() map[string]string {
	return map[string]string{"toolchain.hcl": toolchainHCL, "tunneld.hcl": daemonHCL}
}

func TestInstall_Success(t *testing.T) {
	// --- Arrange ---
	runner := &testutil.RecordingRunner{}
	var receiptsPath string
	a, out, logs := setupAppTest(t, formulae(), func(c *Config) {
		receiptsPath = filepath.Join(filepath.Dir(c.Prefix), "var", "receipts.db")
		c.ReceiptsPath = receiptsPath
		c.Workers = 1
		c.Env = map[string]string{"MAKEFLAGS": "-j2"}
	}, WithStepRunner(runner))

	// --- Act ---
	err := a.Install(context.Background(), []string{"tunneld"})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"autoconf", "automake", "tunneld"}, runner.Packages())
	requests := runner.Requests()
	assert.Contains(t, requests[1].Env, "MAKEFLAGS=-j2")
	assert.Contains(t, requests[1].Env, "PATH=/usr/bin:/bin")

	assert.Contains(t, out.String(), "3 succeeded, 0 failed, 0 skipped, 0 canceled")
	assert.Contains(t, logs.String(), "run_id=")

	store, err := receipts.Open(context.Background(), receiptsPath)
	require.NoError(t, err)
	defer store.Close()
	r, err := store.Get(context.Background(), "tunneld")
	require.NoError(t, err)
	assert.Equal(t, "0.3.1", r.Version, "version is inferred from the source url")
	assert.Equal(t, []string{"automake"}, r.BuildDeps)
}

func TestInstall_BuildFailure(t *testing.T) {
	// --- Arrange ---
	runner := &testutil.RecordingRunner{Fail: map[string]int{"automake": 2}, Output: []byte("make: *** [all] Error 2\n")}
	a, out, _ := setupAppTest(t, formulae(), nil, WithStepRunner(runner))

	// --- Act ---
	err := a.Install(context.Background(), []string{"tunneld"})

	// --- Assert ---
	var summary *executor.FailureSummary
	require.ErrorAs(t, err, &summary)
	assert.Len(t, summary.Failures, 2)
	assert.Contains(t, err.Error(), "automake (install step 0")

	var failure *executor.StepFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 2, failure.ExitStatus)

	assert.Contains(t, out.String(), "✘ failed    automake 1.16.5")
	assert.Contains(t, out.String(), "    | make: *** [all] Error 2")
	assert.Contains(t, out.String(), "- skipped   tunneld 0.3.1")
	assert.NotContains(t, runner.Packages(), "tunneld")
}

func TestInstall_StageErrors(t *testing.T) {
	testCases := []struct {
		name  string
		files map[string]string
		pkgs  []string
		stage error
		as    any
	}{
		{
			name:  "unknown package",
			files: formulae(),
			pkgs:  []string{"tunnel"},
			stage: ErrResolve,
			as:    new(*resolver.UnknownPackageError),
		},
		{
			name:  "parse error",
			files: map[string]string{"broken.hcl": `formula "x" {`},
			pkgs:  []string{"x"},
			stage: ErrLoad,
			as:    new(*hcl.ParseError),
		},
		{
			name: "missing dependency",
			files: map[string]string{"a.hcl": `
formula "a" {
  version = "1"
  dependencies = ["ghost"]
  source {
    url = "https://example.com/a.tgz"
  }
  install {}
}`},
			pkgs:  []string{"a"},
			stage: ErrResolve,
			as:    new(*resolver.MissingDependencyError),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &testutil.RecordingRunner{}
			a, _, _ := setupAppTest(t, tc.files, nil, WithStepRunner(runner))

			err := a.Install(context.Background(), tc.pkgs)

			assert.ErrorIs(t, err, tc.stage)
			assert.ErrorAs(t, err, tc.as)
			assert.Empty(t, runner.Requests(), "no step runs when loading or resolving fails")
		})
	}
}

func TestPlan(t *testing.T) {
	a, out, _ := setupAppTest(t, formulae(), nil)

	require.NoError(t, a.Plan(context.Background(), []string{"tunneld"}))

	assert.Equal(t, strings.Join([]string{
		"1. autoconf 2.71",
		"2. automake 1.16.5 (after autoconf)",
		"3. tunneld 0.3.1 (after automake)",
		"",
	}, "\n"), out.String())
}

func TestService(t *testing.T) {
	t.Run("plist", func(t *testing.T) {
		a, out, logs := setupAppTest(t, formulae(), nil)

		require.NoError(t, a.Service(context.Background(), "tunneld", FormatPlist))

		prefix := a.config.Prefix
		assert.Contains(t, out.String(), "<string>homebrew.mxcl.tunneld</string>")
		assert.Contains(t, out.String(), "<string>"+prefix+"/Cellar/tunneld/0.3.1/bin/tunneld</string>")
		assert.Contains(t, out.String(), "<string>"+prefix+"/etc/tunneld.conf</string>")
		assert.Contains(t, out.String(), "<string>"+prefix+"/var/log/tunneld/out.log</string>")
		assert.Contains(t, logs.String(), "tunneld --foreground")
	})

	t.Run("yaml", func(t *testing.T) {
		a, out, _ := setupAppTest(t, formulae(), nil)

		require.NoError(t, a.Service(context.Background(), "tunneld", FormatYAML))

		assert.Contains(t, out.String(), "label: homebrew.mxcl.tunneld\n")
		assert.Contains(t, out.String(), "run_at_load: true\n")
	})

	t.Run("no service template", func(t *testing.T) {
		a, _, _ := setupAppTest(t, formulae(), nil)

		err := a.Service(context.Background(), "autoconf", FormatPlist)

		var tmplErr *service.TemplateError
		require.ErrorAs(t, err, &tmplErr)
		assert.ErrorIs(t, err, ErrResolve)
	})
}

func TestFmt_OutputLoadsBack(t *testing.T) {
	// --- Arrange ---
	a, out, _ := setupAppTest(t, formulae(), nil)

	// --- Act ---
	require.NoError(t, a.Fmt(context.Background()))

	// --- Assert ---
	assert.Contains(t, out.String(), "# "+filepath.Join(a.config.FormulaePath, "toolchain.hcl"))
	loaded, err := hcl.NewLoader().LoadSource(context.Background(), "fmt.hcl", []byte(out.String()))
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, "0.3.1", loaded[2].Version)
	assert.Equal(t, []string{"${bin}/tunneld", "--config", "${etc}/tunneld.conf"}, loaded[2].Service.ProgramArguments)
}

func TestList(t *testing.T) {
	// --- Arrange ---
	runner := &testutil.RecordingRunner{}
	a, out, _ := setupAppTest(t, formulae(), func(c *Config) {
		c.ReceiptsPath = filepath.Join(filepath.Dir(c.Prefix), "receipts.db")
	}, WithStepRunner(runner))

	// --- Act ---
	require.NoError(t, a.List(context.Background()))
	before := out.String()
	require.NoError(t, a.Install(context.Background(), []string{"autoconf"}))
	out.Reset()
	require.NoError(t, a.List(context.Background()))

	// --- Assert ---
	assert.Equal(t, "autoconf 2.71\nautomake 1.16.5 - Tool for generating GNU Standards-compliant Makefiles\ntunneld 0.3.1\n", before)
	assert.Contains(t, out.String(), "autoconf 2.71 [installed 2.71]\n")
	assert.NotContains(t, out.String(), "tunneld 0.3.1 [installed")
}

func TestList_WithoutDatabaseShowsSessionInstalls(t *testing.T) {
	// --- Arrange ---
	a, out, _ := setupAppTest(t, formulae(), nil, WithStepRunner(&testutil.RecordingRunner{}))
	require.NoError(t, a.Install(context.Background(), []string{"automake"}))
	out.Reset()

	// --- Act ---
	require.NoError(t, a.List(context.Background()))

	// --- Assert ---
	assert.Contains(t, out.String(), "autoconf 2.71 [installed 2.71]\n")
	assert.Contains(t, out.String(), "automake 1.16.5 [installed 1.16.5] - Tool")
	assert.Contains(t, out.String(), "tunneld 0.3.1\n")
	r, err := a.session.Get(context.Background(), "automake")
	require.NoError(t, err)
	assert.Equal(t, []string{"autoconf"}, r.RuntimeDeps)
}

func TestHealthHandler(t *testing.T) {
	a, _, _ := setupAppTest(t, formulae(), nil)
	a.health = &healthState{RunID: "run-1", Packages: 3, StartedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}

	rec := httptest.NewRecorder()
	a.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","run_id":"run-1","packages":3,"started_at":"2025-01-02T03:04:05Z","finished":false}`, rec.Body.String())
}

func TestNewConfig(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		_, err := NewConfig(DefaultConfig())
		assert.NoError(t, err)
	})

	t.Run("every problem is reported", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.FormulaePath = ""
		cfg.Workers = -1
		cfg.LogLevel = "verbose"
		cfg.LogFormat = "xml"

		_, err := NewConfig(cfg)

		assert.ErrorContains(t, err, "formulae path is a required configuration field")
		assert.ErrorContains(t, err, "workers must not be negative")
		assert.ErrorContains(t, err, `invalid log level "verbose"`)
		assert.ErrorContains(t, err, `invalid log format "xml"`)
	})
}

func TestApplyFile(t *testing.T) {
	// --- Arrange ---
	f, err := config.Decode(strings.NewReader("workers: 3\nstep_timeout: 5m\nlog:\n  format: json\nenv:\n  CC: clang\n"))
	require.NoError(t, err)
	cfg := DefaultConfig()

	// --- Act ---
	cfg.ApplyFile(f)

	// --- Assert ---
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 5*time.Minute, cfg.StepTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel, "unset fields keep their value")
	assert.Equal(t, "Formula", cfg.FormulaePath)
	assert.Equal(t, map[string]string{"CC": "clang"}, cfg.Env)
}

func TestStageErrorsKeepMessage(t *testing.T) {
	err := wrapStage(ErrLoad, errors.New("boom"))
	assert.EqualError(t, err, "failed to load formulae: boom")
}
