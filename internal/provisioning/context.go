package provisioning

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/deps"
	"github.com/imamik/vpsgate/internal/firewall"
	"github.com/imamik/vpsgate/internal/metrics"
	"github.com/imamik/vpsgate/internal/params"
	"github.com/imamik/vpsgate/internal/platform/dns"
	hcloud_internal "github.com/imamik/vpsgate/internal/platform/hcloud"
	"github.com/imamik/vpsgate/internal/prompt"
	"github.com/imamik/vpsgate/internal/render"
	"github.com/imamik/vpsgate/internal/report"
	"github.com/imamik/vpsgate/internal/service"
	"github.com/imamik/vpsgate/internal/state"
	"github.com/imamik/vpsgate/internal/util/command"
)

// Options are the operator's choices for a run.
type Options struct {
	Overrides params.Overrides
	// RegenerateKeys replaces existing WireGuard key pairs.
	RegenerateKeys bool
	// Arch overrides the frp release architecture.
	Arch string
}

// Results accumulates what the phases did, for the summary.
type Results struct {
	Steps        []report.Step
	Dependencies []deps.Result
	Origins      map[params.Field]string
	KeysCreated  bool

	Rendered render.Set
	Files    *render.Result
	// ServiceConfigChanged is set when a file read by the service changed.
	ServiceConfigChanged bool
	UploadedBackup       []string

	Firewall      *firewall.UFWResult
	CloudFirewall *hcloud_internal.FirewallSync

	Service   *service.Result
	Artifacts *report.Artifacts

	Warnings []string
	// Declined is set when the operator declined to update.
	Declined bool
}

// Context wraps all dependencies and state needed for a provisioning phase.
type Context struct {
	context.Context
	Config   *config.Config
	State    *state.ProvisioningState
	Observer Observer
	Timeouts *config.Timeouts
	Metrics  *metrics.Recorder
	Options  Options
	Results  *Results

	Runner   command.Runner
	Fetcher  deps.Fetcher
	Prompter prompt.Prompter
	Detector params.IPDetector
	// Resolver is used for the DNS probe; nil skips it.
	Resolver *dns.Resolver
	// CloudFirewall is nil without HCLOUD_TOKEN.
	CloudFirewall CloudFirewall
	// Backups is nil unless offsite backups are configured.
	Backups BackupStore
	// Out receives the summary.
	Out io.Writer

	LookupEnv func(string) (string, bool)
	Euid      func() int
	Now       func() time.Time
	BusyPorts func(ctx context.Context, ports ...int) []int

	stage   Stage
	current string
	notes   []string
	lock    *state.Lock

	// healthPort replaces the variant's health port when set.
	healthPort int
}

// NewContext creates a new provisioning context with production
// collaborators. Tests replace individual fields.
func NewContext(ctx context.Context, cfg *config.Config, runner command.Runner, prompter prompt.Prompter) *Context {
	timeouts := config.LoadTimeouts()
	c := &Context{
		Context:  ctx,
		Config:   cfg,
		State:    newState(cfg),
		Observer: NewConsoleObserver(),
		Timeouts: timeouts,
		Metrics:  metrics.NewRecorder(string(cfg.Variant)),
		Results:  &Results{},

		Runner:   runner,
		Fetcher:  deps.NewHTTPFetcher(timeouts.Download),
		Prompter: prompter,
		Resolver: dns.NewResolver(cfg.DNS.Resolver, timeouts.IPLookup),
		Out:      os.Stdout,

		LookupEnv: os.LookupEnv,
		Euid:      os.Geteuid,
		Now:       time.Now,
	}
	return c
}

func newState(cfg *config.Config) *state.ProvisioningState {
	return &state.ProvisioningState{
		Variant:    cfg.Variant,
		InstallDir: cfg.ResolvedInstallDir(),
	}
}

// Stage returns the stage the run reached.
func (c *Context) Stage() Stage {
	return c.stage
}

// Note adds a short detail to the summary line of the running phase.
func (c *Context) Note(detail string) {
	c.notes = append(c.notes, detail)
}

// Warn records a warning for the summary and logs it.
func (c *Context) Warn(message string) {
	c.Results.Warnings = append(c.Results.Warnings, message)
	LogWarning(c.Observer, c.current, message)
}

// WithTimeout derives a context bounded by d, or unbounded when d is 0.
func (c *Context) WithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(c.Context)
	}
	return context.WithTimeout(c.Context, d)
}

// Close releases the install-directory lock taken during preflight.
func (c *Context) Close() error {
	err := c.lock.Release()
	c.lock = nil
	return err
}
