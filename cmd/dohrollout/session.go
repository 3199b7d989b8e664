package main

//
// Home directory and engine construction
//

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/ooni/dohrollout/internal/captiveportal"
	"github.com/ooni/dohrollout/internal/config"
	"github.com/ooni/dohrollout/internal/debounce"
	"github.com/ooni/dohrollout/internal/dnsprobe"
	"github.com/ooni/dohrollout/internal/heuristics"
	"github.com/ooni/dohrollout/internal/kvstore"
	"github.com/ooni/dohrollout/internal/model"
	"github.com/ooni/dohrollout/internal/netchange"
	"github.com/ooni/dohrollout/internal/orchestrator"
	"github.com/ooni/dohrollout/internal/policy"
	"github.com/ooni/dohrollout/internal/prefs"
	"github.com/ooni/dohrollout/internal/prompt"
	"github.com/ooni/dohrollout/internal/rollout"
	"github.com/ooni/dohrollout/internal/telemetry"
	pkgerrors "github.com/pkg/errors"
	"github.com/upper/db/v4"
)

// homeEnv is the environment variable overriding the home directory.
const homeEnv = "DOHROLLOUT_HOME"

// captivePortalTimeout is the timeout of each captive portal check.
const captivePortalTimeout = 10 * time.Second

// homeDir returns the home directory to use.
func (opts *globalOptions) homeDir() (string, error) {
	if opts.home != "" {
		return opts.home, nil
	}
	if home := os.Getenv(homeEnv); home != "" {
		return home, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", pkgerrors.Wrap(err, "default home directory")
	}
	return filepath.Join(userHome, ".dohrollout"), nil
}

// Paths inside the home directory.
func enginePath(home string) string {
	return filepath.Join(home, "engine")
}

func prefsPath(home string) string {
	return filepath.Join(home, "prefs.json")
}

func dbPath(home string) string {
	return filepath.Join(home, "db", "telemetry.sqlite3")
}

func configPath(home string) string {
	return filepath.Join(home, "config.json")
}

// readOrInitConfig reads the config file. When the user did not provide
// a config file and the home directory does not contain one, we write the
// default config into the home directory.
func readOrInitConfig(opts *globalOptions, home string) (*config.Config, error) {
	if opts.configPath != "" {
		log.Debugf("Reading config file from %s", opts.configPath)
		return config.ReadConfig(opts.configPath)
	}
	path := configPath(home)
	c, err := config.ReadConfig(path)
	if !errors.Is(err, fs.ErrNotExist) {
		return c, err
	}
	log.Debugf("Writing default config file to %s", path)
	c, err = config.ParseConfig([]byte("{}"))
	if err != nil {
		return nil, err
	}
	c.SetPath(path)
	if err := c.Write(); err != nil {
		return nil, err
	}
	return c, nil
}

// session contains the components sharing the home directory.
type session struct {
	config    *config.Config
	db        db.Session
	home      string
	prefs     *prefs.FileStore
	sm        *rollout.StateMachine
	telemetry model.TelemetrySink
}

// openSession initializes the home directory and opens the engine state.
func openSession(opts *globalOptions) (*session, error) {
	home, err := opts.homeDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(home, 0700); err != nil {
		return nil, pkgerrors.Wrap(err, "creating home directory")
	}
	cfg, err := readOrInitConfig(opts, home)
	if err != nil {
		return nil, err
	}
	kvs, err := kvstore.NewFS(enginePath(home))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "opening engine state")
	}
	store := prefs.NewFileStore(prefsPath(home))
	store.Logger = log.Log
	log.Debugf("Connecting to database sqlite3://%s", dbPath(home))
	sess, err := telemetry.Connect(dbPath(home))
	if err != nil {
		return nil, err
	}
	sink := telemetry.MultiSink{
		&telemetry.LoggerSink{Logger: log.Log},
		telemetry.NewDBSink(sess, log.Log),
		telemetry.MetricsSink{},
	}
	sm := rollout.NewStateMachine(&rollout.Config{
		Flags:     kvs,
		Prefs:     store,
		Telemetry: sink,
		Logger:    log.Log,
	})
	return &session{
		config:    cfg,
		db:        sess,
		home:      home,
		prefs:     store,
		sm:        sm,
		telemetry: sink,
	}, nil
}

// Close closes the database.
func (s *session) Close() error {
	return s.db.Close()
}

func (s *session) newResolver() *dnsprobe.Resolver {
	return &dnsprobe.Resolver{
		Logger:      model.NewPrefixLogger("dnsprobe", log.Log),
		Nameservers: s.config.Resolver.Nameservers,
		ResolvConf:  s.config.Resolver.ResolvConf,
		Timeout:     s.config.Resolver.Timeout(),
	}
}

func (s *session) newHeuristics() *heuristics.Engine {
	resolver := s.newResolver()
	return heuristics.NewEngine(&heuristics.Config{
		Resolver: resolver,
		Policy: &policy.FileOracle{
			Path:             s.config.PoliciesPath,
			ParentalControls: s.config.ParentalControls,
		},
		Prefs:     s.prefs,
		Suffixes:  resolver,
		Telemetry: s.telemetry,
		Logger:    log.Log,
	})
}

func (s *session) newCaptivePortal() *captiveportal.Detector {
	return &captiveportal.Detector{
		URL:          s.config.CaptivePortal.URL,
		ExpectedBody: s.config.CaptivePortal.ExpectedBody,
		Logger:       log.Log,
		Timeout:      captivePortalTimeout,
	}
}

func (s *session) newNetworkPoller() *netchange.Poller {
	return &netchange.Poller{
		Interval: s.config.Network.PollInterval(),
		Logger:   log.Log,
	}
}

// newOrchestrator creates the orchestrator using the given adapters.
func (s *session) newOrchestrator(
	captive model.CaptivePortal, network model.NetworkNotifier) *orchestrator.Orchestrator {
	debouncer := debounce.New(network.IsLinkUp)
	debouncer.Window = s.config.DebounceWindow()
	surface := &prompt.Terminal{
		Timeout: s.config.PromptTimeout(),
		Logger:  log.Log,
	}
	return orchestrator.New(&orchestrator.Config{
		StateMachine:  s.sm,
		Doorhanger:    rollout.NewDoorhanger(s.sm, surface, nil, log.Log),
		Heuristics:    s.newHeuristics(),
		CaptivePortal: captive,
		Network:       network,
		Prefs:         s.prefs,
		Debouncer:     debouncer,
		Logger:        log.Log,
	})
}
