package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fdswitch/fdswitch/engine/common"
	"github.com/fdswitch/fdswitch/engine/consts"
	"github.com/fdswitch/fdswitch/engine/fslog"
	"github.com/go-ini/ini"
	"github.com/pkg/errors"
)

const (
	_DEFAULT_CONFIG_FILE    = "fdswitch.ini"
	_DEFAULT_DOTENV_FILE    = ".env"
	_DEFAULT_API_URL        = "http://localhost:30000"
	_DEFAULT_DATA_PATH      = "./foundrydata"
	_DEFAULT_ENV_FILE       = "foundry.env"
	_DEFAULT_PROJECT        = "foundry"
	_DEFAULT_SERVICE        = "foundry"
	_DEFAULT_RESTART_MODE   = "compose"
	_DEFAULT_RESTART_SIGNAL = "SIGTERM"
	_DEFAULT_HTTP_IP        = "127.0.0.1"
	_DEFAULT_HTTP_PORT      = 8080
	_DEFAULT_LOG_LEVEL      = "info"
	_DEFAULT_REDIS_KEY      = "fdswitch:presence"
)

// Restart modes
const (
	RestartModeCompose = "compose"
	RestartModeECS     = "ecs"
	RestartModeSignal  = "signal"
)

var (
	configFilePath = _DEFAULT_CONFIG_FILE
	dotenvFilePath = _DEFAULT_DOTENV_FILE
	fdsConfig      *FDSConfig
	configLock     sync.Mutex
)

// FoundryConfig defines where the hosted service is reached and where its data lives
type FoundryConfig struct {
	APIURL   string
	DataPath string
	EnvFile  string
	Timeout  time.Duration
}

// RestartConfig defines how the hosted service is restarted
type RestartConfig struct {
	Mode      string // compose, ecs or signal
	Project   string // compose project name (compose), cluster (ecs)
	Directory string // compose project directory (compose)
	Service   string // compose service (compose), ecs service (ecs), executable name (signal)
	Signal    string // signal name (signal)
	Region    string // aws region (ecs), empty uses the sdk default chain
	Timeout   time.Duration
}

// AccessConfig defines the static allow-lists for switch requests
type AccessConfig struct {
	AllowedUserIDs common.StringSet
	AllowedRoleIDs common.StringSet
}

// PollerConfig defines fields of the status poller
type PollerConfig struct {
	Interval time.Duration
}

// PresenceConfig defines the optional redis presence mirror
type PresenceConfig struct {
	RedisURL     string // host:port, empty disables the redis sink
	RedisDB      int
	RedisKey     string
	RedisChannel string
	RedisTimeout time.Duration // bounds each redis connect, read and write
}

// HTTPConfig defines the listen address of the command front-end
type HTTPConfig struct {
	Ip   string
	Port int
}

// Addr returns ip:port
func (hc HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", hc.Ip, hc.Port)
}

// LogConfig defines fields of log config
type LogConfig struct {
	Level  string
	File   string
	Stderr bool
}

// FDSConfig defines the total fdswitch config
type FDSConfig struct {
	Foundry  FoundryConfig
	Restart  RestartConfig
	Access   AccessConfig
	Poller   PollerConfig
	Presence PresenceConfig
	HTTP     HTTPConfig
	Log      LogConfig
}

// SetConfigFile sets the config file path (fdswitch.ini by default)
func SetConfigFile(f string) {
	configFilePath = f
}

// SetDotenvFile sets the dotenv file path (.env by default)
func SetDotenvFile(f string) {
	dotenvFilePath = f
}

// GetConfigDir returns the directory of fdswitch.ini
func GetConfigDir() string {
	dir, _ := path.Split(configFilePath)
	return dir
}

// GetConfigFilePath returns the config file path
func GetConfigFilePath() string {
	return configFilePath
}

// Get returns the total fdswitch config
func Get() *FDSConfig {
	configLock.Lock()
	defer configLock.Unlock()
	if fdsConfig == nil {
		fslog.Infof("Using config file: %s", configFilePath)
		cfg, err := Load(configFilePath, dotenvFilePath, os.LookupEnv)
		checkConfigError(err, "")
		fdsConfig = cfg
	}
	return fdsConfig
}

// Reload forces fdswitch to reload the whole config
func Reload() *FDSConfig {
	configLock.Lock()
	fdsConfig = nil
	configLock.Unlock()

	return Get()
}

// DumpPretty format config to string in pretty format
func DumpPretty(cfg interface{}) string {
	s, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err.Error()
	}
	return string(s)
}

// Load reads the ini file and then applies FDS_* overrides found in the dotenv file or the environment.
// Missing files are fine: every field has a default.
func Load(configFile, dotenvFile string, lookupEnv func(string) (string, bool)) (*FDSConfig, error) {
	config := defaults()

	iniFile, err := ini.LooseLoad(configFile)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", configFile)
	}

	for _, sec := range iniFile.Sections() {
		secName := strings.ToLower(sec.Name())
		var err error
		switch secName {
		case "default":
			if len(sec.Keys()) > 0 {
				err = errors.Errorf("keys outside of a section: %s", strings.Join(sec.KeyStrings(), ", "))
			}
		case "foundry":
			err = readFoundryConfig(sec, &config.Foundry)
		case "restart":
			err = readRestartConfig(sec, &config.Restart)
		case "access":
			err = readAccessConfig(sec, &config.Access)
		case "poller":
			err = readPollerConfig(sec, &config.Poller)
		case "presence":
			err = readPresenceConfig(sec, &config.Presence)
		case "http":
			err = readHTTPConfig(sec, &config.HTTP)
		case "log":
			err = readLogConfig(sec, &config.Log)
		default:
			err = errors.Errorf("unknown section: %s", sec.Name())
		}
		if err != nil {
			return nil, errors.Wrap(err, configFile)
		}
	}

	dotenv, err := ini.LooseLoad(dotenvFile)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", dotenvFile)
	}
	lookup := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}
		if k, err := dotenv.Section(ini.DefaultSection).GetKey(key); err == nil {
			return k.String(), true
		}
		return "", false
	}
	if err := applyEnvOverrides(config, lookup); err != nil {
		return nil, err
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func defaults() *FDSConfig {
	return &FDSConfig{
		Foundry: FoundryConfig{
			APIURL:   _DEFAULT_API_URL,
			DataPath: _DEFAULT_DATA_PATH,
			EnvFile:  _DEFAULT_ENV_FILE,
			Timeout:  consts.STATUS_REQUEST_TIMEOUT,
		},
		Restart: RestartConfig{
			Mode:      _DEFAULT_RESTART_MODE,
			Project:   _DEFAULT_PROJECT,
			Directory: ".",
			Service:   _DEFAULT_SERVICE,
			Signal:    _DEFAULT_RESTART_SIGNAL,
			Timeout:   consts.RESTART_TIMEOUT,
		},
		Access: AccessConfig{
			AllowedUserIDs: common.StringSet{},
			AllowedRoleIDs: common.StringSet{},
		},
		Poller: PollerConfig{
			Interval: consts.DEFAULT_POLL_INTERVAL,
		},
		Presence: PresenceConfig{
			RedisKey:     _DEFAULT_REDIS_KEY,
			RedisChannel: _DEFAULT_REDIS_KEY,
			RedisTimeout: consts.REDIS_TIMEOUT,
		},
		HTTP: HTTPConfig{
			Ip:   _DEFAULT_HTTP_IP,
			Port: _DEFAULT_HTTP_PORT,
		},
		Log: LogConfig{
			Level:  _DEFAULT_LOG_LEVEL,
			Stderr: true,
		},
	}
}

func unknownKey(sec *ini.Section, key *ini.Key) error {
	return errors.Errorf("section %s has unknown key: %s", sec.Name(), key.Name())
}

func seconds(key *ini.Key, def time.Duration) time.Duration {
	return time.Second * time.Duration(key.MustInt(int(def/time.Second)))
}

func readFoundryConfig(sec *ini.Section, fc *FoundryConfig) error {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "api_url" {
			fc.APIURL = key.MustString(fc.APIURL)
		} else if name == "data_path" {
			fc.DataPath = key.MustString(fc.DataPath)
		} else if name == "env_file" {
			fc.EnvFile = key.MustString(fc.EnvFile)
		} else if name == "timeout" {
			fc.Timeout = seconds(key, fc.Timeout)
		} else {
			return unknownKey(sec, key)
		}
	}
	return nil
}

func readRestartConfig(sec *ini.Section, rc *RestartConfig) error {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "mode" {
			rc.Mode = strings.ToLower(key.MustString(rc.Mode))
		} else if name == "project" {
			rc.Project = key.MustString(rc.Project)
		} else if name == "directory" {
			rc.Directory = key.MustString(rc.Directory)
		} else if name == "service" {
			rc.Service = key.MustString(rc.Service)
		} else if name == "signal" {
			rc.Signal = key.MustString(rc.Signal)
		} else if name == "region" {
			rc.Region = key.MustString(rc.Region)
		} else if name == "timeout" {
			rc.Timeout = seconds(key, rc.Timeout)
		} else {
			return unknownKey(sec, key)
		}
	}
	return nil
}

func readAccessConfig(sec *ini.Section, ac *AccessConfig) error {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "allowed_user_ids" {
			ac.AllowedUserIDs = common.ParseStringSet(key.String())
		} else if name == "allowed_role_ids" {
			ac.AllowedRoleIDs = common.ParseStringSet(key.String())
		} else {
			return unknownKey(sec, key)
		}
	}
	return nil
}

func readPollerConfig(sec *ini.Section, pc *PollerConfig) error {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "interval" {
			pc.Interval = seconds(key, pc.Interval)
		} else {
			return unknownKey(sec, key)
		}
	}
	return nil
}

func readPresenceConfig(sec *ini.Section, pc *PresenceConfig) error {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "redis_url" {
			pc.RedisURL = key.MustString(pc.RedisURL)
		} else if name == "redis_db" {
			pc.RedisDB = key.MustInt(pc.RedisDB)
		} else if name == "redis_key" {
			pc.RedisKey = key.MustString(pc.RedisKey)
		} else if name == "redis_channel" {
			pc.RedisChannel = key.MustString(pc.RedisChannel)
		} else if name == "redis_timeout" {
			pc.RedisTimeout = seconds(key, pc.RedisTimeout)
		} else {
			return unknownKey(sec, key)
		}
	}
	return nil
}

func readHTTPConfig(sec *ini.Section, hc *HTTPConfig) error {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "ip" {
			hc.Ip = key.MustString(hc.Ip)
		} else if name == "port" {
			hc.Port = key.MustInt(hc.Port)
		} else {
			return unknownKey(sec, key)
		}
	}
	return nil
}

func readLogConfig(sec *ini.Section, lc *LogConfig) error {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "level" {
			lc.Level = key.MustString(lc.Level)
		} else if name == "file" {
			lc.File = key.MustString(lc.File)
		} else if name == "stderr" {
			lc.Stderr = key.MustBool(lc.Stderr)
		} else {
			return unknownKey(sec, key)
		}
	}
	return nil
}

func applyEnvOverrides(config *FDSConfig, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("FDS_FOUNDRY_API_URL", &config.Foundry.APIURL)
	str("FDS_FOUNDRY_DATA_PATH", &config.Foundry.DataPath)
	str("FDS_ENV_FILE_PATH", &config.Foundry.EnvFile)
	str("FDS_DOCKER_COMPOSE_PROJECT", &config.Restart.Project)
	str("FDS_DOCKER_COMPOSE_DIRECTORY", &config.Restart.Directory)
	str("FDS_DOCKER_SERVICE_NAME", &config.Restart.Service)

	if v, ok := lookup("FDS_ALLOWED_USER_IDS"); ok {
		config.Access.AllowedUserIDs = common.ParseStringSet(v)
	}
	if v, ok := lookup("FDS_ALLOWED_ROLE_IDS"); ok {
		config.Access.AllowedRoleIDs = common.ParseStringSet(v)
	}
	if v, ok := lookup("FDS_POLL_INTERVAL"); ok && strings.TrimSpace(v) != "" {
		secs, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrap(err, "FDS_POLL_INTERVAL must be an integer")
		}
		config.Poller.Interval = time.Second * time.Duration(secs)
	}
	return nil
}

func validateConfig(config *FDSConfig) error {
	config.Foundry.APIURL = strings.TrimRight(strings.TrimSpace(config.Foundry.APIURL), "/")
	if config.Foundry.APIURL == "" {
		return errors.New("foundry api_url is not set")
	}
	if config.Foundry.DataPath == "" {
		return errors.New("foundry data_path is not set")
	}
	if config.Foundry.EnvFile == "" {
		return errors.New("foundry env_file is not set")
	}
	if config.Foundry.Timeout <= 0 {
		return errors.Errorf("foundry timeout must be positive, got %s", config.Foundry.Timeout)
	}
	if config.Poller.Interval <= 0 {
		return errors.Errorf("poll interval must be positive, got %s", config.Poller.Interval)
	}
	if config.Restart.Timeout <= 0 {
		return errors.Errorf("restart timeout must be positive, got %s", config.Restart.Timeout)
	}
	if config.Restart.Service == "" {
		return errors.New("restart service is not set")
	}

	switch config.Restart.Mode {
	case RestartModeCompose, RestartModeECS:
		if config.Restart.Project == "" {
			return errors.Errorf("restart project is not set for %s mode", config.Restart.Mode)
		}
	case RestartModeSignal:
		if config.Restart.Signal == "" {
			return errors.New("restart signal is not set for signal mode")
		}
	default:
		return errors.Errorf("unknown restart mode: %s", config.Restart.Mode)
	}

	if config.HTTP.Port <= 0 || config.HTTP.Port > 65535 {
		return errors.Errorf("invalid http port: %d", config.HTTP.Port)
	}
	return nil
}

func checkConfigError(err error, msg string) {
	if err != nil {
		if msg == "" {
			msg = err.Error()
		}
		fslog.Panicf("read config error: %s", msg)
	}
}
