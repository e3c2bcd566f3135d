package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fdswitch/fdswitch/engine/common"
	"github.com/fdswitch/fdswitch/engine/config"
	"github.com/fdswitch/fdswitch/engine/envfile"
)

var args struct {
	url        string
	user       string
	roles      string
	configFile string
	timeout    time.Duration
}

func parseArgs() {
	flag.StringVar(&args.url, "url", "http://127.0.0.1:8080", "fdswitch front-end url")
	flag.StringVar(&args.user, "user", "", "principal id sent with switch requests")
	flag.StringVar(&args.roles, "roles", "", "comma separated role ids sent with switch requests")
	flag.StringVar(&args.configFile, "configfile", "", "set config file path, used by current")
	flag.DurationVar(&args.timeout, "timeout", 6*time.Minute, "request timeout")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] worlds [query] | status | switch <world-id> | current\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
}

func main() {
	parseArgs()
	args := flag.Args()

	if len(args) == 0 {
		showMsg("no command to execute")
		flag.Usage()
		os.Exit(1)
	}

	cmd := args[0]
	if cmd == "worlds" {
		if len(args) > 2 {
			showMsgAndQuit("should specify at most one query")
		}
		query := ""
		if len(args) == 2 {
			query = args[1]
		}
		listWorlds(query)
	} else if cmd == "status" {
		showStatus()
	} else if cmd == "switch" {
		if len(args) != 2 {
			showMsgAndQuit("should specify one world id")
		}
		switchWorld(args[1])
	} else if cmd == "current" {
		showCurrent()
	} else {
		showMsgAndQuit("unknown command: %s", cmd)
	}
}

func showCurrent() {
	if args.configFile != "" {
		config.SetConfigFile(args.configFile)
	}
	cfg, err := config.Load(config.GetConfigFilePath(), ".env", os.LookupEnv)
	checkErrorOrQuit(err, "load config failed")

	world, ok, err := envfile.GetWorld(cfg.Foundry.EnvFile)
	checkErrorOrQuit(err, "read env file failed")
	if !ok {
		showMsgAndQuit("%s has no %s line", cfg.Foundry.EnvFile, envfile.WorldKey)
	}
	fmt.Println(world)
}

func roleIDs() []string {
	return common.ParseStringSet(args.roles).ToList()
}

func trimURL() string {
	return strings.TrimRight(args.url, "/")
}
