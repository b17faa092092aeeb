package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "NCCLIENT"

// settings are the options resolved from flags, environment and config file, in that order of precedence.
type settings struct {
	LogLevel     string
	SetupTimeout int
	KnownHosts   string
	Datastore    string
}

func addSettingsFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "yaml config file")
	flags.String("log-level", "error", "log level (debug, info, warn, error)")
	flags.Int("setup-timeout", 5, "seconds to wait for the device hello")
	flags.String("known-hosts", "", "known_hosts file used to verify the device host key")
	flags.String("datastore", "running", "datastore used by commands that do not name one")
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	v := viper.New()
	v.SetDefault("log-level", "error")
	v.SetDefault("setup-timeout", 5)
	v.SetDefault("known-hosts", "")
	v.SetDefault("datastore", "running")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return &settings{
		LogLevel:     v.GetString("log-level"),
		SetupTimeout: v.GetInt("setup-timeout"),
		KnownHosts:   v.GetString("known-hosts"),
		Datastore:    v.GetString("datastore"),
	}, nil
}
