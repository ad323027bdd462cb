package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdcell "github.com/projecteru2/hive/cmd/cell"
	cmdcore "github.com/projecteru2/hive/cmd/core"
	cmdsystem "github.com/projecteru2/hive/cmd/system"
	"github.com/projecteru2/hive/config"
)

var (
	cfgFile string
	conf    *config.Config
)

var rootCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hive",
		Short: "Hive - partitioning hypervisor control plane",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(commandContext(cmd))
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().String("run-dir", "", "runtime directory")
	cmd.PersistentFlags().String("firmware-dir", "", "hypervisor image directory")

	_ = viper.BindPFlag("run_dir", cmd.PersistentFlags().Lookup("run-dir"))
	_ = viper.BindPFlag("firmware_dir", cmd.PersistentFlags().Lookup("firmware-dir"))

	viper.SetEnvPrefix("HIVE")
	viper.AutomaticEnv()

	confProvider := func() *config.Config { return conf }

	for _, c := range cmdsystem.Commands(cmdsystem.Handler{BaseHandler: cmdcore.BaseHandler{ConfProvider: confProvider}}) {
		cmd.AddCommand(c)
	}
	cmd.AddCommand(cmdcell.Command(cmdcell.Handler{BaseHandler: cmdcore.BaseHandler{ConfProvider: confProvider}}))

	return cmd
}()

func initConfig(ctx context.Context) error {
	conf = config.DefaultConfig()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	_ = viper.ReadInConfig() // optional; missing file is OK

	if err := viper.Unmarshal(conf); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	return log.SetupLog(ctx, &conf.Log, "")
}

// commandContext returns the command's context, falling back to Background.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// newCommandContext derives a context cancelled by SIGINT/SIGTERM.
func newCommandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Execute is the main entry point called from main.go.
func Execute() error {
	ctx, cancel := newCommandContext()
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}
