package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flagcore/flagcore-go/pkg/client"
	"github.com/flagcore/flagcore-go/pkg/ldconfig"
	"github.com/flagcore/flagcore-go/pkg/ldmodel"
)

var (
	sdkKey       string
	baseURI      string
	streamURI    string
	eventsURI    string
	stream       bool
	offline      bool
	waitSeconds  int
	flagKey      string
	userKey      string
)

var rootCmd = &cobra.Command{
	Use:   "flagcore-demo",
	Short: "Exercise a flagcore client against a running flag-management service",
	Long:  ``,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := ldconfig.DefaultConfig()
		cfg.SDKKey = viper.GetString("sdk-key")
		cfg.BaseURI = viper.GetString("base-uri")
		cfg.StreamURI = viper.GetString("stream-uri")
		cfg.EventsURI = viper.GetString("events-uri")
		cfg.Stream = viper.GetBool("stream")
		cfg.Offline = viper.GetBool("offline")
		cfg.WaitForSeconds = time.Duration(viper.GetInt("wait-seconds")) * time.Second

		c, err := client.New(cfg, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start client: %v\n", err)
			os.Exit(1)
		}
		defer c.Close()

		user := &ldmodel.User{Key: viper.GetString("user-key")}
		detail := c.VariationDetail(viper.GetString("flag-key"), user, ldmodel.Bool(false))
		fmt.Printf("flag=%s user=%s value=%v reason=%s\n", viper.GetString("flag-key"), user.Key, detail.Value.ToInterface(), detail.Reason.Kind)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		c.Flush()
	},
}

func init() {
	rootCmd.Flags().StringVar(&sdkKey, "sdk-key", "", "SDK key used to authenticate with the flag-management service")
	rootCmd.Flags().StringVar(&baseURI, "base-uri", "https://sdk.example.com", "Base URI for polling and streaming")
	rootCmd.Flags().StringVar(&streamURI, "stream-uri", "https://stream.example.com", "Streaming endpoint URI")
	rootCmd.Flags().StringVar(&eventsURI, "events-uri", "https://events.example.com", "Event-ingestion endpoint URI")
	rootCmd.Flags().BoolVar(&stream, "stream", true, "Use the streaming data source instead of polling")
	rootCmd.Flags().BoolVar(&offline, "offline", false, "Run without any network data source")
	rootCmd.Flags().IntVar(&waitSeconds, "wait-seconds", 5, "Seconds to block on startup waiting for the data source to become ready")
	rootCmd.Flags().StringVar(&flagKey, "flag-key", "", "Flag key to evaluate")
	rootCmd.Flags().StringVar(&userKey, "user-key", "demo-user", "User key to evaluate against")

	_ = viper.BindPFlags(rootCmd.Flags())
	viper.SetEnvPrefix("FLAGCORE")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
