package cli

import (
	"github.com/spf13/cobra"

	"github.com/khomabhena/h5-airtime/internal/bridge"
)

var bridgesUserAgent string

var bridgesCmd = &cobra.Command{
	Use:   "bridges",
	Short: "Inspect bridge detection for a user agent",
	Long: `Run platform detection and the bridge scan against a bare host environment
and print the detection snapshot.

A terminal has no injected native bridges, so the scan shows what the checkout
core would see in a plain browser with the given user agent.

Example:
  h5pay bridges --user-agent "Mozilla/5.0 (Linux; Android 14) SuperApp/2.1"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := bridge.NewRegistry(bareHost{userAgent: bridgesUserAgent})
		return printJSON(registry.Debug())
	},
}

func init() {
	bridgesCmd.Flags().StringVar(&bridgesUserAgent, "user-agent", "h5pay-cli", "User agent string to run detection against")
}

// bareHost is a Host with no native bridges.
type bareHost struct {
	userAgent string
}

func (h bareHost) UserAgent() string                                  { return h.userAgent }
func (h bareHost) PaymentObject() (bridge.Object, bool)               { return nil, false }
func (h bareHost) MessageHandlerNames() []string                      { return nil }
func (h bareHost) MessageHandler(string) (bridge.MessagePoster, bool) { return nil, false }
func (h bareHost) AndroidObject(string) (bridge.Object, bool)         { return nil, false }
func (h bareHost) ReactNativeWebView() (bridge.MessagePoster, bool)   { return nil, false }
func (h bareHost) FlutterInAppWebView() (bridge.Object, bool)         { return nil, false }
