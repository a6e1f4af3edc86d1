package config

import (
	"flag"
	"io"
)

// parseFlags reads the global flags that precede the command and returns
// the command with its own arguments.
//
//	-a string     server address (host:port)
//	-k string     operator access token
//	-t duration   per-call timeout
//	-c string     JSON config file (read by parseJson)
func parseFlags(cfg *Config, args []string) ([]string, error) {
	fs := flag.NewFlagSet("poolctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.AccessToken, "k", cfg.AccessToken, "operator access token")
	fs.DurationVar(&cfg.Timeout, "t", cfg.Timeout, "timeout for each call")

	var jsonFile string
	fs.StringVar(&jsonFile, "c", "", "json config file")
	fs.StringVar(&jsonFile, "config", "", "json config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}
