package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/meetauth/internal/flagx"
)

var settingFlags = []string{"-a", "-d", "-s", "-t", "-r", "-k", "-v", "-l", "-f", "-u", "-p", "-b", "-g", "-e"}

// ValueFlags lists every configuration flag, the config file flags included.
// All of them take a value; the operator CLI uses the list to find its
// subcommand.
var ValueFlags = append(append([]string{}, settingFlags...), "-c", "-config", "--config")

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   session signing key
//	-t int      session token validity, minutes
//	-r int      reset token validity, minutes
//	-k int      bcrypt cost
//	-v int      starting vision tokens for new accounts
//	-l string   log level (debug, info, warn, error)
//	-f string   log format (text, json)
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// os.Args is filtered with flagx.FilterArgs first, so subcommands and their
// arguments do not reach this flag set.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], settingFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session token validity (in minutes)")
	resetTTL := fs.Int("r", int(config.ResetTokenTTL.Minutes()), "reset token validity (in minutes)")

	fs.IntVar(&config.BcryptCost, "k", config.BcryptCost, "bcrypt cost")
	fs.Int64Var(&config.DefaultVisionTokens, "v", config.DefaultVisionTokens, "starting vision tokens")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Durations are replaced only when the flag was given.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
		case "r":
			config.ResetTokenTTL = time.Duration(*resetTTL) * time.Minute
		}
	})
}
