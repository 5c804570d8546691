package boot

import (
	"flag"
	"os"
	"strings"
)

// ParseFlags parses command line flags and overlays values from the
// environment for flags not set on the command line. The environment variable
// name is the flag name upper-cased with the given prefix, e.g. the flag
// "db_host" with prefix "TRANSCRIPTION_" reads TRANSCRIPTION_DB_HOST.
func ParseFlags(envPrefix string) {
	flag.Parse()

	set := make(map[string]bool)
	flag.CommandLine.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	flag.CommandLine.VisitAll(func(f *flag.Flag) {
		if set[f.Name] {
			return
		}
		env := envPrefix + strings.ToUpper(strings.Replace(f.Name, ".", "_", -1))
		if v := os.Getenv(env); v != "" {
			flag.Set(f.Name, v)
		}
	})
}
