package boot

import (
	"flag"
	"net/http"
	_ "net/http/pprof" // imported for side-effect of registering HTTP handlers
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/samuel/go-metrics/metrics"
	"github.com/samuel/go-metrics/reporter"

	"github.com/coachloop/backend/environment"
	"github.com/coachloop/backend/libs/awsutil"
	"github.com/coachloop/backend/libs/errors"
	"github.com/coachloop/backend/libs/golog"
	"github.com/coachloop/backend/libs/ratelimit"
	"github.com/coachloop/backend/libs/storage"
)

type Service struct {
	MetricsRegistry metrics.Registry

	flags struct {
		debug           bool
		env             string
		errorSNSTopic   string
		managementAddr  string
		libratoUsername string
		libratoToken    string
		awsAccessKey    string
		awsSecretKey    string
		awsToken        string
		awsRegion       string
		jsonLogs        bool
	}
	name           string
	awsSessionOnce sync.Once
	awsSession     *session.Session
	awsSessionErr  error
}

// NewService should be called at the start of a service. It parses flags and sets up a management server.
func NewService(name string, healthCheckHandler http.Handler) *Service {
	svc := &Service{name: name}
	flag.BoolVar(&svc.flags.debug, "debug", false, "Enable debug logging")
	flag.StringVar(&svc.flags.env, "env", "", "Execution environment")
	flag.StringVar(&svc.flags.errorSNSTopic, "error_sns_topic", "", "SNS `topic` which to send errors")
	flag.StringVar(&svc.flags.managementAddr, "management_addr", ":9000", "`host:port` of management HTTP server")
	flag.StringVar(&svc.flags.libratoUsername, "librato_username", "", "Librato metrics username")
	flag.StringVar(&svc.flags.libratoToken, "librato_token", "", "Librato metrics token")
	flag.StringVar(&svc.flags.awsAccessKey, "aws_access_key", "", "Access `key` for AWS")
	flag.StringVar(&svc.flags.awsSecretKey, "aws_secret_key", "", "Secret `key` for AWS")
	flag.StringVar(&svc.flags.awsToken, "aws_token", "", "Temporary access `token` for AWS")
	flag.StringVar(&svc.flags.awsRegion, "aws_region", "us-east-1", "AWS `region`")
	flag.BoolVar(&svc.flags.jsonLogs, "json_logs", false, "Enable JSON formatted logs")

	ParseFlags(strings.ToUpper(name) + "_")

	if svc.flags.env == "" {
		golog.Fatalf("-env flag required")
	}
	environment.SetCurrent(svc.flags.env)

	if svc.flags.jsonLogs {
		golog.Default().SetHandler(golog.WriterHandler(os.Stderr, golog.JSONFormatter()))
	}

	if svc.flags.debug {
		golog.Default().SetLevel(golog.DEBUG)
	}

	// TODO: this can be expanded in the future to support registering custom health checks (e.g. checking connection to DB)
	http.Handle("/health-check", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthCheckHandler != nil {
			healthCheckHandler.ServeHTTP(w, r)
			return
		}
		w.Write([]byte("OK"))
	}))

	// Start management server
	go func() {
		golog.Fatalf("%s", http.ListenAndServe(svc.flags.managementAddr, nil))
	}()

	metricsRegistry := metrics.NewRegistry()
	svc.MetricsRegistry = metricsRegistry.Scope("svc." + name)

	if svc.flags.errorSNSTopic != "" {
		awsSession, err := svc.AWSSession()
		if err != nil {
			golog.Fatalf("Failed to create AWS session: %s", err)
		}
		rateLimiter := ratelimit.NewLRUKeyed(128, func() ratelimit.RateLimiter {
			return ratelimit.NewSimple(5, time.Minute)
		})
		golog.Default().SetHandler(SNSLogHandler(
			sns.New(awsSession), svc.flags.errorSNSTopic, environment.GetCurrent()+"/"+name,
			golog.Default().Handler(), rateLimiter, metricsRegistry.Scope("errorsns")))
	}

	metricsRegistry.Add("runtime", metrics.RuntimeMetrics)

	if svc.flags.libratoUsername != "" && svc.flags.libratoToken != "" {
		source := svc.flags.env + "-" + name
		statsReporter := reporter.NewLibratoReporter(
			metricsRegistry, time.Minute, true, svc.flags.libratoUsername, svc.flags.libratoToken, source)
		statsReporter.Start()
	}

	return svc
}

// AWSSession returns an AWS session.
func (svc *Service) AWSSession() (*session.Session, error) {
	svc.awsSessionOnce.Do(func() {
		awsConfig, err := awsutil.Config(svc.flags.awsRegion, svc.flags.awsAccessKey, svc.flags.awsSecretKey, svc.flags.awsToken)
		if err != nil {
			svc.awsSessionErr = err
			return
		}
		svc.awsSession = session.New(awsConfig)
	})
	return svc.awsSession, svc.awsSessionErr
}

// StoreFromURL returns a storage.Store based on the URL provided. The scheme
// selects the storage type (file or s3). For S3 the host is the bucket.
func (svc *Service) StoreFromURL(u string) (storage.Store, error) {
	ur, err := url.Parse(u)
	if err != nil {
		return nil, errors.Errorf("failed to parse URL: %s", err)
	}
	switch ur.Scheme {
	case "file":
		return storage.NewLocalStore(ur.Path)
	case "s3":
		if ur.Host == "" {
			return nil, errors.Errorf("S3 storage URL '%s' missing bucket (aka host)", u)
		}
		awsSession, err := svc.AWSSession()
		if err != nil {
			return nil, errors.Trace(err)
		}
		return storage.NewS3(awsSession, ur.Host, strings.TrimPrefix(ur.Path, "/")), nil
	}
	return nil, errors.Errorf("no storage available for scheme %s", ur.Scheme)
}

// WaitForTermination waits for an INT or TERM signal.
func WaitForTermination() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	sig := <-ch
	golog.Infof("Quitting due to signal %s", sig.String())
}
