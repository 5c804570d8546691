package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/rs/cors"

	"github.com/coachloop/backend/boot"
	"github.com/coachloop/backend/cmd/svc/transcription/internal/dal"
	"github.com/coachloop/backend/cmd/svc/transcription/internal/handlers"
	"github.com/coachloop/backend/cmd/svc/transcription/internal/progress"
	"github.com/coachloop/backend/cmd/svc/transcription/internal/server"
	"github.com/coachloop/backend/cmd/svc/transcription/internal/workers"
	"github.com/coachloop/backend/libs/cfg"
	"github.com/coachloop/backend/libs/clock"
	"github.com/coachloop/backend/libs/conc"
	"github.com/coachloop/backend/libs/dbutil"
	"github.com/coachloop/backend/libs/golog"
	"github.com/coachloop/backend/libs/httputil"
	"github.com/coachloop/backend/libs/ratelimit"
	"github.com/coachloop/backend/libs/smet"
	"github.com/coachloop/backend/libs/stt"
	"github.com/coachloop/backend/libs/worker"
)

var (
	flagHTTPListenAddr = flag.String("http_listen_addr", ":5090", "host:port to listen on for the HTTP API")
	flagBehindProxy    = flag.Bool("behind_proxy", false, "Set when behind a load balancer or proxy")
	flagCORSAllowAll   = flag.Bool("cors_allow_all", false, "Enable the * patterns on CORS")
	flagAPIRateLimit   = flag.Int("api_rate_limit", 120, "Maximum API requests per remote address per minute, 0 disables limiting")

	// Database
	flagDBHost     = flag.String("db_host", "", "MySQL database host")
	flagDBPort     = flag.Int("db_port", 3306, "MySQL database port")
	flagDBName     = flag.String("db_name", "transcription", "MySQL database name")
	flagDBUsername = flag.String("db_username", "", "MySQL database username")
	flagDBPassword = flag.String("db_password", "", "MySQL database password")
	flagDBCACert   = flag.String("db_ca_cert", "", "Path to MySQL CA certificate")
	flagDBTLS      = flag.String("db_tls", "false", "Enable TLS for MySQL connection (one of 'true', 'false', 'skip-verify')")

	// Audio storage
	flagStorageURL = flag.String("storage_url", "", "URL of the audio object store (s3://bucket/prefix or file://path)")

	// Queues
	flagSubmitQueueURL = flag.String("sqs_submit_queue_url", "", "URL of the SQS queue for transcription submissions")

	// Speech-to-text provider
	flagSTTAPIURL      = flag.String("stt_api_url", "", "Base URL of the speech-to-text provider API (default production)")
	flagSTTBearerToken = flag.String("stt_bearer_token", "", "Bearer token for the speech-to-text provider")
)

func main() {
	bootSvc := boot.NewService("transcription", nil)
	smet.InitRegistry(bootSvc.MetricsRegistry.Scope("smet"))

	db, err := dbutil.ConnectMySQL(&dbutil.DBConfig{
		User:          *flagDBUsername,
		Password:      *flagDBPassword,
		Host:          *flagDBHost,
		Port:          *flagDBPort,
		Name:          *flagDBName,
		CACert:        *flagDBCACert,
		EnableTLS:     *flagDBTLS == "true" || *flagDBTLS == "skip-verify",
		SkipVerifyTLS: *flagDBTLS == "skip-verify",
	})
	if err != nil {
		golog.Fatalf("Unable to connect to database: %s", err)
	}
	dl := dal.New(db)

	if *flagStorageURL == "" {
		golog.Fatalf("-storage_url is required")
	}
	store, err := bootSvc.StoreFromURL(*flagStorageURL)
	if err != nil {
		golog.Fatalf("Unable to initialize audio storage: %s", err)
	}

	if *flagSubmitQueueURL == "" {
		golog.Fatalf("-sqs_submit_queue_url is required")
	}
	awsSession, err := bootSvc.AWSSession()
	if err != nil {
		golog.Fatalf("Unable to initialize AWS session: %s", err)
	}
	eSQS := sqs.New(awsSession)

	if *flagSTTBearerToken == "" {
		golog.Fatalf("-stt_bearer_token is required")
	}
	backend := stt.GetBackend()
	if *flagSTTAPIURL != "" {
		backend = stt.BackendConfiguration{APIURL: *flagSTTAPIURL, HTTPClient: http.DefaultClient}
	}
	jobs := stt.NewJobClient(backend, *flagSTTBearerToken)

	var defs []*cfg.ValueDef
	defs = append(defs, progress.Defs()...)
	defs = append(defs, server.Defs()...)
	defs = append(defs, server.QuotaDefs()...)
	defs = append(defs, workers.Defs()...)
	cfgStore, err := cfg.NewLocalStore(defs)
	if err != nil {
		golog.Fatalf("Unable to initialize config store: %s", err)
	}

	clk := clock.New()
	srv := server.New(
		dl,
		store,
		eSQS,
		*flagSubmitQueueURL,
		clk,
		cfgStore,
		server.NewQuotaGate(dl, clk, cfgStore),
		server.NewAllowAllDirectory(),
		bootSvc.MetricsRegistry.Scope("server"))

	var workerCollection worker.Collection
	workerCollection.AddWorker(workers.NewSubmitWorker(
		eSQS,
		*flagSubmitQueueURL,
		dl,
		store,
		jobs,
		clk,
		cfgStore,
		bootSvc.MetricsRegistry.Scope("workers.submit")))
	workerCollection.AddWorker(workers.NewPollWorker(
		dl,
		jobs,
		clk,
		cfgStore,
		bootSvc.MetricsRegistry.Scope("workers.poll")))
	workerCollection.Start()

	h := httputil.LoggingHandler(handlers.New(srv), "transcription", *flagBehindProxy)
	if *flagAPIRateLimit > 0 {
		rl := ratelimit.NewLRUKeyed(4096, func() ratelimit.RateLimiter {
			return ratelimit.NewSimple(*flagAPIRateLimit, time.Minute)
		})
		h = ratelimit.RemoteAddrHandler(h, rl, "api", bootSvc.MetricsRegistry.Scope("ratelimit"))
	}
	if *flagCORSAllowAll {
		h = cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{httputil.Delete, httputil.Get, httputil.Options, httputil.Patch, httputil.Post, httputil.Put},
			AllowCredentials: true,
			AllowedHeaders:   []string{"*"},
		}).Handler(h)
	}
	httpSrv := &http.Server{
		Addr:           *flagHTTPListenAddr,
		Handler:        h,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	conc.Go(func() {
		golog.Infof("Transcription API listening on %s...", *flagHTTPListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			golog.Fatalf(err.Error())
		}
	})

	boot.WaitForTermination()
	golog.Infof("Shutting down...")
	workerCollection.Stop(time.Second * 20)
}
