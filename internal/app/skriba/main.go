package skriba

import (
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/intervju/skriba/internal/pkg/jobs"
	"github.com/intervju/skriba/internal/pkg/keeprange"
	"github.com/intervju/skriba/internal/pkg/loader"
	"github.com/intervju/skriba/internal/pkg/messages"
	"github.com/intervju/skriba/internal/pkg/metrics"
	"github.com/intervju/skriba/internal/pkg/mongo"
	"github.com/intervju/skriba/internal/pkg/ner"
	"github.com/intervju/skriba/internal/pkg/rabbit"
	"github.com/intervju/skriba/internal/pkg/redactor"
	"github.com/intervju/skriba/internal/pkg/saver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/streadway/amqp"
)

var rootCmd = &cobra.Command{
	Use:   "skribaService",
	Short: "Skriba Transcription Service",
	Long:  `HTTP server for transcription job management, transcript editing and text redaction`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	rootCmd.PersistentFlags().Int32P("port", "", 8000, "Default service port")
	cmdapp.Config.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	cmdapp.Config.SetDefault("port", 8080)
	cmdapp.Config.SetDefault("fileStorage.path", "/data/audio.in/")
}

// Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting skribaService")
	var data ServiceData
	var err error
	data.health = healthcheck.NewHandler()

	err = initMetrics(&data)
	cmdapp.CheckOrPanic(err, "Can't init metrics")

	storagePath := cmdapp.Config.GetString("fileStorage.path")
	fs, err := saver.NewLocalFileSaver(storagePath)
	cmdapp.CheckOrPanic(err, "Can't init file storage")
	data.FileSaver = fs

	fileLoader, err := loader.NewLocalFileLoader(storagePath)
	cmdapp.CheckOrPanic(err, "Can't init file loader")
	data.FileResolver = fileLoader

	msgChannelProvider, err := rabbit.NewChannelProvider(
		cmdapp.Config.GetString("messageServer.url"),
		cmdapp.Config.GetString("messageServer.user"),
		cmdapp.Config.GetString("messageServer.pass"),
		cmdapp.Config.GetString("messageServer.prefix"))
	cmdapp.CheckOrPanic(err, "Can't init rabbit channel")
	defer msgChannelProvider.Close()
	data.health.AddLivenessCheck("rabbit", healthcheck.Async(msgChannelProvider.Healthy, 10*time.Second))

	err = initQueues(msgChannelProvider)
	cmdapp.CheckOrPanic(err, "Can't init queues")

	data.EventChannelFunc = func() (<-chan amqp.Delivery, error) {
		ch, err := msgChannelProvider.Channel()
		if err != nil {
			return nil, err
		}
		q, err := rabbit.NewChannel(ch, msgChannelProvider.QueueName(messages.StatusChange))
		if err != nil {
			return nil, err
		}
		return ch.Consume(q, "", true, false, false, false, nil)
	}

	mongoSessionProvider, err := mongo.NewSessionProvider(cmdapp.Config.GetString("mongo.url"))
	cmdapp.CheckOrPanic(err, "Can't init mongo")
	defer mongoSessionProvider.Close()
	data.health.AddLivenessCheck("mongo", healthcheck.Async(mongoSessionProvider.Healthy, 10*time.Second))

	jobStore, err := mongo.NewJobStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init job store")
	segmentStore, err := mongo.NewSegmentStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init segment store")
	wordStore, err := mongo.NewWordStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init word store")
	data.Segments = segmentStore
	data.Words = wordStore

	cleaners, err := mongo.NewCleanRecords(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init cleaners")
	jobCleaners := make([]jobs.Cleaner, 0, len(cleaners))
	for _, c := range cleaners {
		jobCleaners = append(jobCleaners, c)
	}

	sender := rabbit.NewSender(msgChannelProvider)
	publisher := rabbit.NewPublisher(msgChannelProvider)
	data.Jobs, err = jobs.NewOrchestrator(jobStore, segmentStore, jobCleaners,
		fileLoader, sender, publisher)
	cmdapp.CheckOrPanic(err, "Can't init orchestrator")

	nerClient, err := ner.NewClient(cmdapp.Config.GetString("ner.url"))
	cmdapp.CheckOrPanic(err, "Can't init ner client")
	if nerClient != nil {
		data.Recognizer = nerClient
	}
	data.Patterns = initPatternDetector()

	data.Editor, err = keeprange.NewMaterializer(cmdapp.Config.GetString("audio.ffmpegPath"))
	cmdapp.CheckOrPanic(err, "Can't init materializer")

	data.Port = cmdapp.Config.GetInt("port")

	err = StartWebServer(&data)
	cmdapp.CheckOrPanic(err, "Can't start web server")
}

func initPatternDetector() *redactor.PatternDetector {
	rulesFile := cmdapp.Config.GetString("redactor.rulesFile")
	var rules *redactor.Rules
	if rulesFile != "" {
		var err error
		rules, err = redactor.LoadRules(rulesFile)
		if err != nil {
			cmdapp.Log.Warn(err)
		}
	}
	patterns := redactor.NewPatternDetector(rules)
	if rulesFile != "" {
		if _, err := redactor.WatchRules(rulesFile, patterns); err != nil {
			cmdapp.Log.Warn(err)
		}
	}
	return patterns
}

func initQueues(prv *rabbit.ChannelProvider) error {
	cmdapp.Log.Info("Initializing queues")
	return rabbit.InitWithRetry(prv, func(ch *amqp.Channel) error {
		_, err := rabbit.DeclareQueue(ch, prv.QueueName(messages.Transcribe))
		if err != nil {
			return err
		}
		_, err = rabbit.DeclareQueue(ch, prv.QueueName(messages.Inform))
		if err != nil {
			return err
		}
		err = rabbit.DeclareExchange(ch, prv.QueueName(messages.JobCancel))
		if err != nil {
			return err
		}
		return rabbit.DeclareExchange(ch, prv.QueueName(messages.StatusChange))
	})
}

func initMetrics(data *ServiceData) error {
	namespace := "skriba_service"
	data.metrics.uploadResponseDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_request_durations_seconds",
			Help:      "Upload request latency distributions.",
		}, nil)
	if err := metrics.Register(data.metrics.uploadResponseDur); err != nil {
		return err
	}
	data.metrics.uploadRequestSize = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "upload_request_size_bytes",
			Help:      "Upload request size in bytes.",
		}, nil)
	if err := metrics.Register(data.metrics.uploadRequestSize); err != nil {
		return err
	}
	data.metrics.jobsResponseDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_request_durations_seconds",
			Help:      "Job submit request latency distributions.",
		}, nil)
	return metrics.Register(data.metrics.jobsResponseDur)
}
