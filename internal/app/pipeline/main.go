package pipeline

import (
	"sync"

	"github.com/intervju/skriba/internal/pkg/asr"
	"github.com/intervju/skriba/internal/pkg/audio"
	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/intervju/skriba/internal/pkg/jobs"
	"github.com/intervju/skriba/internal/pkg/loader"
	"github.com/intervju/skriba/internal/pkg/messages"
	"github.com/intervju/skriba/internal/pkg/mongo"
	"github.com/intervju/skriba/internal/pkg/ner"
	"github.com/intervju/skriba/internal/pkg/persistence"
	"github.com/intervju/skriba/internal/pkg/rabbit"
	"github.com/intervju/skriba/internal/pkg/redactor"
	"github.com/intervju/skriba/internal/pkg/registry"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/streadway/amqp"
)

var appName = "Skriba Pipeline Service"

var rootCmd = &cobra.Command{
	Use:   "pipelineService",
	Short: appName,
	Long:  `Pipeline worker service processes queued transcription jobs`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
}

// Execute starts the service
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting " + appName)

	var reapLock sync.RWMutex
	reapChildren(&reapLock)

	mongoSessionProvider, err := mongo.NewSessionProvider(cmdapp.Config.GetString("mongo.url"))
	cmdapp.CheckOrPanic(err, "Can't init mongo provider")
	defer mongoSessionProvider.Close()

	msgChannelProvider, err := rabbit.NewChannelProvider(
		cmdapp.Config.GetString("messageServer.url"),
		cmdapp.Config.GetString("messageServer.user"),
		cmdapp.Config.GetString("messageServer.pass"),
		cmdapp.Config.GetString("messageServer.prefix"))
	cmdapp.CheckOrPanic(err, "Can't init rabbit provider")
	defer msgChannelProvider.Close()

	err = rabbit.InitWithRetry(msgChannelProvider, func(ch *amqp.Channel) error {
		_, err := rabbit.DeclareQueue(ch, msgChannelProvider.QueueName(messages.Transcribe))
		if err != nil {
			return err
		}
		_, err = rabbit.DeclareQueue(ch, msgChannelProvider.QueueName(messages.Inform))
		if err != nil {
			return err
		}
		err = rabbit.DeclareExchange(ch, msgChannelProvider.QueueName(messages.JobCancel))
		if err != nil {
			return err
		}
		return rabbit.DeclareExchange(ch, msgChannelProvider.QueueName(messages.StatusChange))
	})
	cmdapp.CheckOrPanic(err, "Can't declare queues")

	data := ServiceData{}
	data.Workers = cmdapp.Config.GetInt("pipeline.workers")
	if data.Workers < 1 {
		data.Workers = 2
	}

	ch, err := msgChannelProvider.Channel()
	cmdapp.CheckOrPanic(err, "Can't open channel")
	err = ch.Qos(data.Workers, 0, false)
	cmdapp.CheckOrPanic(err, "Can't set Qos")

	data.WorkCh, err = consumeQueue(ch, msgChannelProvider.QueueName(messages.Transcribe))
	cmdapp.CheckOrPanic(err, "Can't listen "+messages.Transcribe+" queue")

	cancelQueue, err := rabbit.NewChannel(ch, msgChannelProvider.QueueName(messages.JobCancel))
	cmdapp.CheckOrPanic(err, "Can't bind cancel queue")
	data.CancelCh, err = consumeQueue(ch, cancelQueue)
	cmdapp.CheckOrPanic(err, "Can't listen cancel queue")

	jobStore, err := mongo.NewJobStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init job store")
	segmentStore, err := mongo.NewSegmentStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init segment store")
	wordStore, err := mongo.NewWordStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init word store")

	fileLoader, err := loader.NewLocalFileLoader(cmdapp.Config.GetString("fileStorage.path"))
	cmdapp.CheckOrPanic(err, "Can't init file loader")

	sender := rabbit.NewSender(msgChannelProvider)
	publisher := rabbit.NewPublisher(msgChannelProvider)

	orchestrator, err := jobs.NewOrchestrator(jobStore, segmentStore, nil, nil, sender, publisher)
	cmdapp.CheckOrPanic(err, "Can't init orchestrator")

	// capability config is read once here and injected
	asrURL := cmdapp.Config.GetString("asr.url")
	if asrURL == "" {
		cmdapp.CheckOrPanic(errors.New("no asr.url configured"), "")
	}
	clients, err := registry.NewRegistry(func(key string) (interface{}, error) {
		url := cmdapp.Config.GetString("asr.url." + key)
		if url == "" {
			url = asrURL
		}
		return asr.NewClient(url)
	})
	cmdapp.CheckOrPanic(err, "Can't init model registry")
	defer clients.Close()

	diarizer, err := asr.NewDiarizer(cmdapp.Config.GetString("diarizer.url"),
		cmdapp.Config.GetString("diarizer.token"))
	cmdapp.CheckOrPanic(err, "Can't init diarizer")

	nerClient, err := ner.NewClient(cmdapp.Config.GetString("ner.url"))
	cmdapp.CheckOrPanic(err, "Can't init ner client")

	patterns := initPatternDetector()

	prober, err := audio.NewProber(cmdapp.Config.GetString("audio.ffprobePath"))
	cmdapp.CheckOrPanic(err, "Can't init prober")

	transcribeStage, err := NewTranscribeStage(clients, fileLoader, prober)
	cmdapp.CheckOrPanic(err, "Can't init transcription stage")
	var detector SpeakerDetector
	if diarizer != nil {
		detector = diarizer
	}
	diarizeStage := NewDiarizeStage(detector, fileLoader)
	var recognizer redactor.EntityRecognizer
	if nerClient != nil {
		recognizer = nerClient
	}
	redactStage := NewRedactStage(recognizer, patterns)
	persistStage, err := NewPersistStage(segmentStore, wordStore)
	cmdapp.CheckOrPanic(err, "Can't init persistence stage")

	stages := func(job *persistence.Job) []Stage {
		res := []Stage{Stage(transcribeStage)}
		if job.EnableDiarization {
			res = append(res, diarizeStage)
		}
		if job.EnableRedaction {
			res = append(res, redactStage)
		}
		return append(res, persistStage)
	}

	coalescer := NewCoalescer(orchestrator, cmdapp.Config.GetDuration("pipeline.progressInterval"))
	coalescer.Start()
	defer coalescer.Close()

	bridge, err := NewBridge(orchestrator, stages, coalescer,
		cmdapp.Config.GetDuration("pipeline.timeout"))
	cmdapp.CheckOrPanic(err, "Can't init bridge")
	data.Bridge = bridge

	fc, err := StartWorkerService(&data)
	cmdapp.CheckOrPanic(err, "Can't start service")
	<-fc
	cmdapp.Log.Infof("Exiting service")
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

func consumeQueue(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	return ch.Consume(
		queue,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
}
