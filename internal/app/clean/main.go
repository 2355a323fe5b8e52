package clean

import (
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/intervju/skriba/internal/pkg/loader"
	"github.com/intervju/skriba/internal/pkg/metrics"
	"github.com/intervju/skriba/internal/pkg/mongo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var appName = "Skriba Data Clean Service"

var rootCmd = &cobra.Command{
	Use:   "cleanService",
	Short: appName,
	Long:  `Service to drop expired transcription jobs with their audio`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	rootCmd.PersistentFlags().Int32P("port", "", 8000, "Default service port")
	cmdapp.Config.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	cmdapp.Config.SetDefault("port", 8080)
	cmdapp.Config.SetDefault("clean.expire", 168*time.Hour)
	cmdapp.Config.SetDefault("clean.runEvery", time.Hour)
}

// Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting " + appName)

	data := &ServiceData{}
	data.Port = cmdapp.Config.GetInt("port")
	data.health = healthcheck.NewHandler()

	err := initMetrics(data)
	cmdapp.CheckOrPanic(err, "Can't init metrics")

	mongoSessionProvider, err := mongo.NewSessionProvider(cmdapp.Config.GetString("mongo.url"))
	cmdapp.CheckOrPanic(err, "Can't init mongo")
	defer mongoSessionProvider.Close()
	data.health.AddReadinessCheck("mongo", healthcheck.Async(mongoSessionProvider.Healthy, 10*time.Second))

	jobStore, err := mongo.NewJobStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init job store")
	cleanRecords, err := mongo.NewCleanRecords(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init record cleaners")
	records := make([]Cleaner, 0, len(cleanRecords))
	for _, c := range cleanRecords {
		records = append(records, c)
	}

	fileLoader, err := loader.NewLocalFileLoader(cmdapp.Config.GetString("fileStorage.path"))
	cmdapp.CheckOrPanic(err, "Can't init file loader")

	data.cleaner, err = newCleanerImpl(jobStore, records, fileLoader)
	cmdapp.CheckOrPanic(err, "Can't init cleaner")

	idsProvider, err := mongo.NewOldIDsProvider(mongoSessionProvider,
		cmdapp.Config.GetDuration("clean.expire"))
	cmdapp.CheckOrPanic(err, "Can't init IDs provider")

	timerData := &timerServiceData{runEvery: cmdapp.Config.GetDuration("clean.runEvery"),
		cleaner: data.cleaner, idsProvider: idsProvider,
		qChan: make(chan struct{}), workWaitChan: make(chan struct{})}
	err = startCleanTimer(timerData)
	cmdapp.CheckOrPanic(err, "Can't start timer")
	defer close(timerData.qChan)

	err = StartWebServer(data)
	cmdapp.CheckOrPanic(err, "")
}

func initMetrics(data *ServiceData) error {
	data.metrics.responseDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clean_service",
			Name:      "request_durations_seconds",
			Help:      "Request latency distributions.",
		}, nil)
	return metrics.Register(data.metrics.responseDur)
}
