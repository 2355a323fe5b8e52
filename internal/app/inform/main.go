package inform

import (
	"time"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/intervju/skriba/internal/pkg/messages"
	"github.com/intervju/skriba/internal/pkg/mongo"
	"github.com/intervju/skriba/internal/pkg/rabbit"
	"github.com/intervju/skriba/internal/pkg/utils"
	"github.com/spf13/cobra"
	"github.com/streadway/amqp"
)

var appName = "Skriba Email Information Service"

var rootCmd = &cobra.Command{
	Use:   "informService",
	Short: appName,
	Long:  `Service listens for job completion events from the queue and informs the user by email`,
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
	data := ServiceData{}
	data.fc = utils.NewSignalChannel()

	msgChannelProvider, err := rabbit.NewChannelProvider(
		cmdapp.Config.GetString("messageServer.url"),
		cmdapp.Config.GetString("messageServer.user"),
		cmdapp.Config.GetString("messageServer.pass"),
		cmdapp.Config.GetString("messageServer.prefix"))
	cmdapp.CheckOrPanic(err, "Can't init rabbit provider")
	defer msgChannelProvider.Close()

	err = rabbit.InitWithRetry(msgChannelProvider, func(ch *amqp.Channel) error {
		_, err := rabbit.DeclareQueue(ch, msgChannelProvider.QueueName(messages.Inform))
		return err
	})
	cmdapp.CheckOrPanic(err, "Can't declare queue")

	ch, err := msgChannelProvider.Channel()
	cmdapp.CheckOrPanic(err, "Can't open channel")
	err = ch.Qos(1, 0, false)
	cmdapp.CheckOrPanic(err, "Can't set Qos")

	data.workCh, err = ch.Consume(msgChannelProvider.QueueName(messages.Inform),
		"", false, false, false, false, nil)
	cmdapp.CheckOrPanic(err, "Can't listen "+messages.Inform+" queue")

	data.emailMaker, err = newSimpleEmailMaker(cmdapp.Config)
	cmdapp.CheckOrPanic(err, "Can't init email maker")

	location := cmdapp.Config.GetString("mail.location")
	if location != "" {
		data.location, err = time.LoadLocation(location)
		cmdapp.CheckOrPanic(err, "Can't init location")
	}

	data.emailSender, err = newSimpleEmailSender()
	cmdapp.CheckOrPanic(err, "Can't init email sender")

	mongoSessionProvider, err := mongo.NewSessionProvider(cmdapp.Config.GetString("mongo.url"))
	cmdapp.CheckOrPanic(err, "Can't init mongo provider")
	defer mongoSessionProvider.Close()

	data.locker, err = mongo.NewLocker(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init mongo locker")

	data.emailRetriever, err = mongo.NewEmailRetriever(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init mongo email retriever")

	err = StartWorkerService(&data)
	cmdapp.CheckOrPanic(err, "Can't start service")
	<-data.fc.C
	cmdapp.Log.Infof("Exiting service")
}
